// Package workflow sequences the research pipelines: build provider task
// submissions, wait for their results, derive analytics, optionally request
// an AI summary, and persist every step through the store. One controller
// per research type; each query moves Pending -> InProgress -> Completed or
// Failed, with no retry or resume.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rankscout/rankscout/internal/metrics"
	"github.com/rankscout/rankscout/internal/orchestrator"
	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/internal/store"
	"github.com/rankscout/rankscout/internal/summarize"
)

// Deps carries the collaborators a controller needs. Everything is injected;
// controllers hold no global state.
type Deps struct {
	Store     store.Store
	Tasks     *orchestrator.Orchestrator
	Summaries *summarize.Queue
	Logger    *slog.Logger
}

// Timing bounds one controller's waits. Zero values pick the controller's
// defaults; tests shrink them.
type Timing struct {
	WaitTimeout     time.Duration
	PollInterval    time.Duration
	SummaryTimeout  time.Duration
	SummaryInterval time.Duration
}

func (t Timing) withDefaults(wait time.Duration) Timing {
	if t.WaitTimeout <= 0 {
		t.WaitTimeout = wait
	}
	if t.PollInterval <= 0 {
		t.PollInterval = 10 * time.Second
	}
	if t.SummaryTimeout <= 0 {
		t.SummaryTimeout = 3 * time.Minute
	}
	if t.SummaryInterval <= 0 {
		t.SummaryInterval = 2 * time.Second
	}
	return t
}

// Controller runs one research type end to end.
type Controller interface {
	Type() research.QueryType
	Run(ctx context.Context, q *research.Query)
}

// base holds the persistence and progress helpers shared by all controllers.
type base struct {
	deps Deps
}

func (b *base) logger() *slog.Logger {
	if b.deps.Logger == nil {
		return slog.Default()
	}
	return b.deps.Logger
}

// checkpoint persists a progress step while the query is running.
func (b *base) checkpoint(ctx context.Context, q *research.Query, progress int) {
	q.Status = research.StatusInProgress
	q.Progress = progress
	if err := b.deps.Store.UpdateQuery(ctx, q); err != nil {
		b.logger().Warn("progress checkpoint not persisted", "query_id", q.ID, "error", err)
	}
}

// fail captures the error message onto the query and marks it Failed.
// Datasets persisted before the failure stay queryable.
func (b *base) fail(ctx context.Context, q *research.Query, err error) {
	now := time.Now().UTC()
	q.Status = research.StatusFailed
	q.Error = err.Error()
	q.CompletedAt = &now
	if uerr := b.deps.Store.UpdateQuery(ctx, q); uerr != nil {
		b.logger().Error("failed query not persisted", "query_id", q.ID, "error", uerr)
	}
	metrics.WorkflowsTotal.WithLabelValues(string(q.Type), string(research.StatusFailed)).Inc()
	b.logger().Warn("workflow failed", "query_id", q.ID, "type", q.Type, "error", err)
}

// complete marks the query Completed at 100%.
func (b *base) complete(ctx context.Context, q *research.Query) {
	now := time.Now().UTC()
	q.Status = research.StatusCompleted
	q.Progress = 100
	q.CompletedAt = &now
	if err := b.deps.Store.UpdateQuery(ctx, q); err != nil {
		b.logger().Error("completed query not persisted", "query_id", q.ID, "error", err)
	}
	metrics.WorkflowsTotal.WithLabelValues(string(q.Type), string(research.StatusCompleted)).Inc()
	b.logger().Info("workflow completed", "query_id", q.ID, "type", q.Type)
}

// submitTask submits provider work through the orchestrator and records the
// Task row, carrying over the provider task id assigned at submission.
func (b *base) submitTask(ctx context.Context, q *research.Query, kind research.TaskKind, payloads []map[string]any) (string, error) {
	taskID, err := b.deps.Tasks.Submit(ctx, kind, payloads)
	if err != nil {
		return "", err
	}

	providerID, _ := b.deps.Tasks.ProviderTaskID(taskID)
	params, _ := json.Marshal(payloads)
	task := &research.Task{
		ID:             taskID,
		QueryID:        q.ID,
		Kind:           kind,
		Status:         research.StatusPending,
		Parameters:     params,
		ProviderTaskID: providerID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := b.deps.Store.CreateTask(ctx, task); err != nil {
		return "", fmt.Errorf("persist task: %w", err)
	}
	return taskID, nil
}

// collectResults waits for every task id and writes each task row's terminal
// state back through the store.
func (b *base) collectResults(ctx context.Context, q *research.Query, ids []string, timing Timing) (map[string]orchestrator.RawResult, error) {
	results, err := b.deps.Tasks.WaitForAll(ctx, ids, timing.WaitTimeout, timing.PollInterval)
	if err != nil {
		// Mark what we know: any task that did reach a terminal state.
		for _, id := range ids {
			if st, ok := b.deps.Tasks.Status(id); ok && st.Terminal() {
				b.finishTask(ctx, id, st, nil)
			}
		}
		return nil, err
	}

	for id, raw := range results {
		encoded, _ := json.Marshal(raw)
		b.finishTask(ctx, id, research.StatusCompleted, encoded)
	}
	return results, nil
}

func (b *base) finishTask(ctx context.Context, taskID string, status research.Status, result []byte) {
	now := time.Now().UTC()
	providerID, _ := b.deps.Tasks.ProviderTaskID(taskID)
	task := &research.Task{
		ID:             taskID,
		Status:         status,
		ProviderTaskID: providerID,
		Result:         result,
		CompletedAt:    &now,
	}
	if err := b.deps.Store.UpdateTask(ctx, task); err != nil {
		b.logger().Warn("task state not persisted", "task_id", taskID, "error", err)
	}
}

// saveDataset persists one immutable analytic snapshot.
func (b *base) saveDataset(ctx context.Context, q *research.Query, taskID, name string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode dataset %q: %w", name, err)
	}
	d := &research.Dataset{
		ID:        uuid.New().String(),
		QueryID:   q.ID,
		TaskID:    taskID,
		Name:      name,
		Data:      encoded,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.deps.Store.CreateDataset(ctx, d); err != nil {
		return fmt.Errorf("persist dataset %q: %w", name, err)
	}
	return nil
}

// summarizeAndPersist renders the template, runs one summarization job, and
// stores the resulting Insight.
func (b *base) summarizeAndPersist(ctx context.Context, q *research.Query, templateID string, vars map[string]string, timing Timing) error {
	jobID, err := b.deps.Summaries.Enqueue(templateID, vars)
	if err != nil {
		return err
	}

	outputs, err := b.deps.Summaries.WaitForAll(ctx, []string{jobID}, timing.SummaryTimeout, timing.SummaryInterval)
	if err != nil {
		return err
	}
	out := outputs[jobID]

	insight := &research.Insight{
		ID:              uuid.New().String(),
		QueryID:         q.ID,
		Summary:         out.Summary,
		Insights:        out.Insights,
		Recommendations: out.Recommendations,
		KeyMetrics:      out.KeyMetrics,
		NextSteps:       out.NextSteps,
		CreatedAt:       time.Now().UTC(),
	}
	if err := b.deps.Store.CreateInsight(ctx, insight); err != nil {
		return fmt.Errorf("persist insight: %w", err)
	}
	return nil
}
