package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rankscout/rankscout/internal/registry"
	"github.com/rankscout/rankscout/internal/research"
)

// QueueConfig tunes the job queue.
type QueueConfig struct {
	// JobTimeout bounds one backend call. Defaults to 2m.
	JobTimeout time.Duration
	// Retention is how long terminal jobs stay queryable. Defaults to 1h.
	Retention time.Duration
}

// Queue tracks summarization jobs through the shared async ledger. A job is
// registered Pending, moves to in-progress when its goroutine dispatches the
// backend call, and lands Completed with output or Failed with an error.
type Queue struct {
	cfg       QueueConfig
	backend   Backend
	templates *TemplateStore
	ledger    *registry.Ledger[*Output]
	logger    *slog.Logger
}

// NewQueue creates a queue over the given backend and template store. A nil
// logger falls back to slog.Default().
func NewQueue(backend Backend, templates *TemplateStore, logger *slog.Logger, cfg QueueConfig) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	return &Queue{
		cfg:       cfg,
		backend:   backend,
		templates: templates,
		ledger:    registry.NewLedger[*Output](),
		logger:    logger,
	}
}

// Enqueue renders the template and starts the backend call. Validation
// failures (unknown template, missing variables) return before any job is
// created. The returned id is immediately pollable.
func (q *Queue) Enqueue(templateID string, vars map[string]string) (string, error) {
	system, prompt, err := q.templates.Render(templateID, vars)
	if err != nil {
		return "", err
	}

	id := q.ledger.Register(templateID)

	go func() {
		q.ledger.MarkInProgress(id)

		ctx, cancel := context.WithTimeout(context.Background(), q.cfg.JobTimeout)
		defer cancel()

		out, err := q.backend.Summarize(ctx, system, prompt)
		if err != nil {
			q.logger.Warn("summarization job failed", "job_id", id, "template", templateID, "error", err)
			q.ledger.Fail(id, err.Error())
			return
		}
		q.ledger.Complete(id, out, 0)
	}()

	return id, nil
}

// Status returns the job's current status, or false for unknown ids.
func (q *Queue) Status(id string) (research.Status, bool) {
	return q.ledger.Status(id)
}

// Result returns the job's output once it is done. A failed job returns its
// recorded error; a pending job returns (nil, false, nil).
func (q *Queue) Result(ctx context.Context, id string) (*Output, bool, error) {
	entry, ok := q.ledger.Get(id)
	if !ok {
		return nil, false, fmt.Errorf("job %s: %w", id, research.ErrNotFound)
	}
	switch entry.Status {
	case research.StatusCompleted:
		return entry.Result, true, nil
	case research.StatusFailed:
		return nil, false, fmt.Errorf("summarization job %s failed: %s", id, entry.Err)
	default:
		return nil, false, nil
	}
}

// WaitForAll polls every job id until all complete or the timeout elapses.
// Identical contract to the orchestrator's WaitForAll: a complete map or an
// error, never a partial map.
func (q *Queue) WaitForAll(ctx context.Context, ids []string, timeout, pollInterval time.Duration) (map[string]*Output, error) {
	return q.ledger.WaitForAll(ctx, "summarize.WaitForAll", ids, timeout, pollInterval, q.Result)
}

// EvictCompleted removes terminal jobs older than the retention window.
func (q *Queue) EvictCompleted(olderThan time.Duration) int {
	return q.ledger.EvictTerminal(olderThan)
}
