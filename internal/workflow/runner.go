package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/internal/store"
)

// DefaultMaxConcurrent bounds how many workflows run at once. Each workflow
// holds provider tasks open for minutes, so the ceiling stays low.
const DefaultMaxConcurrent = 8

// Runner accepts research requests, persists them Pending, and dispatches
// the matching controller on a bounded worker group.
type Runner struct {
	store       store.Store
	controllers map[research.QueryType]Controller
	group       *errgroup.Group
	logger      *slog.Logger
}

// NewRunner builds a runner over the given controllers. maxConcurrent <= 0
// picks DefaultMaxConcurrent.
func NewRunner(st store.Store, controllers []Controller, maxConcurrent int, logger *slog.Logger) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = slog.Default()
	}

	byType := make(map[research.QueryType]Controller, len(controllers))
	for _, c := range controllers {
		byType[c.Type()] = c
	}

	g := &errgroup.Group{}
	g.SetLimit(maxConcurrent)
	return &Runner{store: st, controllers: byType, group: g, logger: logger}
}

// Start validates the request, persists a Pending query, and launches its
// workflow. The returned id is immediately queryable; callers poll the store
// for progress.
func (r *Runner) Start(ctx context.Context, qt research.QueryType, params json.RawMessage) (string, error) {
	controller, ok := r.controllers[qt]
	if !ok {
		return "", &research.ValidationError{Reason: fmt.Sprintf("unknown research type %q", qt)}
	}

	q := &research.Query{
		ID:         uuid.New().String(),
		Type:       qt,
		Parameters: params,
		Status:     research.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.CreateQuery(ctx, q); err != nil {
		return "", fmt.Errorf("persist query: %w", err)
	}

	r.logger.Info("research started", "query_id", q.ID, "type", qt)
	r.group.Go(func() error {
		// Workflows outlive the request context.
		controller.Run(context.Background(), q)
		return nil
	})
	return q.ID, nil
}

// Status returns the query row as the store currently sees it.
func (r *Runner) Status(ctx context.Context, queryID string) (*research.Query, error) {
	return r.store.GetQuery(ctx, queryID)
}

// Result bundles everything a finished (or failing) query produced.
type Result struct {
	Query    *research.Query     `json:"query"`
	Tasks    []*research.Task    `json:"tasks,omitempty"`
	Datasets []*research.Dataset `json:"datasets,omitempty"`
	Insight  *research.Insight   `json:"insight,omitempty"`
}

// Result assembles the query with its tasks, datasets, and insight. Datasets
// persisted before a later failure are still returned.
func (r *Runner) Result(ctx context.Context, queryID string) (*Result, error) {
	q, err := r.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}

	res := &Result{Query: q}
	if res.Tasks, err = r.store.TasksByQuery(ctx, queryID); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	if res.Datasets, err = r.store.DatasetsByQuery(ctx, queryID); err != nil {
		return nil, fmt.Errorf("load datasets: %w", err)
	}

	insight, err := r.store.InsightByQuery(ctx, queryID)
	switch {
	case err == nil:
		res.Insight = insight
	case !research.IsNotFound(err):
		return nil, fmt.Errorf("load insight: %w", err)
	}
	return res, nil
}

// Wait blocks until every dispatched workflow has finished. Used on
// shutdown and in tests.
func (r *Runner) Wait() {
	_ = r.group.Wait()
}
