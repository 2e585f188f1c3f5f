// Package orchestrator owns the registry of in-flight provider tasks. It
// checks the rate limiter before every submission, records each task's kind
// so result lookups dispatch straight to the matching endpoint, serves
// cached results for completed tasks, and sweeps pending work in the
// background so state stays fresh between caller polls.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rankscout/rankscout/internal/adapter"
	"github.com/rankscout/rankscout/internal/metrics"
	"github.com/rankscout/rankscout/internal/provider"
	"github.com/rankscout/rankscout/internal/registry"
	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/pkg/ratelimit"
)

// RawResult is the provider's result payload for one task, kept verbatim so
// adapters can normalize it per kind.
type RawResult []map[string]any

// Config tunes the orchestrator's background behavior.
type Config struct {
	// SweepInterval is how often pending tasks are advanced without an
	// active waiter. Defaults to 30s.
	SweepInterval time.Duration
	// Retention is how long terminal entries stay in the registry before
	// the sweep evicts them. Defaults to 1h.
	Retention time.Duration
}

// Orchestrator tracks provider tasks from submission to terminal state.
type Orchestrator struct {
	cfg     Config
	client  *provider.Client
	limiter *ratelimit.Limiter
	ledger  *registry.Ledger[RawResult]
	logger  *slog.Logger

	metaMu sync.RWMutex
	meta   map[string]taskMeta
}

// taskMeta is the submission-time record that makes result dispatch a direct
// lookup instead of a probe across every endpoint.
type taskMeta struct {
	kind           research.TaskKind
	providerTaskID string
}

// New creates an orchestrator. The limiter and client are required; a nil
// logger falls back to slog.Default().
func New(client *provider.Client, limiter *ratelimit.Limiter, logger *slog.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}

	return &Orchestrator{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		ledger:  registry.NewLedger[RawResult](),
		logger:  logger,
		meta:    make(map[string]taskMeta),
	}
}

// Submit posts one task batch to the provider endpoint for kind and
// registers a Pending entry. The rate limiter is consulted first: a denied
// submission returns research.ErrRateLimited without creating anything.
func (o *Orchestrator) Submit(ctx context.Context, kind research.TaskKind, payloads []map[string]any) (string, error) {
	endpoint := adapter.EndpointFor(kind)
	if endpoint == "" {
		return "", &research.ValidationError{Reason: fmt.Sprintf("unknown task kind %q", kind)}
	}

	if err := o.limiter.Acquire(); err != nil {
		metrics.RateLimitRejections.Inc()
		return "", fmt.Errorf("%w: %s", research.ErrRateLimited, kind)
	}

	resp, err := o.client.Submit(ctx, endpoint, payloads)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return "", err
	}
	metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "ok").Inc()

	if len(resp.Tasks) == 0 {
		return "", &research.ProviderError{Endpoint: endpoint, Code: resp.StatusCode, Message: "submission returned no tasks"}
	}
	submitted := resp.Tasks[0]
	if o.client.IsError(submitted) {
		return "", &research.ProviderError{Endpoint: endpoint, Code: submitted.StatusCode, Message: submitted.StatusMessage}
	}

	id := o.ledger.Register(string(kind))
	o.metaMu.Lock()
	o.meta[id] = taskMeta{kind: kind, providerTaskID: submitted.ID}
	o.metaMu.Unlock()

	o.logger.Debug("task submitted", "task_id", id, "kind", kind, "provider_task_id", submitted.ID)
	return id, nil
}

// Status returns the task's current status, or false for unknown ids.
func (o *Orchestrator) Status(id string) (research.Status, bool) {
	return o.ledger.Status(id)
}

// ProviderTaskID returns the provider-side id recorded at submission.
func (o *Orchestrator) ProviderTaskID(id string) (string, bool) {
	o.metaMu.RLock()
	defer o.metaMu.RUnlock()
	m, ok := o.meta[id]
	return m.providerTaskID, ok
}

// Result returns the task's result. Completed tasks are served from the
// registry without touching the provider; otherwise the provider is queried
// through the endpoint recorded for the task's kind. The second return is
// false while the task is still pending.
func (o *Orchestrator) Result(ctx context.Context, id string) (RawResult, bool, error) {
	entry, ok := o.ledger.Get(id)
	if !ok {
		return nil, false, fmt.Errorf("task %s: %w", id, research.ErrNotFound)
	}

	switch entry.Status {
	case research.StatusCompleted:
		return entry.Result, true, nil
	case research.StatusFailed:
		return nil, false, &research.ProviderError{Endpoint: entry.Kind, Message: entry.Err}
	}

	o.metaMu.RLock()
	m := o.meta[id]
	o.metaMu.RUnlock()

	endpoint := adapter.EndpointFor(m.kind)
	resp, err := o.client.Fetch(ctx, endpoint, m.providerTaskID)
	if err != nil {
		return nil, false, err
	}
	metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "ok").Inc()

	if len(resp.Tasks) == 0 {
		return nil, false, nil
	}
	task := resp.Tasks[0]

	switch {
	case o.client.IsComplete(task):
		o.ledger.Complete(id, task.Result, task.Cost)
		metrics.RecordTaskDone(string(m.kind), entry.CreatedAt, task.Cost)
		return task.Result, true, nil
	case o.client.IsError(task):
		o.ledger.Fail(id, task.StatusMessage)
		metrics.RecordTaskDone(string(m.kind), entry.CreatedAt, task.Cost)
		return nil, false, &research.ProviderError{Endpoint: endpoint, Code: task.StatusCode, Message: task.StatusMessage}
	default:
		o.ledger.MarkInProgress(id)
		return nil, false, nil
	}
}

// WaitForAll polls every id until all have results or the timeout elapses.
// It either returns a complete map or an error, never a partial map.
func (o *Orchestrator) WaitForAll(ctx context.Context, ids []string, timeout, pollInterval time.Duration) (map[string]RawResult, error) {
	return o.ledger.WaitForAll(ctx, "orchestrator.WaitForAll", ids, timeout, pollInterval, o.Result)
}

// EvictCompleted removes terminal entries older than the retention window
// and forgets their submission metadata.
func (o *Orchestrator) EvictCompleted(olderThan time.Duration) int {
	n := o.ledger.EvictTerminal(olderThan)
	if n > 0 {
		o.metaMu.Lock()
		for id := range o.meta {
			if _, ok := o.ledger.Get(id); !ok {
				delete(o.meta, id)
			}
		}
		o.metaMu.Unlock()
	}
	return n
}

// Run drives the periodic sweep until the context is canceled: it advances
// every unresolved task and evicts old terminal entries, so statuses stay
// fresh even when nobody is waiting.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sweep(ctx)
		}
	}
}

func (o *Orchestrator) sweep(ctx context.Context) {
	for _, id := range o.ledger.Unresolved() {
		if _, _, err := o.Result(ctx, id); err != nil {
			o.logger.Warn("sweep: task advance failed", "task_id", id, "error", err)
		}
	}
	if n := o.EvictCompleted(o.cfg.Retention); n > 0 {
		o.logger.Debug("sweep: evicted terminal tasks", "count", n)
	}
}
