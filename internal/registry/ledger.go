// Package registry provides the in-memory ledger of asynchronous jobs shared
// by the task orchestrator and the summarization queue. One generic
// implementation covers both: register an entry, advance its status, wait on
// a set of ids, evict old terminal entries.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rankscout/rankscout/internal/research"
)

// Entry is one tracked job. R is the resolved result type.
type Entry[R any] struct {
	ID          string
	Kind        string
	Status      research.Status
	Cost        float64
	Err         string
	CreatedAt   time.Time
	CompletedAt time.Time
	Result      R
}

// Ledger tracks in-flight entries keyed by internal id. All state lives in
// process memory and is guarded by a mutex; nothing survives a restart.
type Ledger[R any] struct {
	mu      sync.RWMutex
	entries map[string]*Entry[R]
}

// NewLedger creates an empty ledger.
func NewLedger[R any]() *Ledger[R] {
	return &Ledger[R]{entries: make(map[string]*Entry[R])}
}

// Register adds a Pending entry and returns its generated id.
func (l *Ledger[R]) Register(kind string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := uuid.New().String()
	l.entries[id] = &Entry[R]{
		ID:        id,
		Kind:      kind,
		Status:    research.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	return id
}

// Get returns a copy of the entry, or false for unknown ids.
func (l *Ledger[R]) Get(id string) (Entry[R], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[id]
	if !ok {
		return Entry[R]{}, false
	}
	return *e, true
}

// Status returns the entry's status, or false for unknown ids.
func (l *Ledger[R]) Status(id string) (research.Status, bool) {
	e, ok := l.Get(id)
	if !ok {
		return "", false
	}
	return e.Status, true
}

// MarkInProgress moves a Pending entry forward. Terminal entries are left
// untouched.
func (l *Ledger[R]) MarkInProgress(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[id]; ok && !e.Status.Terminal() {
		e.Status = research.StatusInProgress
	}
}

// Complete stores the result and marks the entry Completed. Once terminal
// the entry never changes again, so repeated completes are ignored.
func (l *Ledger[R]) Complete(id string, result R, cost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok || e.Status.Terminal() {
		return
	}
	e.Status = research.StatusCompleted
	e.Result = result
	e.Cost = cost
	e.CompletedAt = time.Now().UTC()
}

// Fail marks the entry Failed with the given message.
func (l *Ledger[R]) Fail(id string, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok || e.Status.Terminal() {
		return
	}
	e.Status = research.StatusFailed
	e.Err = msg
	e.CompletedAt = time.Now().UTC()
}

// Unresolved returns the ids of entries not yet in a terminal state.
func (l *Ledger[R]) Unresolved() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ids []string
	for id, e := range l.entries {
		if !e.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// EvictTerminal removes Completed/Failed entries older than the retention
// window and returns how many were dropped. Pending work is never evicted.
func (l *Ledger[R]) EvictTerminal(olderThan time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	evicted := 0
	for id, e := range l.entries {
		if e.Status.Terminal() && e.CompletedAt.Before(cutoff) {
			delete(l.entries, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of tracked entries.
func (l *Ledger[R]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Resolver advances one entry toward completion. It returns the result and
// true once the entry is done; (zero, false, nil) means still pending. An
// error fails the wait immediately.
type Resolver[R any] func(ctx context.Context, id string) (R, bool, error)

// WaitForAll polls every unresolved id with the resolver until all ids have
// a result or the timeout elapses. It aggregates by id, not arrival order,
// and never returns a partial map: on timeout it returns a
// research.TimeoutError naming the unresolved ids.
func (l *Ledger[R]) WaitForAll(ctx context.Context, op string, ids []string, timeout, pollInterval time.Duration, resolve Resolver[R]) (map[string]R, error) {
	deadline := time.Now().Add(timeout)
	results := make(map[string]R, len(ids))

	for {
		for _, id := range ids {
			if _, done := results[id]; done {
				continue
			}
			res, done, err := resolve(ctx, id)
			if err != nil {
				return nil, err
			}
			if done {
				results[id] = res
			}
		}
		if len(results) == len(ids) {
			return results, nil
		}

		if time.Now().After(deadline) {
			var pending []string
			for _, id := range ids {
				if _, done := results[id]; !done {
					pending = append(pending, id)
				}
			}
			return nil, &research.TimeoutError{Op: op, Pending: pending}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
