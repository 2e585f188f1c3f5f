// Package memory provides a process-local Store backed by go-cache. Records
// never expire by default; the cache gives cheap keyed storage plus optional
// TTL-based cleanup for throwaway deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/internal/store"
)

var _ store.Store = (*Memory)(nil)

// Memory is an in-memory Store. Safe for concurrent use.
type Memory struct {
	cache *gocache.Cache
}

// New creates a memory store whose records never expire.
func New() *Memory {
	return &Memory{cache: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

// NewWithTTL creates a memory store whose records expire after ttl, purged
// every sweep interval. Used where the caller wants bounded memory without
// an external database.
func NewWithTTL(ttl, sweep time.Duration) *Memory {
	return &Memory{cache: gocache.New(ttl, sweep)}
}

func queryKey(id string) string   { return "query:" + id }
func taskKey(id string) string    { return "task:" + id }
func datasetKey(id string) string { return "dataset:" + id }
func insightKey(id string) string { return "insight:" + id }

func (m *Memory) CreateQuery(ctx context.Context, q *research.Query) error {
	cp := *q
	m.cache.Set(queryKey(q.ID), &cp, gocache.DefaultExpiration)
	return nil
}

// UpdateQuery patches the mutable fields only, matching the SQL backends.
func (m *Memory) UpdateQuery(ctx context.Context, q *research.Query) error {
	v, ok := m.cache.Get(queryKey(q.ID))
	if !ok {
		return fmt.Errorf("query %s: %w", q.ID, research.ErrNotFound)
	}
	cur := *v.(*research.Query)
	cur.Status = q.Status
	cur.Progress = q.Progress
	cur.Error = q.Error
	cur.CompletedAt = q.CompletedAt
	m.cache.Set(queryKey(q.ID), &cur, gocache.DefaultExpiration)
	return nil
}

func (m *Memory) GetQuery(ctx context.Context, id string) (*research.Query, error) {
	v, ok := m.cache.Get(queryKey(id))
	if !ok {
		return nil, fmt.Errorf("query %s: %w", id, research.ErrNotFound)
	}
	cp := *v.(*research.Query)
	return &cp, nil
}

func (m *Memory) CreateTask(ctx context.Context, t *research.Task) error {
	cp := *t
	m.cache.Set(taskKey(t.ID), &cp, gocache.DefaultExpiration)
	return nil
}

// UpdateTask patches the mutable fields only, matching the SQL backends.
func (m *Memory) UpdateTask(ctx context.Context, t *research.Task) error {
	v, ok := m.cache.Get(taskKey(t.ID))
	if !ok {
		return fmt.Errorf("task %s: %w", t.ID, research.ErrNotFound)
	}
	cur := *v.(*research.Task)
	cur.Status = t.Status
	cur.ProviderTaskID = t.ProviderTaskID
	cur.Result = t.Result
	cur.CompletedAt = t.CompletedAt
	m.cache.Set(taskKey(t.ID), &cur, gocache.DefaultExpiration)
	return nil
}

func (m *Memory) TasksByQuery(ctx context.Context, queryID string) ([]*research.Task, error) {
	var tasks []*research.Task
	for key, item := range m.cache.Items() {
		if !strings.HasPrefix(key, "task:") {
			continue
		}
		t := item.Object.(*research.Task)
		if t.QueryID == queryID {
			cp := *t
			tasks = append(tasks, &cp)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

func (m *Memory) CreateDataset(ctx context.Context, d *research.Dataset) error {
	cp := *d
	m.cache.Set(datasetKey(d.ID), &cp, gocache.DefaultExpiration)
	return nil
}

func (m *Memory) DatasetsByQuery(ctx context.Context, queryID string) ([]*research.Dataset, error) {
	var datasets []*research.Dataset
	for key, item := range m.cache.Items() {
		if !strings.HasPrefix(key, "dataset:") {
			continue
		}
		d := item.Object.(*research.Dataset)
		if d.QueryID == queryID {
			cp := *d
			datasets = append(datasets, &cp)
		}
	}
	sort.Slice(datasets, func(i, j int) bool { return datasets[i].CreatedAt.Before(datasets[j].CreatedAt) })
	return datasets, nil
}

func (m *Memory) CreateInsight(ctx context.Context, i *research.Insight) error {
	cp := *i
	m.cache.Set(insightKey(i.ID), &cp, gocache.DefaultExpiration)
	return nil
}

func (m *Memory) InsightByQuery(ctx context.Context, queryID string) (*research.Insight, error) {
	for key, item := range m.cache.Items() {
		if !strings.HasPrefix(key, "insight:") {
			continue
		}
		ins := item.Object.(*research.Insight)
		if ins.QueryID == queryID {
			cp := *ins
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("insight for query %s: %w", queryID, research.ErrNotFound)
}

func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}
