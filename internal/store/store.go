// Package store defines the persistence contract for queries, tasks,
// datasets, and insights, with interchangeable backends. The engine only
// needs create, update-by-id, and read-by-id semantics; workflows write
// through on every status transition.
package store

import (
	"context"

	"github.com/rankscout/rankscout/internal/research"
)

// Store is the CRUD contract the workflow controllers persist through.
// Implementations return research.ErrNotFound (possibly wrapped) for
// unknown ids.
type Store interface {
	CreateQuery(ctx context.Context, q *research.Query) error
	UpdateQuery(ctx context.Context, q *research.Query) error
	GetQuery(ctx context.Context, id string) (*research.Query, error)

	CreateTask(ctx context.Context, t *research.Task) error
	UpdateTask(ctx context.Context, t *research.Task) error
	TasksByQuery(ctx context.Context, queryID string) ([]*research.Task, error)

	CreateDataset(ctx context.Context, d *research.Dataset) error
	DatasetsByQuery(ctx context.Context, queryID string) ([]*research.Dataset, error)

	CreateInsight(ctx context.Context, i *research.Insight) error
	InsightByQuery(ctx context.Context, queryID string) (*research.Insight, error)

	Close() error
}
