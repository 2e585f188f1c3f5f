// Package postgres provides a Postgres-backed Store using pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/internal/store"
)

// ensure pgStore implements store.Store
var _ store.Store = (*pgStore)(nil)

type pgStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS queries (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	parameters JSONB,
	status TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	query_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	parameters JSONB,
	provider_task_id TEXT,
	result JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_tasks_query ON tasks(query_id);
CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	query_id TEXT NOT NULL,
	task_id TEXT,
	name TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_datasets_query ON datasets(query_id);
CREATE TABLE IF NOT EXISTS insights (
	id TEXT PRIMARY KEY,
	query_id TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_insights_query ON insights(query_id);
`

// New creates a new Postgres-backed store.Store.
func New(ctx context.Context, dsn string) (store.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: init schema: %w", err)
	}

	return &pgStore{pool: pool}, nil
}

func (s *pgStore) CreateQuery(ctx context.Context, q *research.Query) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO queries (id, type, parameters, status, progress, error, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, string(q.Type), nullJSON(q.Parameters), string(q.Status), q.Progress, q.Error, q.CreatedAt, q.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create query: %w", err)
	}
	return nil
}

func (s *pgStore) UpdateQuery(ctx context.Context, q *research.Query) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE queries SET status = $1, progress = $2, error = $3, completed_at = $4 WHERE id = $5`,
		string(q.Status), q.Progress, q.Error, q.CompletedAt, q.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: update query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("query %s: %w", q.ID, research.ErrNotFound)
	}
	return nil
}

func (s *pgStore) GetQuery(ctx context.Context, id string) (*research.Query, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, type, parameters, status, progress, error, created_at, completed_at FROM queries WHERE id = $1`, id)

	var q research.Query
	var params []byte
	err := row.Scan(&q.ID, &q.Type, &params, &q.Status, &q.Progress, &q.Error, &q.CreatedAt, &q.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("query %s: %w", id, research.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get query: %w", err)
	}
	q.Parameters = params
	return &q, nil
}

func (s *pgStore) CreateTask(ctx context.Context, t *research.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, query_id, kind, status, parameters, provider_task_id, result, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.QueryID, string(t.Kind), string(t.Status), nullJSON(t.Parameters), t.ProviderTaskID, nullJSON(t.Result), t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create task: %w", err)
	}
	return nil
}

func (s *pgStore) UpdateTask(ctx context.Context, t *research.Task) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, provider_task_id = $2, result = $3, completed_at = $4 WHERE id = $5`,
		string(t.Status), t.ProviderTaskID, nullJSON(t.Result), t.CompletedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", t.ID, research.ErrNotFound)
	}
	return nil
}

func (s *pgStore) TasksByQuery(ctx context.Context, queryID string) ([]*research.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, query_id, kind, status, parameters, provider_task_id, result, created_at, completed_at
		 FROM tasks WHERE query_id = $1 ORDER BY created_at`, queryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: tasks by query: %w", err)
	}
	defer rows.Close()

	var tasks []*research.Task
	for rows.Next() {
		var t research.Task
		var params, result []byte
		if err := rows.Scan(&t.ID, &t.QueryID, &t.Kind, &t.Status, &params, &t.ProviderTaskID, &result, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan task: %w", err)
		}
		t.Parameters = params
		t.Result = result
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (s *pgStore) CreateDataset(ctx context.Context, d *research.Dataset) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO datasets (id, query_id, task_id, name, data, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.QueryID, d.TaskID, d.Name, []byte(d.Data), d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create dataset: %w", err)
	}
	return nil
}

func (s *pgStore) DatasetsByQuery(ctx context.Context, queryID string) ([]*research.Dataset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, query_id, task_id, name, data, created_at FROM datasets WHERE query_id = $1 ORDER BY created_at`, queryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: datasets by query: %w", err)
	}
	defer rows.Close()

	var datasets []*research.Dataset
	for rows.Next() {
		var d research.Dataset
		var data []byte
		if err := rows.Scan(&d.ID, &d.QueryID, &d.TaskID, &d.Name, &data, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan dataset: %w", err)
		}
		d.Data = data
		datasets = append(datasets, &d)
	}
	return datasets, rows.Err()
}

func (s *pgStore) CreateInsight(ctx context.Context, i *research.Insight) error {
	payload, err := json.Marshal(i)
	if err != nil {
		return fmt.Errorf("postgres: encode insight: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO insights (id, query_id, payload, created_at) VALUES ($1, $2, $3, $4)`,
		i.ID, i.QueryID, payload, i.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create insight: %w", err)
	}
	return nil
}

func (s *pgStore) InsightByQuery(ctx context.Context, queryID string) (*research.Insight, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT payload FROM insights WHERE query_id = $1 ORDER BY created_at DESC LIMIT 1`, queryID)

	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insight for query %s: %w", queryID, research.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: insight by query: %w", err)
	}

	var i research.Insight
	if err := json.Unmarshal(payload, &i); err != nil {
		return nil, fmt.Errorf("postgres: decode insight: %w", err)
	}
	return &i, nil
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

// nullJSON maps empty raw JSON onto SQL NULL so JSONB columns never see "".
func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
