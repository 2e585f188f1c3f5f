// Package sqlite provides a SQLite-backed Store for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/internal/store"
)

// ensure sqliteStore implements store.Store
var _ store.Store = (*sqliteStore)(nil)

type sqliteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS queries (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	parameters TEXT,
	status TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	created_at DATETIME NOT NULL,
	completed_at DATETIME
);
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	query_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	parameters TEXT,
	provider_task_id TEXT,
	result TEXT,
	created_at DATETIME NOT NULL,
	completed_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_tasks_query ON tasks(query_id);
CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	query_id TEXT NOT NULL,
	task_id TEXT,
	name TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_datasets_query ON datasets(query_id);
CREATE TABLE IF NOT EXISTS insights (
	id TEXT PRIMARY KEY,
	query_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_insights_query ON insights(query_id);
`

// New creates a new SQLite-backed store.Store.
func New(dsn string) (store.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) CreateQuery(ctx context.Context, q *research.Query) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (id, type, parameters, status, progress, error, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, string(q.Type), string(q.Parameters), string(q.Status), q.Progress, q.Error, q.CreatedAt, q.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create query: %w", err)
	}
	return nil
}

func (s *sqliteStore) UpdateQuery(ctx context.Context, q *research.Query) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queries SET status = ?, progress = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(q.Status), q.Progress, q.Error, q.CompletedAt, q.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update query: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("query %s: %w", q.ID, research.ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) GetQuery(ctx context.Context, id string) (*research.Query, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, parameters, status, progress, error, created_at, completed_at FROM queries WHERE id = ?`, id)

	var q research.Query
	var params, errMsg sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&q.ID, &q.Type, &params, &q.Status, &q.Progress, &errMsg, &q.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query %s: %w", id, research.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get query: %w", err)
	}
	if params.Valid {
		q.Parameters = []byte(params.String)
	}
	q.Error = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		q.CompletedAt = &t
	}
	return &q, nil
}

func (s *sqliteStore) CreateTask(ctx context.Context, t *research.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, query_id, kind, status, parameters, provider_task_id, result, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.QueryID, string(t.Kind), string(t.Status), string(t.Parameters), t.ProviderTaskID, string(t.Result), t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create task: %w", err)
	}
	return nil
}

func (s *sqliteStore) UpdateTask(ctx context.Context, t *research.Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, provider_task_id = ?, result = ?, completed_at = ? WHERE id = ?`,
		string(t.Status), t.ProviderTaskID, string(t.Result), t.CompletedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, research.ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) TasksByQuery(ctx context.Context, queryID string) ([]*research.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_id, kind, status, parameters, provider_task_id, result, created_at, completed_at
		 FROM tasks WHERE query_id = ? ORDER BY created_at`, queryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: tasks by query: %w", err)
	}
	defer rows.Close()

	var tasks []*research.Task
	for rows.Next() {
		var t research.Task
		var params, result, providerID sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.QueryID, &t.Kind, &t.Status, &params, &providerID, &result, &t.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan task: %w", err)
		}
		if params.Valid {
			t.Parameters = []byte(params.String)
		}
		if result.Valid && result.String != "" {
			t.Result = []byte(result.String)
		}
		t.ProviderTaskID = providerID.String
		if completedAt.Valid {
			ct := completedAt.Time
			t.CompletedAt = &ct
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (s *sqliteStore) CreateDataset(ctx context.Context, d *research.Dataset) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, query_id, task_id, name, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.QueryID, d.TaskID, d.Name, string(d.Data), d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create dataset: %w", err)
	}
	return nil
}

func (s *sqliteStore) DatasetsByQuery(ctx context.Context, queryID string) ([]*research.Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_id, task_id, name, data, created_at FROM datasets WHERE query_id = ? ORDER BY created_at`, queryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: datasets by query: %w", err)
	}
	defer rows.Close()

	var datasets []*research.Dataset
	for rows.Next() {
		var d research.Dataset
		var taskID sql.NullString
		var data string
		if err := rows.Scan(&d.ID, &d.QueryID, &taskID, &d.Name, &data, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan dataset: %w", err)
		}
		d.TaskID = taskID.String
		d.Data = []byte(data)
		datasets = append(datasets, &d)
	}
	return datasets, rows.Err()
}

func (s *sqliteStore) CreateInsight(ctx context.Context, i *research.Insight) error {
	payload, err := insightPayload(i)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO insights (id, query_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		i.ID, i.QueryID, payload, i.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create insight: %w", err)
	}
	return nil
}

func (s *sqliteStore) InsightByQuery(ctx context.Context, queryID string) (*research.Insight, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM insights WHERE query_id = ? ORDER BY created_at DESC LIMIT 1`, queryID)

	var payload string
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insight for query %s: %w", queryID, research.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: insight by query: %w", err)
	}
	return insightFromPayload(payload)
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// Insights are stored as one JSON payload column: the struct is read back
// whole, never queried by field.
func insightPayload(i *research.Insight) (string, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode insight: %w", err)
	}
	return string(b), nil
}

func insightFromPayload(payload string) (*research.Insight, error) {
	var i research.Insight
	if err := json.Unmarshal([]byte(payload), &i); err != nil {
		return nil, fmt.Errorf("sqlite: decode insight: %w", err)
	}
	return &i, nil
}
