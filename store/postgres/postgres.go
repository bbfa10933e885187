package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/multiagent/a2a"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// TaskStore implements a2a.TaskStore using PostgreSQL
type TaskStore struct {
	pool      DBPool
	tableName string
}

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "a2a_tasks"
}

// NewTaskStore creates a new Postgres task store
func NewTaskStore(ctx context.Context, opts PostgresOptions) (*TaskStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewTaskStoreWithPool(pool, opts.TableName), nil
}

// NewTaskStoreWithPool creates a task store over an existing pool
func NewTaskStoreWithPool(pool DBPool, tableName string) *TaskStore {
	if tableName == "" {
		tableName = "a2a_tasks"
	}
	return &TaskStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *TaskStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			state TEXT NOT NULL,
			result TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			completed_at TEXT NOT NULL DEFAULT '',
			metadata JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_%s_seq ON %s (seq);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *TaskStore) Close() {
	s.pool.Close()
}

// Save inserts or updates a task. The sequence column keeps the first
// insertion order.
func (s *TaskStore) Save(ctx context.Context, task *a2a.Task) error {
	metadataJSON, err := json.Marshal(task.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, description, state, result, error, created_at, completed_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			state = EXCLUDED.state,
			result = EXCLUDED.result,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at,
			metadata = EXCLUDED.metadata
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		task.ID,
		task.Description,
		string(task.State),
		task.Result,
		task.Error,
		task.CreatedAt,
		task.CompletedAt,
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// Load retrieves a task by ID
func (s *TaskStore) Load(ctx context.Context, id string) (*a2a.Task, error) {
	query := fmt.Sprintf(`
		SELECT id, description, state, result, error, created_at, completed_at, metadata
		FROM %s
		WHERE id = $1
	`, s.tableName)

	task, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", a2a.ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

// List returns all tasks in creation order
func (s *TaskStore) List(ctx context.Context) ([]*a2a.Task, error) {
	query := fmt.Sprintf(`
		SELECT id, description, state, result, error, created_at, completed_at, metadata
		FROM %s
		ORDER BY seq ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*a2a.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// Delete removes a task
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func scanTask(row pgx.Row) (*a2a.Task, error) {
	var task a2a.Task
	var state string
	var metadataJSON []byte

	err := row.Scan(
		&task.ID,
		&task.Description,
		&state,
		&task.Result,
		&task.Error,
		&task.CreatedAt,
		&task.CompletedAt,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}
	task.State = a2a.TaskState(state)

	task.Metadata = map[string]any{}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		if task.Metadata == nil {
			task.Metadata = map[string]any{}
		}
	}
	return &task, nil
}

var _ a2a.TaskStore = (*TaskStore)(nil)
