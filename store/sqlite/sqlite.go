package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/multiagent/a2a"
)

// TaskStore implements a2a.TaskStore using SQLite
type TaskStore struct {
	db        *sql.DB
	tableName string
}

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "a2a_tasks"
}

// NewTaskStore opens the database and creates the task table
func NewTaskStore(opts SqliteOptions) (*TaskStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "a2a_tasks"
	}

	store := &TaskStore{
		db:        db,
		tableName: tableName,
	}

	if err := store.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *TaskStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL,
			state TEXT NOT NULL,
			result TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			completed_at TEXT NOT NULL DEFAULT '',
			metadata TEXT
		);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *TaskStore) Close() error {
	return s.db.Close()
}

// Save inserts or updates a task
func (s *TaskStore) Save(ctx context.Context, task *a2a.Task) error {
	metadataJSON, err := json.Marshal(task.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, description, state, result, error, created_at, completed_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			state = excluded.state,
			result = excluded.result,
			error = excluded.error,
			completed_at = excluded.completed_at,
			metadata = excluded.metadata
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.Description,
		string(task.State),
		task.Result,
		task.Error,
		task.CreatedAt,
		task.CompletedAt,
		string(metadataJSON),
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
		WHERE id = ?
	`, s.tableName)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	rows, err := s.db.QueryContext(ctx, query)
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
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*a2a.Task, error) {
	var task a2a.Task
	var state string
	var metadataJSON sql.NullString

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

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if task.Metadata == nil {
		task.Metadata = map[string]any{}
	}
	return &task, nil
}

var _ a2a.TaskStore = (*TaskStore)(nil)
