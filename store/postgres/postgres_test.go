package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/smallnest/multiagent/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskColumns = []string{"id", "description", "state", "result", "error", "created_at", "completed_at", "metadata"}

func TestTaskStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTaskStoreWithPool(mock, "")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS a2a_tasks")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, store.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTaskStoreWithPool(mock, "tasks")

	task := a2a.NewTask("write a parser", map[string]any{"lang": "go"})
	task.State = a2a.TaskStateCompleted
	task.Result = "done"
	metadataJSON, _ := json.Marshal(task.Metadata)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(
			task.ID,
			"write a parser",
			"completed",
			"done",
			"",
			task.CreatedAt,
			"",
			metadataJSON,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, store.Save(context.Background(), task))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_Save_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTaskStoreWithPool(mock, "tasks")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WillReturnError(errors.New("connection refused"))

	err = store.Save(context.Background(), a2a.NewTask("x", nil))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save task")
}

func TestTaskStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTaskStoreWithPool(mock, "tasks")

	rows := pgxmock.NewRows(taskColumns).
		AddRow("task-1", "summarize", "failed", "", "model offline", "2025-01-01T00:00:00Z", "2025-01-01T00:01:00Z", []byte(`{"priority":"high"}`))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, description, state, result, error, created_at, completed_at, metadata FROM tasks WHERE id = $1")).
		WithArgs("task-1").
		WillReturnRows(rows)

	task, err := store.Load(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, "summarize", task.Description)
	assert.Equal(t, a2a.TaskStateFailed, task.State)
	assert.Equal(t, "model offline", task.Error)
	assert.Equal(t, "high", task.Metadata["priority"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_Load_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTaskStoreWithPool(mock, "tasks")

	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, a2a.ErrTaskNotFound)
}

func TestTaskStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTaskStoreWithPool(mock, "tasks")

	rows := pgxmock.NewRows(taskColumns).
		AddRow("a", "first", "completed", "ok", "", "t1", "t2", []byte(`{}`)).
		AddRow("b", "second", "pending", "", "", "t3", "", []byte(nil))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY seq ASC")).
		WillReturnRows(rows)

	tasks, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, a2a.TaskStatePending, tasks[1].State)
	assert.NotNil(t, tasks[1].Metadata)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_List_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTaskStoreWithPool(mock, "tasks")
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks")).
		WillReturnRows(pgxmock.NewRows(taskColumns))

	tasks, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)
}

func TestTaskStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewTaskStoreWithPool(mock, "tasks")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1")).
		WithArgs("task-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, store.Delete(context.Background(), "task-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
