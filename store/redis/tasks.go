package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/multiagent/a2a"
)

// TaskStore implements a2a.TaskStore using Redis
type TaskStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewTaskStore creates a new Redis task store
func NewTaskStore(opts RedisOptions) *TaskStore {
	return &TaskStore{
		client: NewClient(opts),
		prefix: prefixOf(opts),
		ttl:    opts.TTL,
	}
}

func (s *TaskStore) taskKey(id string) string {
	return fmt.Sprintf("%stask:%s", s.prefix, id)
}

func (s *TaskStore) indexKey() string {
	return s.prefix + "tasks"
}

// Save stores a task. The creation order index is only written once.
func (s *TaskStore) Save(ctx context.Context, task *a2a.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.taskKey(task.ID), data, s.ttl)
	pipe.ZAddNX(ctx, s.indexKey(), redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: task.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save task to redis: %w", err)
	}
	return nil
}

// Load retrieves a task by ID
func (s *TaskStore) Load(ctx context.Context, id string) (*a2a.Task, error) {
	data, err := s.client.Get(ctx, s.taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", a2a.ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("failed to load task from redis: %w", err)
	}

	var task a2a.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// List returns all tasks that have not expired, oldest first
func (s *TaskStore) List(ctx context.Context) ([]*a2a.Task, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(ids) == 0 {
		return []*a2a.Task{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.taskKey(id))
	}

	// MGet returns nil for expired keys.
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	tasks := make([]*a2a.Task, 0, len(results))
	for _, result := range results {
		str, ok := result.(string)
		if !ok {
			continue
		}
		var task a2a.Task
		if err := json.Unmarshal([]byte(str), &task); err != nil {
			continue
		}
		tasks = append(tasks, &task)
	}
	return tasks, nil
}

// Delete removes a task
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.taskKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

var _ a2a.TaskStore = (*TaskStore)(nil)
