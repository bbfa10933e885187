// Package redis provides Redis-backed storage shared between agent processes.
//
// Two stores are offered:
//
//   - Blackboard implements memory.Blackboard, so teams running in separate
//     processes can read and write the same shared memory.
//   - TaskStore implements a2a.TaskStore, so A2A task state survives a server
//     restart and can be inspected from other processes.
//
// # Basic Usage
//
//	board := redis.NewBlackboard(redis.RedisOptions{
//		Addr:   "localhost:6379",
//		Prefix: "multiagent:", // Optional key prefix
//	})
//	board.Append(ctx, "task_log", "Researcher: completed analysis")
//
//	tasks := redis.NewTaskStore(redis.RedisOptions{
//		Addr: "localhost:6379",
//		TTL:  24 * time.Hour, // Optional expiration for tasks
//	})
//	srv := a2a.NewServer(card, a2a.WithTaskStore(tasks))
//
// # Key Management
//
//	// Blackboard values: {prefix}board:{key}, indexed in {prefix}board:__keys__
//	// Tasks:             {prefix}task:{id},   ordered in the {prefix}tasks sorted set
//
// Blackboard values are JSON encoded, so numbers read back as float64 and
// objects as map[string]any. Lists created with Append are Redis lists.
package redis
