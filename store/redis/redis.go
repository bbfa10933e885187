package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "multiagent:"
	TTL      time.Duration // Expiration for tasks, default 0 (no expiration)
}

// NewClient creates a Redis client from opts
func NewClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

func prefixOf(opts RedisOptions) string {
	if opts.Prefix == "" {
		return "multiagent:"
	}
	return opts.Prefix
}

// Ping checks that the server is reachable
func Ping(ctx context.Context, client redis.UniversalClient) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}
