package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/multiagent/memory"
)

// Blackboard implements memory.Blackboard on Redis so that agents in
// different processes share one board. Values are stored as JSON; lists are
// Redis lists. JSON numbers come back as float64.
type Blackboard struct {
	client *redis.Client
	prefix string
}

// NewBlackboard creates a Redis blackboard
func NewBlackboard(opts RedisOptions) *Blackboard {
	return NewBlackboardWithClient(NewClient(opts), opts.Prefix)
}

// NewBlackboardWithClient uses an existing client
func NewBlackboardWithClient(client *redis.Client, prefix string) *Blackboard {
	return &Blackboard{
		client: client,
		prefix: prefixOf(RedisOptions{Prefix: prefix}),
	}
}

func (b *Blackboard) valueKey(key string) string {
	return fmt.Sprintf("%sboard:%s", b.prefix, key)
}

func (b *Blackboard) indexKey() string {
	return b.prefix + "board:__keys__"
}

// Set stores a value, replacing whatever was under the key. Non-empty
// slices become Redis lists so that Append can extend them.
func (b *Blackboard) Set(ctx context.Context, key string, value any) error {
	var (
		data  []byte
		items []any
		err   error
	)
	if list, ok := memory.AsList(value); ok && len(list) > 0 {
		if items, err = marshalItems(list); err != nil {
			return fmt.Errorf("failed to marshal value for %s: %w", key, err)
		}
	} else if data, err = json.Marshal(value); err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}

	k := b.valueKey(key)
	pipe := b.client.TxPipeline()
	pipe.Del(ctx, k)
	if items != nil {
		pipe.RPush(ctx, k, items...)
	} else {
		pipe.Set(ctx, k, data, 0)
	}
	pipe.SAdd(ctx, b.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

// Get returns a value and whether it exists
func (b *Blackboard) Get(ctx context.Context, key string) (any, bool, error) {
	return b.get(ctx, b.client, key)
}

func (b *Blackboard) get(ctx context.Context, c redis.Cmdable, key string) (any, bool, error) {
	k := b.valueKey(key)
	typ, err := c.Type(ctx, k).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s from redis: %w", key, err)
	}

	switch typ {
	case "none":
		return nil, false, nil
	case "list":
		items, err := c.LRange(ctx, k, 0, -1).Result()
		if err != nil {
			return nil, false, fmt.Errorf("failed to read list %s: %w", key, err)
		}
		list := make([]any, 0, len(items))
		for _, item := range items {
			var v any
			if err := json.Unmarshal([]byte(item), &v); err != nil {
				return nil, false, fmt.Errorf("failed to unmarshal item of %s: %w", key, err)
			}
			list = append(list, v)
		}
		return list, true, nil
	default:
		data, err := c.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to read %s from redis: %w", key, err)
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
		}
		return v, true, nil
	}
}

// Delete removes a key and reports whether it existed
func (b *Blackboard) Delete(ctx context.Context, key string) (bool, error) {
	pipe := b.client.TxPipeline()
	del := pipe.Del(ctx, b.valueKey(key))
	pipe.SRem(ctx, b.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return del.Val() > 0, nil
}

// Append pushes a value onto the list at key, creating it if missing
func (b *Blackboard) Append(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}

	k := b.valueKey(key)
	err = b.client.Watch(ctx, func(tx *redis.Tx) error {
		typ, err := tx.Type(ctx, k).Result()
		if err != nil {
			return err
		}
		// An empty list is kept as the JSON string "[]".
		var existing []any
		switch typ {
		case "none", "list":
		case "string":
			raw, err := tx.Get(ctx, k).Bytes()
			if err != nil {
				return err
			}
			var list []any
			if json.Unmarshal(raw, &list) != nil || list == nil {
				return memory.NotListError(key)
			}
			if existing, err = marshalItems(list); err != nil {
				return err
			}
		default:
			return memory.NotListError(key)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if typ == "string" {
				pipe.Del(ctx, k)
				if len(existing) > 0 {
					pipe.RPush(ctx, k, existing...)
				}
			}
			pipe.RPush(ctx, k, data)
			pipe.SAdd(ctx, b.indexKey(), key)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, memory.ErrNotList) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", key, err)
	}
	return nil
}

func marshalItems(list []any) ([]any, error) {
	items := make([]any, len(list))
	for i, v := range list {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		items[i] = data
	}
	return items, nil
}

// Keys returns the stored keys, sorted
func (b *Blackboard) Keys(ctx context.Context) ([]string, error) {
	keys, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// All returns every entry
func (b *Blackboard) All(ctx context.Context) (map[string]any, error) {
	keys, err := b.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		v, ok, err := b.get(ctx, b.client, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = v
		}
	}
	return out, nil
}

// Clear removes every entry of this board
func (b *Blackboard) Clear(ctx context.Context) error {
	keys, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to get keys for clearing: %w", err)
	}

	pipe := b.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, b.valueKey(key))
	}
	pipe.Del(ctx, b.indexKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear blackboard: %w", err)
	}
	return nil
}

var _ memory.Blackboard = (*Blackboard)(nil)
