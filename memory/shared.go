package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/smallnest/multiagent/log"
)

// ErrNotList is returned by Append when the key holds a non-list value.
var ErrNotList = errors.New("not a list")

// NotListError reports the offending key. It matches ErrNotList with errors.Is.
func NotListError(key string) error {
	return fmt.Errorf("key %q is not a list: %w", key, ErrNotList)
}

// AsList returns the elements of any slice or array value as []any.
// Byte slices are not lists.
func AsList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
	case reflect.Array:
	default:
		return nil, false
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

// Blackboard is a key-value store shared between agents.
type Blackboard interface {
	// Set stores value under key.
	Set(ctx context.Context, key string, value any) error
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) (any, bool, error)
	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Append adds value to the list at key, creating it when missing.
	Append(ctx context.Context, key string, value any) error
	// Keys lists the stored keys.
	Keys(ctx context.Context) ([]string, error)
	// All returns a copy of every entry.
	All(ctx context.Context) (map[string]any, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// SharedMemory is an in-process Blackboard safe for concurrent use.
type SharedMemory struct {
	mu    sync.RWMutex
	store map[string]any
}

// NewSharedMemory creates an empty, independent blackboard.
func NewSharedMemory() *SharedMemory {
	return &SharedMemory{store: make(map[string]any)}
}

var (
	sharedOnce sync.Once
	shared     *SharedMemory
)

// Shared returns the process-wide blackboard.
func Shared() *SharedMemory {
	sharedOnce.Do(func() {
		shared = NewSharedMemory()
	})
	return shared
}

// Set implements Blackboard.
func (s *SharedMemory) Set(_ context.Context, key string, value any) error {
	s.mu.Lock()
	s.store[key] = value
	s.mu.Unlock()
	log.Debug("[SharedMemory] Set: %s", key)
	return nil
}

// Get implements Blackboard.
func (s *SharedMemory) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.store[key]
	return v, ok, nil
}

// GetOr returns the value for key or def when it is missing.
func (s *SharedMemory) GetOr(key string, def any) any {
	if v, ok, _ := s.Get(context.Background(), key); ok {
		return v
	}
	return def
}

// Delete implements Blackboard.
func (s *SharedMemory) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store[key]; !ok {
		return false, nil
	}
	delete(s.store, key)
	return true, nil
}

// Append implements Blackboard.
func (s *SharedMemory) Append(_ context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.store[key]
	if !ok {
		s.store[key] = []any{value}
		return nil
	}
	list, isList := AsList(cur)
	if !isList {
		return NotListError(key)
	}
	s.store[key] = append(list, value)
	return nil
}

// Keys implements Blackboard. Keys are returned sorted.
func (s *SharedMemory) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.store))
	for k := range s.store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// All implements Blackboard. Lists are copied so callers cannot mutate
// the stored slices.
func (s *SharedMemory) All(_ context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.store))
	for k, v := range s.store {
		if list, ok := v.([]any); ok {
			v = append([]any(nil), list...)
		}
		out[k] = v
	}
	return out, nil
}

// Clear implements Blackboard.
func (s *SharedMemory) Clear(_ context.Context) error {
	s.mu.Lock()
	s.store = make(map[string]any)
	s.mu.Unlock()
	log.Info("[SharedMemory] Shared memory cleared")
	return nil
}

var _ Blackboard = (*SharedMemory)(nil)
