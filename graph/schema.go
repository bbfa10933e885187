package graph

import (
	"fmt"
	"maps"
	"reflect"
)

// StateSchema defines the initial state of a graph and how node outputs
// are merged into it.
type StateSchema[S any] interface {
	// Init returns the initial state.
	Init() S

	// Update merges a node's output into the current state.
	Update(current, update S) (S, error)
}

// Reducer defines how a state value should be updated.
// It takes the current value and the new value, and returns the merged value.
type Reducer func(current, new any) (any, error)

// MapSchema implements StateSchema for map[string]any.
// It allows defining reducers for specific keys.
type MapSchema struct {
	Reducers map[string]Reducer
}

// NewMapSchema creates a new MapSchema.
func NewMapSchema() *MapSchema {
	return &MapSchema{
		Reducers: make(map[string]Reducer),
	}
}

// RegisterReducer adds a reducer for a specific key.
func (s *MapSchema) RegisterReducer(key string, reducer Reducer) {
	s.Reducers[key] = reducer
}

// Init returns an empty map.
func (s *MapSchema) Init() map[string]any {
	return make(map[string]any)
}

// Update merges the new map into a copy of the current map using registered
// reducers. Keys without a reducer are overwritten.
func (s *MapSchema) Update(current, update map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(current)+len(update))
	maps.Copy(result, current)

	for k, v := range update {
		reducer, ok := s.Reducers[k]
		if !ok {
			result[k] = v
			continue
		}
		merged, err := reducer(result[k], v)
		if err != nil {
			return nil, fmt.Errorf("failed to reduce key %s: %w", k, err)
		}
		result[k] = merged
	}
	return result, nil
}

// FuncSchema implements StateSchema for any state type with a merge function.
type FuncSchema[S any] struct {
	initial S
	merge   func(current, update S) (S, error)
}

// NewFuncSchema returns a schema starting from initial and merging updates
// with merge.
func NewFuncSchema[S any](initial S, merge func(current, update S) (S, error)) *FuncSchema[S] {
	return &FuncSchema[S]{initial: initial, merge: merge}
}

// Init returns the initial state.
func (s *FuncSchema[S]) Init() S { return s.initial }

// Update merges update into current.
func (s *FuncSchema[S]) Update(current, update S) (S, error) {
	return s.merge(current, update)
}

// OverwriteReducer replaces the old value with the new one.
func OverwriteReducer(current, new any) (any, error) {
	return new, nil
}

// AppendReducer appends the new value to the current slice.
// It supports appending a slice to a slice, or a single element to a slice.
func AppendReducer(current, new any) (any, error) {
	if new == nil {
		return current, nil
	}
	newVal := reflect.ValueOf(new)

	if current == nil {
		if newVal.Kind() == reflect.Slice {
			return new, nil
		}
		slice := reflect.MakeSlice(reflect.SliceOf(newVal.Type()), 0, 1)
		return reflect.Append(slice, newVal).Interface(), nil
	}

	currVal := reflect.ValueOf(current)
	if currVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("current value is not a slice")
	}

	if newVal.Kind() == reflect.Slice {
		if currVal.Type().Elem() != newVal.Type().Elem() {
			// Types don't match, convert both to []any
			result := make([]any, 0, currVal.Len()+newVal.Len())
			for i := 0; i < currVal.Len(); i++ {
				result = append(result, currVal.Index(i).Interface())
			}
			for i := 0; i < newVal.Len(); i++ {
				result = append(result, newVal.Index(i).Interface())
			}
			return result, nil
		}
		return reflect.AppendSlice(currVal, newVal).Interface(), nil
	}

	if !newVal.Type().AssignableTo(currVal.Type().Elem()) {
		return nil, fmt.Errorf("cannot append %T to %T", new, current)
	}
	return reflect.Append(currVal, newVal).Interface(), nil
}
