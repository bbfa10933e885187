package graph

import (
	"errors"
	"time"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

// DefaultRecursionLimit is the number of supersteps a run may take when
// Config.RecursionLimit is not set.
const DefaultRecursionLimit = 25

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrRecursionLimit is returned when a run takes more supersteps than allowed.
	ErrRecursionLimit = errors.New("recursion limit reached")
)

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// Config configures a single run of a compiled graph.
type Config struct {
	// RecursionLimit caps the number of supersteps. Zero means DefaultRecursionLimit.
	RecursionLimit int

	// Tags and Metadata are carried in the context for nodes to inspect.
	Tags     []string
	Metadata map[string]any
}

func (c *Config) recursionLimit() int {
	if c == nil || c.RecursionLimit <= 0 {
		return DefaultRecursionLimit
	}
	return c.RecursionLimit
}

// RetryPolicy defines how to handle node failures
type RetryPolicy struct {
	MaxRetries      int
	BackoffStrategy BackoffStrategy
	// RetryableErrors lists substrings of retryable error messages. Empty
	// means every error is retried.
	RetryableErrors []string
	// BaseDelay defaults to one second.
	BaseDelay time.Duration
}

// BackoffStrategy defines different backoff strategies
type BackoffStrategy int

const (
	FixedBackoff BackoffStrategy = iota
	ExponentialBackoff
	LinearBackoff
)
