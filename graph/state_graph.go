package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/multiagent/log"
	"golang.org/x/sync/errgroup"
)

// StateGraph represents a generic state-based graph with compile-time type safety.
// The type parameter S represents the state type, which is typically a struct.
//
// Example usage:
//
//	type MyState struct {
//	    Count int
//	    Name  string
//	}
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, state MyState) (MyState, error) {
//	    state.Count++
//	    return state, nil
//	})
type StateGraph[S any] struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]Node[S]

	// edges is a slice of Edge objects representing the connections between nodes
	edges []Edge

	// conditionalEdges maps a "From" node to the function choosing its "To" node
	conditionalEdges map[string]func(ctx context.Context, state S) string

	// entryPoint is the name of the entry point node in the graph
	entryPoint string

	// retryPolicy defines retry behavior for failed nodes
	retryPolicy *RetryPolicy

	// schema defines the initial state and how node outputs are merged
	schema StateSchema[S]
}

// Node represents a typed node in the graph.
type Node[S any] struct {
	Name        string
	Description string
	Function    func(ctx context.Context, state S) (S, error)
}

// NewStateGraph creates a new instance of StateGraph with type safety.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
// Several edges from the same node fan out to run in the same superstep.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime.
// A conditional edge takes precedence over static edges from the same node.
//
// Example:
//
//	g.AddConditionalEdge("check", func(ctx context.Context, state MyState) string {
//	    if state.Count > 10 {
//	        return "high"
//	    }
//	    return "low"
//	})
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryPolicy sets the retry policy for the graph.
func (g *StateGraph[S]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// SetSchema sets the state schema for the graph. Without a schema the
// output of the last node in a superstep becomes the new state.
func (g *StateGraph[S]) SetSchema(schema StateSchema[S]) {
	g.schema = schema
}

// Nodes returns the registered nodes keyed by name.
func (g *StateGraph[S]) Nodes() map[string]Node[S] {
	return g.nodes
}

// StateRunnable represents a compiled state graph that can be invoked with type safety.
type StateRunnable[S any] struct {
	graph *StateGraph[S]
}

// Compile checks the graph and returns a StateRunnable instance.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}
	for _, edge := range g.edges {
		if _, ok := g.nodes[edge.From]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, edge.From)
		}
		if _, ok := g.nodes[edge.To]; !ok && edge.To != END {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, edge.To)
		}
	}
	for from := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, from)
		}
	}

	return &StateRunnable[S]{graph: g}, nil
}

// Invoke executes the compiled state graph with the given input state.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the compiled state graph with the given input state and config.
//
// Execution proceeds in supersteps: every node scheduled for a step runs
// concurrently on the same input state, their outputs are merged through the
// schema, and the edges of the nodes that ran pick the next step. The run
// ends when only END remains.
func (r *StateRunnable[S]) InvokeWithConfig(ctx context.Context, initialState S, config *Config) (S, error) {
	var zero S
	state := initialState

	// If schema is defined, merge initialState into schema's initial state
	if r.graph.schema != nil {
		var err error
		state, err = r.graph.schema.Update(r.graph.schema.Init(), initialState)
		if err != nil {
			return zero, fmt.Errorf("failed to initialize state with schema: %w", err)
		}
	}

	if config != nil {
		ctx = WithConfig(ctx, config)
	}
	limit := config.recursionLimit()

	currentNodes := []string{r.graph.entryPoint}
	for step := 0; ; step++ {
		currentNodes = withoutEnd(currentNodes)
		if len(currentNodes) == 0 {
			return state, nil
		}
		if step >= limit {
			return zero, fmt.Errorf("%w: %d steps", ErrRecursionLimit, limit)
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		log.Debug("graph step %d: %s", step, strings.Join(currentNodes, ", "))

		results, err := r.executeNodesParallel(ctx, currentNodes, state)
		if err != nil {
			return zero, err
		}

		state, err = r.mergeState(state, results)
		if err != nil {
			return zero, err
		}

		currentNodes, err = r.determineNextNodes(ctx, currentNodes, state)
		if err != nil {
			return zero, err
		}
	}
}

// executeNodesParallel runs nodes concurrently and returns their outputs in
// the order of nodes. The first failure cancels the others.
func (r *StateRunnable[S]) executeNodesParallel(ctx context.Context, nodes []string, state S) ([]S, error) {
	results := make([]S, len(nodes))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, name := range nodes {
		node, ok := r.graph.nodes[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
		}

		eg.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("panic in node %s: %v", name, p)
				}
			}()

			res, err := r.executeNodeWithRetry(egCtx, node, state)
			if err != nil {
				return fmt.Errorf("error in node %s: %w", name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// executeNodeWithRetry executes a node with retry logic based on the retry policy.
func (r *StateRunnable[S]) executeNodeWithRetry(ctx context.Context, node Node[S], state S) (S, error) {
	var zero S
	policy := r.graph.retryPolicy

	attempts := 1
	if policy != nil {
		attempts += policy.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := node.Function(ctx, state)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts-1 || !isRetryableError(policy, err) {
			break
		}

		delay := backoffDelay(policy, attempt)
		log.Warn("node %s failed (attempt %d/%d), retrying in %s: %v", node.Name, attempt+1, attempts, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// isRetryableError checks if an error is retryable based on the retry policy.
func isRetryableError(policy *RetryPolicy, err error) bool {
	if policy == nil {
		return false
	}
	if len(policy.RetryableErrors) == 0 {
		return true
	}

	errorStr := err.Error()
	for _, pattern := range policy.RetryableErrors {
		if strings.Contains(errorStr, pattern) {
			return true
		}
	}
	return false
}

// backoffDelay calculates the delay before retry attempt+1.
func backoffDelay(policy *RetryPolicy, attempt int) time.Duration {
	base := policy.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	switch policy.BackoffStrategy {
	case ExponentialBackoff:
		// 1s, 2s, 4s, 8s, ...
		return base * time.Duration(1<<attempt)
	case LinearBackoff:
		// 1s, 2s, 3s, 4s, ...
		return base * time.Duration(attempt+1)
	default:
		return base
	}
}

// mergeState merges node outputs into the current state.
func (r *StateRunnable[S]) mergeState(state S, results []S) (S, error) {
	if r.graph.schema == nil {
		if len(results) > 0 {
			state = results[len(results)-1]
		}
		return state, nil
	}

	for _, res := range results {
		var err error
		state, err = r.graph.schema.Update(state, res)
		if err != nil {
			var zero S
			return zero, fmt.Errorf("schema update failed: %w", err)
		}
	}
	return state, nil
}

// determineNextNodes follows the conditional or static edges of the nodes
// that just ran. The result keeps first-seen order without duplicates.
func (r *StateRunnable[S]) determineNextNodes(ctx context.Context, currentNodes []string, state S) ([]string, error) {
	var next []string
	seen := make(map[string]bool)
	add := func(node string) {
		if !seen[node] {
			seen[node] = true
			next = append(next, node)
		}
	}

	for _, nodeName := range currentNodes {
		if condition, ok := r.graph.conditionalEdges[nodeName]; ok {
			target := condition(ctx, state)
			if target == "" {
				return nil, fmt.Errorf("conditional edge returned empty next node from %s", nodeName)
			}
			if _, ok := r.graph.nodes[target]; !ok && target != END {
				return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, target)
			}
			add(target)
			continue
		}

		found := false
		for _, edge := range r.graph.edges {
			if edge.From == nodeName {
				add(edge.To)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, nodeName)
		}
	}
	return next, nil
}

func withoutEnd(nodes []string) []string {
	active := nodes[:0:0]
	for _, node := range nodes {
		if node != END {
			active = append(active, node)
		}
	}
	return active
}
