// Package graph provides the typed state graph that drives the agent team.
//
// A StateGraph[S] is a set of named nodes joined by static and conditional
// edges. Each node receives the current state and returns an update; the
// graph schema merges updates into the state.
//
// # Execution
//
// A compiled graph runs in supersteps. All nodes scheduled for a step run
// concurrently on the same state, their outputs are merged in node order,
// and the edges of the nodes that ran decide the next step. A run stops when
// only END is left, and fails with ErrRecursionLimit after
// Config.RecursionLimit steps (DefaultRecursionLimit when unset).
//
// # Example
//
//	type State struct {
//		Messages []string
//		Count    int
//	}
//
//	g := graph.NewStateGraph[State]()
//	g.SetSchema(graph.NewFuncSchema(State{}, func(cur, upd State) (State, error) {
//		cur.Messages = append(cur.Messages, upd.Messages...)
//		cur.Count += upd.Count
//		return cur, nil
//	}))
//
//	g.AddNode("work", "Do one unit of work", func(ctx context.Context, s State) (State, error) {
//		return State{Messages: []string{"worked"}, Count: 1}, nil
//	})
//	g.AddConditionalEdge("work", func(ctx context.Context, s State) string {
//		if s.Count >= 3 {
//			return graph.END
//		}
//		return "work"
//	})
//	g.SetEntryPoint("work")
//
//	app, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	final, err := app.InvokeWithConfig(ctx, State{}, &graph.Config{RecursionLimit: 10})
//
// # Retries
//
// SetRetryPolicy retries failing nodes with fixed, linear or exponential
// backoff. RetryableErrors restricts retries to errors whose message
// contains one of the listed substrings.
package graph
