// Package a2a implements a small agent-to-agent task protocol over HTTP.
//
// An agent runs a Server that publishes its AgentCard at
// /.well-known/agent.json and accepts work:
//
//	GET  /.well-known/agent.json   agent card
//	POST /tasks                    submit a task (201, processed in background)
//	GET  /tasks/{id}               task status
//	POST /messages                 deliver a message
//
// Other agents use a Client to submit tasks and poll for results, or a
// Network to route tasks to registered agents by name or skill.
//
//	srv := a2a.NewServer(a2a.NewAgentCard("coder", "Writes code", "http://localhost:8001", "go"))
//	srv.OnTask(func(ctx context.Context, t *a2a.Task) (string, error) {
//		return "done: " + t.Description, nil
//	})
//	go srv.ListenAndServe(ctx, ":8001")
//
// Tasks live in a TaskStore; the default keeps them in memory and
// store/redis, store/sqlite and store/postgres provide durable ones.
package a2a
