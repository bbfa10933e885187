// Command multiagent runs the agents, teams and protocol servers of this
// module from the command line.
//
//	multiagent chat
//	multiagent --provider openai team "Write a factorial function in Go"
//	multiagent roundrobin --stream --html transcript.html "Create a todo list class"
//	multiagent rag --dir ./docs "How do I configure Redis?"
//	multiagent mcp serve --web
//	multiagent a2a serve --name coder --skills code,review --store sqlite --dsn tasks.db
//
// Settings come from .env, an optional --config file and the environment.
// Logs go to stderr so that stdout stays usable for MCP over stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
