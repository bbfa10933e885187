package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/multiagent/a2a"
	"github.com/smallnest/multiagent/llm"
	"github.com/smallnest/multiagent/log"
	"github.com/smallnest/multiagent/prebuilt"
	"github.com/smallnest/multiagent/store/postgres"
	"github.com/smallnest/multiagent/store/redis"
	"github.com/smallnest/multiagent/store/sqlite"
	"github.com/smallnest/multiagent/tool"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
)

// ErrUnknownStore is returned for a --store value that is not supported.
var ErrUnknownStore = errors.New("unknown task store")

func newA2ACmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "a2a",
		Short: "Run an agent server or send it work",
	}
	cmd.AddCommand(newA2AServeCmd(a), newA2ASendCmd())
	return cmd
}

// openTaskStore returns the task store named by kind and a function that
// releases it.
func (a *app) openTaskStore(ctx context.Context, kind, dsn string) (a2a.TaskStore, func(), error) {
	noop := func() {}
	switch kind {
	case "", "memory":
		return a2a.NewMemoryTaskStore(), noop, nil
	case "redis":
		addr := dsn
		if addr == "" {
			addr = a.settings.RedisAddr
		}
		if addr == "" {
			return nil, nil, errors.New("redis task store needs --dsn or REDIS_ADDR")
		}
		opts := redis.RedisOptions{Addr: addr, TTL: 24 * time.Hour}
		if err := redis.Ping(ctx, redis.NewClient(opts)); err != nil {
			return nil, nil, err
		}
		return redis.NewTaskStore(opts), noop, nil
	case "sqlite":
		if dsn == "" {
			dsn = "a2a_tasks.db"
		}
		store, err := sqlite.NewTaskStore(sqlite.SqliteOptions{Path: dsn})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "postgres":
		if dsn == "" {
			return nil, nil, errors.New("postgres task store needs --dsn")
		}
		store, err := postgres.NewTaskStore(ctx, postgres.PostgresOptions{ConnString: dsn})
		if err != nil {
			return nil, nil, err
		}
		if err := store.InitSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: %s (use memory, redis, sqlite or postgres)", ErrUnknownStore, kind)
}

// agentHandlers answers tasks and messages with node.
func agentHandlers(node *prebuilt.AgentNode) (a2a.TaskHandler, a2a.MessageHandler) {
	respond := func(ctx context.Context, text string) (string, error) {
		msgs, err := node.Respond(ctx, []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, text),
		})
		if err != nil {
			return "", err
		}
		return prebuilt.LastMessageText(msgs), nil
	}
	onTask := func(ctx context.Context, task *a2a.Task) (string, error) {
		return respond(ctx, task.Description)
	}
	onMessage := func(ctx context.Context, msg *a2a.Message) (string, error) {
		return respond(ctx, fmt.Sprintf("Message from %s: %s", msg.Sender, msg.Content))
	}
	return onTask, onMessage
}

func newA2AServeCmd(a *app) *cobra.Command {
	var (
		addr        string
		name        string
		description string
		skills      []string
		storeKind   string
		dsn         string
		rateLimit   float64
		burst       int
		withTools   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an A2A agent whose tasks are answered by the model",
		Example: `  multiagent a2a serve --name coder --skills code,review
  multiagent a2a serve --addr :8002 --store postgres --dsn postgres://localhost/agents`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			model, err := a.newModel(ctx, llm.TypeGeneral)
			if err != nil {
				return err
			}
			store, release, err := a.openTaskStore(ctx, storeKind, dsn)
			if err != nil {
				return err
			}
			defer release()

			node := &prebuilt.AgentNode{
				Name:         name,
				SystemPrompt: fmt.Sprintf("You are %s. %s Complete the task you are given and reply with the result.", name, description),
				Model:        model,
			}
			if withTools {
				node.Tools = tool.All()
			}

			url := addr
			if strings.HasPrefix(url, ":") {
				url = "http://localhost" + url
			}
			opts := []a2a.ServerOption{a2a.WithTaskStore(store)}
			if rateLimit > 0 {
				opts = append(opts, a2a.WithRateLimit(rateLimit, burst))
			}
			srv := a2a.NewServer(a2a.NewAgentCard(name, description, url, skills...), opts...)
			onTask, onMessage := agentHandlers(node)
			srv.OnTask(onTask)
			srv.OnMessage(onMessage)

			log.Info("Agent %s using %s task store", name, storeKind)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8000", "listen address")
	f.StringVar(&name, "name", "assistant", "agent name")
	f.StringVar(&description, "description", "A helpful assistant.", "agent description")
	f.StringSliceVar(&skills, "skills", nil, "skills advertised on the agent card")
	f.StringVar(&storeKind, "store", "memory", "task store: memory, redis, sqlite or postgres")
	f.StringVar(&dsn, "dsn", "", "redis address, sqlite path or postgres connection string")
	f.Float64Var(&rateLimit, "rate", 0, "requests per second allowed (0 disables limiting)")
	f.IntVar(&burst, "burst", 10, "rate limiter burst")
	f.BoolVar(&withTools, "tools", false, "let the model call the built-in tools")
	return cmd
}

func newA2ASendCmd() *cobra.Command {
	var (
		timeout time.Duration
		poll    time.Duration
		message bool
		sender  string
	)

	cmd := &cobra.Command{
		Use:   "send AGENT_URL TEXT...",
		Short: "Submit a task to an agent and wait for the result",
		Example: `  multiagent a2a send http://localhost:8000 "Summarize the CAP theorem"
  multiagent a2a send --message http://localhost:8000 "Are you there?"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url, text := args[0], strings.Join(args[1:], " ")
			client := a2a.NewClient(a2a.WithTimeout(30*time.Second), a2a.WithRetry(3, time.Second))
			out := cmd.OutOrStdout()

			if message {
				resp, err := client.SendMessage(ctx, url, text, sender, nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, resp.Response)
				return nil
			}

			task, err := client.SubmitTask(ctx, url, text, nil)
			if err != nil {
				return err
			}
			log.Info("Submitted task %s", task.ID)

			task, err = client.WaitForTask(ctx, url, task.ID, timeout, poll)
			if err != nil {
				return err
			}
			if task.State == a2a.TaskStateFailed {
				return fmt.Errorf("task %s failed: %s", task.ID, task.Error)
			}
			fmt.Fprintln(out, task.Result)
			return nil
		},
	}

	f := cmd.Flags()
	f.DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for the task")
	f.DurationVar(&poll, "poll", time.Second, "status polling interval")
	f.BoolVar(&message, "message", false, "send a message instead of a task")
	f.StringVar(&sender, "sender", "cli", "sender name for --message")
	return cmd
}
