package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/smallnest/multiagent/llm"
	"github.com/smallnest/multiagent/log"
	"github.com/smallnest/multiagent/memory"
	"github.com/smallnest/multiagent/prebuilt"
	"github.com/smallnest/multiagent/report"
	"github.com/smallnest/multiagent/store/redis"
	"github.com/spf13/cobra"
)

// blackboard returns the Redis blackboard when REDIS_ADDR is set and the
// process-wide shared memory otherwise.
func (a *app) blackboard(ctx context.Context) memory.Blackboard {
	if a.settings.RedisAddr == "" {
		return memory.Shared()
	}
	opts := redis.RedisOptions{Addr: a.settings.RedisAddr}
	if err := redis.Ping(ctx, redis.NewClient(opts)); err != nil {
		log.Warn("Falling back to in-process shared memory: %v", err)
		return memory.Shared()
	}
	log.Info("Using redis blackboard at %s", a.settings.RedisAddr)
	return redis.NewBlackboard(opts)
}

func newTeamCmd(a *app) *cobra.Command {
	var (
		maxIterations int
		htmlOut       string
	)

	cmd := &cobra.Command{
		Use:   "team TASK...",
		Short: "Solve a task with the orchestrator, researcher, coder and reviewer graph",
		Example: `  multiagent team "Write a Go function that reverses a string, with tests"
  multiagent --provider ollama team --max-iterations 6 "Explain the CAP theorem"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task := strings.Join(args, " ")

			model, err := a.newModel(ctx, llm.TypeGeneral)
			if err != nil {
				return err
			}
			bb := a.blackboard(ctx)
			if _, err := bb.Delete(ctx, prebuilt.TaskLogKey); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			banner(out, "Team task")
			fmt.Fprintln(out, task)

			result, err := prebuilt.RunTask(ctx, model, task, maxIterations, prebuilt.WithBlackboard(bb))
			if err != nil {
				return err
			}

			section(out, "Result")
			fmt.Fprintln(out, result)
			printTaskLog(ctx, out, bb)

			if htmlOut != "" {
				return writeHTML(htmlOut, "Team result", "## Task\n\n"+task+"\n\n## Result\n\n"+result)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxIterations, "max-iterations", prebuilt.DefaultMaxIterations, "maximum number of agent steps")
	cmd.Flags().StringVar(&htmlOut, "html", "", "also write the result as an HTML page to this file")
	return cmd
}

func printTaskLog(ctx context.Context, w io.Writer, bb memory.Blackboard) {
	entries, ok, err := bb.Get(ctx, prebuilt.TaskLogKey)
	if err != nil || !ok {
		return
	}
	list, ok := entries.([]any)
	if !ok {
		return
	}

	section(w, "Task log")
	for _, entry := range list {
		step, ok := entry.(map[string]any)
		if !ok {
			fmt.Fprintf(w, "  - %v\n", entry)
			continue
		}
		fmt.Fprintf(w, "  - %s: %v\n", speakerStyle.Render(fmt.Sprint(step["agent"])), step["output"])
	}
}

func writeHTML(path, title, md string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.Write(f, title, md); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	log.Info("Wrote %s", path)
	return f.Close()
}
