package main

import (
	"fmt"
	"strings"

	"github.com/smallnest/multiagent/llm"
	"github.com/smallnest/multiagent/prebuilt"
	"github.com/spf13/cobra"
)

func newRoundRobinCmd(a *app) *cobra.Command {
	var (
		stream   bool
		maxTurns int
		htmlOut  string
	)

	cmd := &cobra.Command{
		Use:     "roundrobin TASK...",
		Aliases: []string{"rr"},
		Short:   "Let a planner, a coder and a reviewer take turns on a task",
		Long: "Let a planner, a coder and a reviewer take turns on a task.\n\n" +
			"The conversation stops when a participant says TERMINATE or after 15 messages.\n" +
			"Only OpenAI-compatible providers (ollama, openai) are supported.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task := strings.Join(args, " ")

			model, err := llm.NewTeamModel(a.settings)
			if err != nil {
				return err
			}
			team := prebuilt.NewDefaultRoundRobinTeam(model)
			if maxTurns > 0 {
				team.MaxTurns = maxTurns
			}

			out := cmd.OutOrStdout()
			banner(out, "Round-robin team with "+model.String())

			var transcript []prebuilt.TeamMessage
			if stream {
				msgs, errc := team.Stream(ctx, task)
				for msg := range msgs {
					speaker(out, msg.Source, msg.Content)
					transcript = append(transcript, msg)
				}
				if err := <-errc; err != nil {
					return err
				}
			} else {
				result, err := team.Run(ctx, task)
				if err != nil {
					return err
				}
				for _, msg := range result.Messages {
					speaker(out, msg.Source, msg.Content)
				}
				fmt.Fprintln(out, dimStyle.Render("Stopped: "+result.StopReason))
				transcript = result.Messages
			}

			if htmlOut != "" {
				return writeHTML(htmlOut, "Round-robin transcript", prebuilt.FormatTranscript(transcript))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "print messages as they are produced")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "upper bound on agent turns (default 100)")
	cmd.Flags().StringVar(&htmlOut, "html", "", "also write the transcript as an HTML page to this file")
	return cmd
}
