package main

import (
	"fmt"

	"github.com/smallnest/multiagent/llm"
	"github.com/spf13/cobra"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available for the provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.settings.LLMProvider
			models := llm.ListAvailableModels(cmd.Context(), p, a.settings)
			recommended := llm.RecommendedModel(p, llm.TypeGeneral)

			out := cmd.OutOrStdout()
			banner(out, fmt.Sprintf("Models for %s", p))
			if len(models) == 0 {
				fmt.Fprintln(out, dimStyle.Render("No models found"))
				return nil
			}
			for _, m := range models {
				marker := "  "
				if m == a.settings.LLMModel {
					marker = "* "
				}
				if m == recommended {
					m += dimStyle.Render(" (recommended)")
				}
				fmt.Fprintln(out, marker+m)
			}
			return nil
		},
	}
}
