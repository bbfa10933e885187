package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/smallnest/multiagent/log"
	"github.com/smallnest/multiagent/tool"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/tools"
)

// webTools returns fetch_url, plus web_search when a Brave key is configured.
func webTools() []tools.Tool {
	ts := []tools.Tool{tool.NewFetchURL()}
	brave, err := tool.NewBraveSearch("")
	if err != nil {
		log.Debug("web_search disabled: %v", err)
		return ts
	}
	return append(ts, brave)
}

func availableTools(web bool) []tools.Tool {
	ts := tool.All()
	if web {
		ts = append(ts, webTools()...)
	}
	return ts
}

func findTool(ts []tools.Tool, name string) (tools.Tool, bool) {
	for _, t := range ts {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

func newToolsCmd(_ *app) *cobra.Command {
	var web bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools or call one directly",
	}
	cmd.PersistentFlags().BoolVar(&web, "web", false, "include fetch_url and web_search")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range availableTools(web) {
				fmt.Fprintf(w, "%s\t%s\n", t.Name(), t.Description())
			}
			return w.Flush()
		},
	}

	call := &cobra.Command{
		Use:   "call NAME [ARGS...]",
		Short: "Call a tool with raw or JSON arguments",
		Example: `  multiagent tools call calculate "2 + 2 * 3"
  multiagent tools call convert_units '{"value": 10, "from_unit": "km", "to_unit": "miles"}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := findTool(availableTools(web), args[0])
			if !ok {
				return fmt.Errorf("unknown tool %q (see 'multiagent tools list')", args[0])
			}
			out, err := t.Call(cmd.Context(), strings.Join(args[1:], " "))
			if err != nil {
				return fmt.Errorf("tool %s failed: %w", t.Name(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.AddCommand(list, call)
	return cmd
}
