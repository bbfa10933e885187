package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/smallnest/multiagent/config"
	"github.com/smallnest/multiagent/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools over MCP or call a tool on an MCP server",
	}
	cmd.AddCommand(newMCPServeCmd(a), newMCPCallCmd())
	return cmd
}

// newMCPServer exposes the built-in tools and a read-only view of the
// settings.
func newMCPServer(name string, s *config.Settings, web bool) *mcp.Server {
	srv := mcp.NewServer(name)
	srv.AddTools(availableTools(web)...)
	srv.AddResource(mcp.Resource{
		URI:         "config://settings",
		Name:        "settings",
		Description: "Active LLM provider and model",
		MimeType:    "application/json",
		Reader: func(context.Context) (string, error) {
			data, err := json.Marshal(map[string]any{
				"provider":    s.LLMProvider,
				"model":       s.LLMModel,
				"temperature": s.AgentTemperature,
				"max_tokens":  s.AgentMaxTokens,
			})
			return string(data), err
		},
	})
	return srv
}

func newMCPServeCmd(a *app) *cobra.Command {
	var (
		name string
		web  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built-in tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := newMCPServer(name, a.settings, web)
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&name, "name", "multi-agent-tools", "server name reported to clients")
	cmd.Flags().BoolVar(&web, "web", false, "also expose fetch_url and web_search")
	return cmd
}

func newMCPCallCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "call [TOOL [JSON_ARGS]]",
		Short: "Start an MCP server command and call one of its tools",
		Long: "Start an MCP server command and call one of its tools.\n\n" +
			"Without a tool name the server's tools are listed.",
		Example: `  multiagent mcp call calculate '{"expression": "2 + 2"}'
  multiagent mcp call --server "npx -y @modelcontextprotocol/server-everything" echo '{"message": "hi"}'`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			command := strings.Fields(server)
			if len(command) == 0 {
				self, err := os.Executable()
				if err != nil {
					return err
				}
				command = []string{self, "mcp", "serve"}
			}

			client, err := mcp.NewCommandClient(ctx, command[0], command[1:]...)
			if err != nil {
				return err
			}
			defer client.Close()

			info, err := client.Connect(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				infos, err := client.ListTools(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", titleStyle.Render(info.ServerInfo.Name), dimStyle.Render(info.ServerInfo.Version))
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, t := range infos {
					fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
				}
				return w.Flush()
			}

			toolArgs := map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
					return fmt.Errorf("arguments must be a JSON object: %w", err)
				}
			}
			result, err := client.CallTool(ctx, args[0], toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server command line (default: this binary's 'mcp serve')")
	return cmd
}
