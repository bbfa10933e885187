package main

import (
	"context"
	"fmt"

	"github.com/smallnest/multiagent/config"
	"github.com/smallnest/multiagent/llm"
	"github.com/smallnest/multiagent/log"
	"github.com/spf13/cobra"
)

// app holds the global flags and the settings resolved from them.
type app struct {
	provider   string
	model      string
	configFile string
	logLevel   string

	settings *config.Settings
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "multiagent",
		Short:        "Run chat agents, agent teams, tools, RAG, MCP and A2A servers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.provider, "provider", "", "LLM provider: gemini, ollama, openai or anthropic")
	flags.StringVar(&a.model, "model", "", "model name (default: configured or recommended model)")
	flags.StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error or none")

	root.AddCommand(
		newChatCmd(a),
		newToolsCmd(a),
		newTeamCmd(a),
		newRoundRobinCmd(a),
		newMemoryCmd(),
		newRAGCmd(a),
		newMCPCmd(a),
		newA2ACmd(a),
		newModelsCmd(a),
	)
	return root
}

// setup loads the settings, applies flag overrides and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var opts []config.Option
	if a.configFile != "" {
		opts = append(opts, config.WithConfigFile(a.configFile))
	}
	s, err := config.Load(opts...)
	if err != nil {
		return err
	}

	if a.provider != "" {
		p, err := config.ParseProvider(a.provider)
		if err != nil {
			return err
		}
		if p != s.LLMProvider {
			s.LLMProvider = p
			s.LLMModel = ""
		}
	}
	if a.model != "" {
		s.LLMModel = a.model
	}
	if a.logLevel != "" {
		s.LogLevel = a.logLevel
	}

	level, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	log.SetDefaultLogger(log.NewCustomLogger(cmd.ErrOrStderr(), level))

	config.Set(s)
	a.settings = s
	log.Debug("Using %s with model %q", s.LLMProvider, s.LLMModel)
	return nil
}

// newModel creates the chat model for the resolved settings. An empty model
// name falls back to the recommended model of type t.
func (a *app) newModel(ctx context.Context, t llm.Type) (*llm.Model, error) {
	opts := []llm.Option{llm.WithSettings(a.settings), llm.WithType(t)}
	if a.settings.LLMModel != "" {
		opts = append(opts, llm.WithModel(a.settings.LLMModel))
	}
	model, err := llm.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return model, nil
}
