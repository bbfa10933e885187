package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/smallnest/multiagent/llm"
	"github.com/smallnest/multiagent/memory"
	"github.com/smallnest/multiagent/prebuilt"
	"github.com/smallnest/multiagent/tool"
	"github.com/spf13/cobra"
)

const chatSystemPrompt = "You are a friendly and knowledgeable AI assistant. " +
	"Respond concisely but completely."

func newChatCmd(a *app) *cobra.Command {
	var (
		system    string
		stream    bool
		withTools bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a model that remembers the conversation",
		Long: "Chat with a model that remembers the conversation.\n\n" +
			"Type 'clear' to forget the history and 'exit' to quit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, err := a.newModel(cmd.Context(), llm.TypeGeneral)
			if err != nil {
				return err
			}

			mem := memory.NewAgentMemory("chat_agent", a.settings.MemoryMaxMessages)
			mem.SetSystemPrompt(system)

			var opts []prebuilt.ChatOption
			if withTools {
				opts = append(opts, prebuilt.WithChatTools(tool.All()...))
			}
			agent := prebuilt.NewChatAgent(model, mem, opts...)

			out := cmd.OutOrStdout()
			banner(out, "Chat with "+model.String())
			fmt.Fprintln(out, dimStyle.Render("Type 'exit' to quit, 'clear' to clear memory"))
			return runChat(cmd.Context(), agent, cmd.InOrStdin(), out, stream)
		},
	}

	cmd.Flags().StringVar(&system, "system", chatSystemPrompt, "system prompt")
	cmd.Flags().BoolVar(&stream, "stream", true, "print the reply as it is generated")
	cmd.Flags().BoolVar(&withTools, "tools", false, "let the model call the built-in tools")
	return cmd
}

// runChat reads one message per line until EOF or "exit".
func runChat(ctx context.Context, agent *prebuilt.ChatAgent, in io.Reader, out io.Writer, stream bool) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n"+userStyle.Render("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nGoodbye!")
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "clear":
			agent.Reset()
			fmt.Fprintln(out, "Memory cleared!")
			continue
		}

		fmt.Fprint(out, speakerStyle.Render("Assistant: "))
		var err error
		if stream {
			_, err = agent.Stream(ctx, input, out)
			fmt.Fprintln(out)
		} else {
			var reply string
			reply, err = agent.Chat(ctx, input)
			fmt.Fprintln(out, reply)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
		}
	}
}
