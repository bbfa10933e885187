package main

import (
	"context"
	"fmt"
	"io"

	"github.com/smallnest/multiagent/memory"
	"github.com/spf13/cobra"
)

func newMemoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memory",
		Short: "Demonstrate private agent memory and shared memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			banner(out, "Multi-Agent Memory System Demo")
			demoAgentMemory(out)
			return demoSharedMemory(cmd.Context(), out, memory.Shared())
		},
	}
}

func demoAgentMemory(w io.Writer) {
	section(w, "Agent Memory (Conversational)")

	mem := memory.NewAgentMemoryWithPrompt("assistant", "You are an expert Go assistant.")
	mem.AddUser("How do I create a slice in Go?")
	mem.AddAssistant("Use a slice literal: `nums := []int{1, 2, 3}`")
	mem.AddUser("How do I add an element?")
	mem.AddAssistant("Use the built-in append: `nums = append(nums, 4)`")

	fmt.Fprintf(w, "Messages in memory: %d\n", mem.Len())
	fmt.Fprintln(w, "\nLast 2 messages:")
	for _, msg := range mem.LastN(2) {
		fmt.Fprintf(w, "  [%s]: %s\n", msg.Role, preview(msg.Content, 50))
	}

	fmt.Fprintln(w, "\nChat format:")
	msgs := mem.Messages(true)
	for _, m := range msgs[:min(3, len(msgs))] {
		fmt.Fprintf(w, "  (%s, %q)\n", m.Role, preview(m.Content, 40))
	}
}

func demoSharedMemory(ctx context.Context, w io.Writer, shared memory.Blackboard) error {
	section(w, "Shared Memory (Inter-Agent)")

	fmt.Fprintln(w, "Researcher saves research results...")
	err := shared.Set(ctx, "research_findings", map[string]any{
		"topic":    "Design Patterns",
		"patterns": []string{"Singleton", "Factory", "Observer"},
		"source":   "Gang of Four",
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Coder reads research and logs activity...")
	findings, _, err := shared.Get(ctx, "research_findings")
	if err != nil {
		return err
	}
	if f, ok := findings.(map[string]any); ok {
		fmt.Fprintf(w, "  Coder read: %v\n", f["patterns"])
	}

	for _, entry := range []string{
		"Researcher: analysis completed",
		"Coder: implemented Singleton",
		"Reviewer: code approved",
	} {
		if err := shared.Append(ctx, "task_log", entry); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\nShared task log:")
	entries, _, err := shared.Get(ctx, "task_log")
	if err != nil {
		return err
	}
	list, _ := entries.([]any)
	for _, entry := range list {
		fmt.Fprintf(w, "  - %v\n", entry)
	}

	return shared.Clear(ctx)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
