// Package prebuilt provides the ready-made agents and teams of the project.
//
// # Agent team
//
// An orchestrator reads the task and hands work to a researcher, a coder or
// a reviewer. Each member reports back to the orchestrator, which decides
// the next step with a line of the form
//
//	NEXT_AGENT: [researcher|coder|reviewer|FINISH]
//
// The team is a graph.StateGraph[TeamState]; every member is an AgentNode
// with its own system prompt and tools from the tool package:
//
//	out, err := prebuilt.RunTask(ctx, model, "Write a factorial function", 10,
//		prebuilt.WithBlackboard(memory.Shared()),
//	)
//
// # Round-robin team
//
// Planner, Coder and Reviewer speak in turn over a shared transcript until
// one of them writes TERMINATE or 15 messages have been exchanged:
//
//	team := prebuilt.NewDefaultRoundRobinTeam(model)
//	result, err := team.Run(ctx, "Create a todo list class")
//	fmt.Println(prebuilt.FormatTranscript(result.Messages))
//
//	// Or receive messages as they are produced
//	msgs, errc := team.Stream(ctx, "Create a todo list class")
//	for msg := range msgs {
//		fmt.Printf("[%s] %s\n", msg.Source, msg.Content)
//	}
//	if err := <-errc; err != nil {
//		return err
//	}
//
// # Chat agent
//
// ChatAgent holds a multi-turn conversation in a memory.AgentMemory, so
// only the most recent messages reach the model:
//
//	agent := prebuilt.NewChatAgent(model, memory.NewAgentMemoryWithPrompt("assistant", "Be brief."),
//		prebuilt.WithChatTools(tool.All()...),
//	)
//	reply, err := agent.Chat(ctx, "What is 2+2?")
package prebuilt
