// Package memory provides the conversational and shared memory used by agents.
//
// # Agent memory
//
// AgentMemory keeps a sliding window of recent messages for a single agent so
// that the context sent to the model stays within token limits. The system
// prompt is held outside the window:
//
//	mem := memory.NewAgentMemory("coder", 10)
//	mem.SetSystemPrompt("You are a Go expert.")
//	mem.AddUser("How do I reverse a slice?")
//	resp, err := model.GenerateContent(ctx, mem.MessageContents())
//
// # Shared memory
//
// Blackboard is a key-value store that several agents read and write, for
// example to publish research results or keep a task log. SharedMemory is the
// in-process implementation and Shared returns the process-wide instance:
//
//	board := memory.Shared()
//	board.Append(ctx, "task_log", "Researcher: completed analysis")
//
// store/redis provides a Blackboard that can be shared between processes.
package memory
