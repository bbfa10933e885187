package prebuilt

import (
	"context"
	"regexp"
	"strings"

	"github.com/smallnest/multiagent/graph"
	"github.com/smallnest/multiagent/log"
	"github.com/smallnest/multiagent/memory"
	"github.com/tmc/langchaingo/llms"
)

const (
	// DefaultMaxIterations is the recursion limit used by RunTask.
	DefaultMaxIterations = 10

	// TaskLogKey is the blackboard list receiving one entry per agent step.
	TaskLogKey = "task_log"
	// CurrentTaskKey is the blackboard key holding the running task.
	CurrentTaskKey = "current_task"

	noOutput = "No output generated"
)

var nextAgentPattern = regexp.MustCompile(`(?i)NEXT_AGENT:\s*(\w+)`)

// Route reads the orchestrator's decision from the last message. It returns
// the member to run next, or graph.END for FINISH, an unknown agent or a
// missing decision.
func Route(state TeamState) string {
	if len(state.Messages) == 0 {
		return graph.END
	}

	match := nextAgentPattern.FindStringSubmatch(LastMessageText(state.Messages))
	if match != nil {
		next := strings.ToLower(match[1])
		if next == "finish" {
			log.Info("[Router] Decision: FINISH (Task completed)")
			return graph.END
		}
		for _, member := range Members {
			if next == string(member) {
				log.Info("[Router] Decision: Transfer to %s", strings.ToUpper(next))
				return next
			}
		}
	}

	log.Info("[Router] No next agent specified. Ending.")
	return graph.END
}

type teamOptions struct {
	blackboard memory.Blackboard
}

// TeamOption configures NewTeam and RunTask.
type TeamOption func(*teamOptions)

// WithBlackboard records the task and a summary of every agent step in bb.
func WithBlackboard(bb memory.Blackboard) TeamOption {
	return func(o *teamOptions) {
		o.blackboard = bb
	}
}

// NewTeam builds the team graph:
//
//	orchestrator -> [researcher|coder|reviewer] -> orchestrator -> ... -> END
//
// All agents share model.
func NewTeam(model llms.Model, opts ...TeamOption) (*graph.StateRunnable[TeamState], error) {
	options := &teamOptions{}
	for _, opt := range opts {
		opt(options)
	}

	workflow := graph.NewStateGraph[TeamState]()
	workflow.SetSchema(NewTeamSchema())

	for _, role := range append([]Role{RoleOrchestrator}, Members...) {
		node, err := NewRoleNode(role, model)
		if err != nil {
			return nil, err
		}
		description, _ := RolePrompt(role)
		workflow.AddNode(node.Name, firstLine(description), recordStep(node, options.blackboard))
	}

	workflow.SetEntryPoint(string(RoleOrchestrator))
	workflow.AddConditionalEdge(string(RoleOrchestrator), func(ctx context.Context, state TeamState) string {
		return Route(state)
	})
	for _, member := range Members {
		workflow.AddEdge(string(member), string(RoleOrchestrator))
	}

	runnable, err := workflow.Compile()
	if err != nil {
		return nil, err
	}
	log.Info("Multi-agent graph created successfully")
	return runnable, nil
}

// RunTask runs task through the team and returns the text of the last
// message. maxIterations bounds the number of graph steps; zero means
// DefaultMaxIterations.
func RunTask(ctx context.Context, model llms.Model, task string, maxIterations int, opts ...TeamOption) (string, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	options := &teamOptions{}
	for _, opt := range opts {
		opt(options)
	}

	team, err := NewTeam(model, opts...)
	if err != nil {
		return "", err
	}

	log.Info("Starting task: %s...", truncate(task, 50))
	if bb := options.blackboard; bb != nil {
		if err := bb.Set(ctx, CurrentTaskKey, task); err != nil {
			log.Warn("failed to record task: %v", err)
		}
	}

	initial := TeamState{
		Messages: []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, task)},
	}
	final, err := team.InvokeWithConfig(ctx, initial, &graph.Config{RecursionLimit: maxIterations})
	if err != nil {
		return "", err
	}

	output := noOutput
	if len(final.Messages) > 0 {
		output = LastMessageText(final.Messages)
	}
	log.Info("Task completed")
	return output, nil
}

// recordStep wraps an agent so that each step is appended to the task log.
func recordStep(node *AgentNode, bb memory.Blackboard) func(context.Context, TeamState) (TeamState, error) {
	if bb == nil {
		return node.Run
	}
	return func(ctx context.Context, state TeamState) (TeamState, error) {
		update, err := node.Run(ctx, state)
		if err != nil {
			return update, err
		}
		entry := map[string]any{
			"agent":  node.Name,
			"output": truncate(LastMessageText(update.Messages), 200),
		}
		if err := bb.Append(ctx, TaskLogKey, entry); err != nil {
			log.Warn("failed to append to %s: %v", TaskLogKey, err)
		}
		return update, nil
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
