package prebuilt

import (
	"errors"
	"fmt"

	"github.com/smallnest/multiagent/tool"
	"github.com/tmc/langchaingo/llms"
)

// Role identifies a member of the agent team.
type Role string

const (
	RoleOrchestrator Role = "orchestrator"
	RoleResearcher   Role = "researcher"
	RoleCoder        Role = "coder"
	RoleReviewer     Role = "reviewer"
)

// ErrUnknownRole is returned by NewRoleNode for a role outside the team.
var ErrUnknownRole = errors.New("unknown role")

// Members are the roles the orchestrator can hand work to, in routing order.
var Members = []Role{RoleResearcher, RoleCoder, RoleReviewer}

type roleSpec struct {
	prompt string
	tools  []string
}

var roles = map[Role]roleSpec{
	RoleOrchestrator: {
		prompt: `You are the Team Orchestrator. Your role is:
1. Analyze the user's task
2. Decide which agent should work on it (researcher, coder, reviewer)
3. Coordinate the workflow
4. Aggregate final results

Always respond in this format:
NEXT_AGENT: [researcher|coder|reviewer|FINISH]
INSTRUCTION: [instructions for next agent or final result]`,
	},
	RoleResearcher: {
		prompt: `You are an Expert Researcher. Your role is:
1. Search for relevant information
2. Analyze and synthesize data
3. Provide context and background

You have access to search tools. Always use tools when needed.
Respond with structured information and cite sources when possible.`,
		tools: []string{"web_search_mock", "read_file"},
	},
	RoleCoder: {
		prompt: `You are a Senior Developer. Your role is:
1. Write clean, working code
2. Implement solutions based on requirements
3. Follow best practices

Always write complete, testable code.
Include explanatory comments.`,
		tools: []string{"write_file", "read_file", "calculate"},
	},
	RoleReviewer: {
		prompt: `You are an Expert Code Reviewer. Your role is:
1. Analyze the produced code
2. Identify bugs and issues
3. Suggest improvements

Be constructive and specific in feedback.
If the code is good, confirm it.`,
		tools: []string{"read_file"},
	},
}

// RolePrompt returns the system prompt of role.
func RolePrompt(role Role) (string, bool) {
	spec, ok := roles[role]
	return spec.prompt, ok
}

// RoleTools returns the names of the tools available to role.
func RoleTools(role Role) []string {
	return append([]string(nil), roles[role].tools...)
}

// NewRoleNode builds the agent node for a team role, named after the role.
func NewRoleNode(role Role, model llms.Model) (*AgentNode, error) {
	spec, ok := roles[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	node := &AgentNode{
		Name:         string(role),
		SystemPrompt: spec.prompt,
		Model:        model,
	}
	if len(spec.tools) > 0 {
		node.Tools = tool.ForAgent(spec.tools...)
	}
	return node, nil
}
