package prebuilt

import (
	"context"
	"errors"
	"testing"

	"github.com/smallnest/multiagent/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{
		ID:           id,
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
	}
}

type failingTool struct{}

func (failingTool) Name() string        { return "broken" }
func (failingTool) Description() string { return "always fails" }
func (failingTool) Call(ctx context.Context, input string) (string, error) {
	return "", errors.New("boom")
}

func TestAgentNode_Run(t *testing.T) {
	model := newMockModel("Hello from the agent")
	node := &AgentNode{Name: "helper", SystemPrompt: "You help.", Model: model}

	update, err := node.Run(context.Background(), TeamState{
		Messages: []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "hi")},
	})
	require.NoError(t, err)

	assert.Equal(t, "helper", update.CurrentAgent)
	require.Len(t, update.Messages, 1)
	assert.Equal(t, llms.ChatMessageTypeAI, update.Messages[0].Role)
	assert.Equal(t, "Hello from the agent", MessageText(update.Messages[0]))

	calls := model.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, calls[0][0].Role)
	assert.Equal(t, "You help.", MessageText(calls[0][0]))
	assert.Empty(t, model.options[0].Tools)
}

func TestAgentNode_ToolLoop(t *testing.T) {
	model := &MockModel{replies: []*llms.ContentChoice{
		{ToolCalls: []llms.ToolCall{
			toolCall("call_1", "calculate", `{"expression": "2 + 3"}`),
			toolCall("call_2", "missing", `{}`),
			toolCall("call_3", "broken", `{"input": "x"}`),
		}},
		{Content: "The answer is 5"},
	}}
	node := &AgentNode{
		Name:  "coder",
		Model: model,
		Tools: []tools.Tool{tool.Calculate, failingTool{}},
	}

	messages, err := node.Respond(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "what is 2+3?"),
	})
	require.NoError(t, err)
	require.Len(t, messages, 5)

	assert.Equal(t, llms.ChatMessageTypeAI, messages[0].Role)
	assert.Len(t, messages[0].Parts, 3)

	results := make([]llms.ToolCallResponse, 0, 3)
	for _, msg := range messages[1:4] {
		assert.Equal(t, llms.ChatMessageTypeTool, msg.Role)
		results = append(results, msg.Parts[0].(llms.ToolCallResponse))
	}
	assert.Equal(t, "call_1", results[0].ToolCallID)
	assert.Equal(t, "Result: 5", results[0].Content)
	assert.Equal(t, "Tool missing not found.", results[1].Content)
	assert.Equal(t, "Error executing tool: boom", results[2].Content)

	assert.Equal(t, "The answer is 5", MessageText(messages[4]))

	// The second call sees the tool call and its results.
	calls := model.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1], 1+1+3)
	assert.ElementsMatch(t, []string{"calculate", "broken"}, toolNames(model.options[0].Tools))
}

func TestAgentNode_MaxToolRounds(t *testing.T) {
	loop := &llms.ContentChoice{ToolCalls: []llms.ToolCall{toolCall("c", "calculate", `{"expression": "1+1"}`)}}
	model := &MockModel{replies: []*llms.ContentChoice{loop, loop, loop}}
	node := &AgentNode{Name: "looper", Model: model, Tools: []tools.Tool{tool.Calculate}, MaxToolRounds: 2}

	_, err := node.Respond(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 2 tool rounds")
}

type emptyModel struct{}

func (emptyModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func (emptyModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func TestAgentNode_EmptyResponse(t *testing.T) {
	node := &AgentNode{Name: "quiet", Model: emptyModel{}}
	_, err := node.Respond(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewRoleNode(t *testing.T) {
	model := newMockModel()

	tests := []struct {
		role  Role
		tools []string
	}{
		{RoleOrchestrator, []string{}},
		{RoleResearcher, []string{"web_search_mock", "read_file"}},
		{RoleCoder, []string{"write_file", "read_file", "calculate"}},
		{RoleReviewer, []string{"read_file"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			node, err := NewRoleNode(tt.role, model)
			require.NoError(t, err)
			assert.Equal(t, string(tt.role), node.Name)
			assert.NotEmpty(t, node.SystemPrompt)
			assert.Equal(t, tt.tools, tool.Names(node.Tools))
		})
	}

	prompt, ok := RolePrompt(RoleOrchestrator)
	require.True(t, ok)
	assert.Contains(t, prompt, "NEXT_AGENT: [researcher|coder|reviewer|FINISH]")

	_, err := NewRoleNode("manager", model)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func toolNames(defs []llms.Tool) []string {
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Function.Name)
	}
	return names
}
