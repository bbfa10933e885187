package prebuilt

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/multiagent/log"
	"github.com/smallnest/multiagent/tool"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// DefaultMaxToolRounds bounds the tool-call loop of an AgentNode.
const DefaultMaxToolRounds = 10

// ErrEmptyResponse is returned when the model returns no choices.
var ErrEmptyResponse = errors.New("empty response from model")

// AgentNode is a graph node wrapping a chat model with a system prompt and
// a set of tools. While the model asks for tools, the node runs them and
// calls the model again with their results.
type AgentNode struct {
	Name         string
	SystemPrompt string
	Model        llms.Model
	Tools        []tools.Tool

	// MaxToolRounds caps model calls that request tools. Zero means
	// DefaultMaxToolRounds.
	MaxToolRounds int
}

// Run executes the agent on state and returns the state update: the
// messages it produced and its name as CurrentAgent.
func (a *AgentNode) Run(ctx context.Context, state TeamState) (TeamState, error) {
	log.Info("[%s] Processing...", a.Name)

	messages, err := a.Respond(ctx, state.Messages)
	if err != nil {
		return TeamState{}, err
	}

	log.Info("[%s] Response generated", a.Name)
	return TeamState{
		Messages:     messages,
		CurrentAgent: a.Name,
	}, nil
}

// Respond sends history, preceded by the system prompt, to the model and
// returns the new messages: every model reply and tool result in order, the
// final model reply last.
func (a *AgentNode) Respond(ctx context.Context, history []llms.MessageContent) ([]llms.MessageContent, error) {
	messages := make([]llms.MessageContent, 0, len(history)+1)
	if a.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, a.SystemPrompt))
	}
	messages = append(messages, history...)

	var opts []llms.CallOption
	if len(a.Tools) > 0 {
		opts = append(opts, llms.WithTools(tool.Definitions(a.Tools)))
	}

	maxRounds := a.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}

	var newMessages []llms.MessageContent
	for round := 0; ; round++ {
		choice, err := a.generate(ctx, messages, opts)
		if err != nil {
			return nil, err
		}

		reply := aiMessage(choice)
		newMessages = append(newMessages, reply)
		if len(choice.ToolCalls) == 0 {
			return newMessages, nil
		}
		if round >= maxRounds {
			return nil, fmt.Errorf("agent %s exceeded %d tool rounds", a.Name, maxRounds)
		}

		messages = append(messages, reply)
		for _, tc := range choice.ToolCalls {
			result := a.callTool(ctx, tc)
			newMessages = append(newMessages, result)
			messages = append(messages, result)
		}
	}
}

func (a *AgentNode) generate(ctx context.Context, messages []llms.MessageContent, opts []llms.CallOption) (*llms.ContentChoice, error) {
	resp, err := a.Model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.Name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("agent %s: %w", a.Name, ErrEmptyResponse)
	}
	return resp.Choices[0], nil
}

// callTool runs one requested tool. Failures become the tool result so the
// model can react to them.
func (a *AgentNode) callTool(ctx context.Context, tc llms.ToolCall) llms.MessageContent {
	var name, arguments string
	if tc.FunctionCall != nil {
		name, arguments = tc.FunctionCall.Name, tc.FunctionCall.Arguments
	}
	log.Info("[%s] Calling tool: %s", a.Name, name)

	var content string
	if t := a.findTool(name); t == nil {
		content = fmt.Sprintf("Tool %s not found.", name)
	} else if out, err := t.Call(ctx, tool.Input(t, arguments)); err != nil {
		content = fmt.Sprintf("Error executing tool: %v", err)
	} else {
		content = out
	}

	return llms.MessageContent{
		Role: llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{llms.ToolCallResponse{
			ToolCallID: tc.ID,
			Name:       name,
			Content:    content,
		}},
	}
}

func (a *AgentNode) findTool(name string) tools.Tool {
	for _, t := range a.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

// aiMessage converts a model choice into a history message, keeping its
// tool calls so tool results can refer to them.
func aiMessage(choice *llms.ContentChoice) llms.MessageContent {
	msg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if choice.Content != "" || len(choice.ToolCalls) == 0 {
		msg.Parts = append(msg.Parts, llms.TextPart(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		msg.Parts = append(msg.Parts, tc)
	}
	return msg
}
