package prebuilt

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/smallnest/multiagent/memory"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// ChatAgent represents a session with a user and can handle multi-turn conversations.
// The history lives in an AgentMemory, so only the most recent messages are
// sent to the model.
type ChatAgent struct {
	// The session ID for this conversation
	threadID string
	// Conversation history
	memory *memory.AgentMemory
	// Model used for every turn
	model llms.Model
	// Tools the model may call during a turn
	tools []tools.Tool
}

// ChatOption configures a ChatAgent.
type ChatOption func(*ChatAgent)

// WithChatTools lets the model call tools while answering.
func WithChatTools(ts ...tools.Tool) ChatOption {
	return func(c *ChatAgent) {
		c.tools = append(c.tools, ts...)
	}
}

// NewChatAgent creates a new ChatAgent backed by mem. A nil mem creates a
// memory named "assistant" with the configured capacity.
func NewChatAgent(model llms.Model, mem *memory.AgentMemory, opts ...ChatOption) *ChatAgent {
	if mem == nil {
		mem = memory.NewAgentMemory("assistant", 0)
	}
	c := &ChatAgent{
		threadID: uuid.New().String(),
		memory:   mem,
		model:    model,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ThreadID returns the current session ID.
func (c *ChatAgent) ThreadID() string {
	return c.threadID
}

// Memory returns the conversation memory.
func (c *ChatAgent) Memory() *memory.AgentMemory {
	return c.memory
}

// Reset clears the history and starts a new session. The system prompt is kept.
func (c *ChatAgent) Reset() {
	c.memory.Clear()
	c.threadID = uuid.New().String()
}

// Chat sends a message to the agent and returns the response.
// Both the message and the response are added to memory.
func (c *ChatAgent) Chat(ctx context.Context, message string) (string, error) {
	c.memory.AddUser(message)

	node := &AgentNode{
		Name:  c.memory.Name(),
		Model: c.model,
		Tools: c.tools,
	}
	messages, err := node.Respond(ctx, c.memory.MessageContents())
	if err != nil {
		return "", err
	}

	reply := LastMessageText(messages)
	c.memory.AddAssistant(reply)
	return reply, nil
}

// Stream is like Chat but writes the response to w as the model produces
// it. With tools configured the response is written once complete.
func (c *ChatAgent) Stream(ctx context.Context, message string, w io.Writer) (string, error) {
	if len(c.tools) > 0 {
		reply, err := c.Chat(ctx, message)
		if err != nil {
			return "", err
		}
		_, err = fmt.Fprint(w, reply)
		return reply, err
	}

	c.memory.AddUser(message)

	resp, err := c.model.GenerateContent(ctx, c.memory.MessageContents(),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			_, err := w.Write(chunk)
			return err
		}),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	reply := resp.Choices[0].Content
	c.memory.AddAssistant(reply)
	return reply, nil
}
