package prebuilt

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// MockModel replies from a script, then with "default response". It
// records every call.
type MockModel struct {
	mu      sync.Mutex
	replies []*llms.ContentChoice
	calls   [][]llms.MessageContent
	options []llms.CallOptions
}

func newMockModel(replies ...string) *MockModel {
	m := &MockModel{}
	for _, r := range replies {
		m.replies = append(m.replies, &llms.ContentChoice{Content: r})
	}
	return m
}

func (m *MockModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	m.mu.Lock()
	m.calls = append(m.calls, append([]llms.MessageContent(nil), messages...))
	m.options = append(m.options, opts)
	choice := &llms.ContentChoice{Content: "default response"}
	if len(m.replies) > 0 {
		choice = m.replies[0]
		m.replies = m.replies[1:]
	}
	m.mu.Unlock()

	if opts.StreamingFunc != nil {
		words := strings.SplitAfter(choice.Content, " ")
		for _, word := range words {
			if err := opts.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}

	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

func (m *MockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *MockModel) Calls() [][]llms.MessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// RoleModel answers according to the system prompt it receives: the first
// reply whose key is contained in the prompt wins.
type RoleModel struct {
	mu      sync.Mutex
	answers map[string]func(messages []llms.MessageContent) string
	calls   []string
}

func (m *RoleModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	system := ""
	if len(messages) > 0 && messages[0].Role == llms.ChatMessageTypeSystem {
		system = MessageText(messages[0])
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, answer := range m.answers {
		if strings.Contains(system, key) {
			m.calls = append(m.calls, key)
			return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: answer(messages)}}}, nil
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "default response"}}}, nil
}

func (m *RoleModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func fixed(s string) func([]llms.MessageContent) string {
	return func([]llms.MessageContent) string { return s }
}
