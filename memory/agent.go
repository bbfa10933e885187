package memory

import (
	"sync"
	"time"

	"github.com/smallnest/multiagent/config"
	"github.com/smallnest/multiagent/log"
	"github.com/tmc/langchaingo/llms"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single message in an agent's history
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
}

// NewMessage creates a message stamped with the current time
func NewMessage(role, content string, metadata map[string]any) *Message {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// RoleContent is a (role, content) pair as sent to a chat model.
type RoleContent struct {
	Role    string
	Content string
}

// Stats describes memory usage
type Stats struct {
	TotalMessages   int
	Capacity        int
	HasSystemPrompt bool
}

// AgentMemory is the private conversational memory of one agent.
// It keeps a sliding window of the most recent messages; the system prompt
// is stored separately and never evicted.
type AgentMemory struct {
	name         string
	capacity     int
	systemPrompt string

	mu    sync.RWMutex
	ring  []*Message
	start int
	count int
}

// NewAgentMemory creates a memory holding at most maxMessages messages.
// A non-positive maxMessages uses the configured MEMORY_MAX_MESSAGES.
func NewAgentMemory(agentName string, maxMessages int) *AgentMemory {
	if maxMessages <= 0 {
		maxMessages = config.Get().MemoryMaxMessages
	}
	if agentName == "" {
		agentName = "agent"
	}
	return &AgentMemory{
		name:     agentName,
		capacity: maxMessages,
		ring:     make([]*Message, maxMessages),
	}
}

// NewAgentMemoryWithPrompt creates a memory with the default capacity and an
// optional system prompt.
func NewAgentMemoryWithPrompt(agentName, systemPrompt string) *AgentMemory {
	m := NewAgentMemory(agentName, 0)
	if systemPrompt != "" {
		m.SetSystemPrompt(systemPrompt)
	}
	return m
}

// Name returns the owning agent's name.
func (m *AgentMemory) Name() string {
	return m.name
}

// Capacity returns the maximum number of retained messages.
func (m *AgentMemory) Capacity() int {
	return m.capacity
}

// SetSystemPrompt sets the system prompt.
func (m *AgentMemory) SetSystemPrompt(prompt string) {
	m.mu.Lock()
	m.systemPrompt = prompt
	m.mu.Unlock()
	log.Debug("[%s] System prompt set", m.name)
}

// SystemPrompt returns the current system prompt.
func (m *AgentMemory) SystemPrompt() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.systemPrompt
}

// Add appends a message, evicting the oldest one when full.
func (m *AgentMemory) Add(role, content string, metadata map[string]any) {
	msg := NewMessage(role, content, metadata)

	m.mu.Lock()
	if m.count < m.capacity {
		m.ring[(m.start+m.count)%m.capacity] = msg
		m.count++
	} else {
		m.ring[m.start] = msg
		m.start = (m.start + 1) % m.capacity
	}
	m.mu.Unlock()

	log.Debug("[%s] Added message: %s", m.name, truncate(role, 20))
}

// AddUser adds a user message.
func (m *AgentMemory) AddUser(content string) {
	m.Add(RoleUser, content, nil)
}

// AddAssistant adds an assistant message.
func (m *AgentMemory) AddAssistant(content string) {
	m.Add(RoleAssistant, content, nil)
}

// Messages returns the history as role/content pairs, oldest first,
// preceded by the system prompt when includeSystem is set.
func (m *AgentMemory) Messages(includeSystem bool) []RoleContent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RoleContent, 0, m.count+1)
	if includeSystem && m.systemPrompt != "" {
		out = append(out, RoleContent{Role: RoleSystem, Content: m.systemPrompt})
	}
	for _, msg := range m.snapshot() {
		out = append(out, RoleContent{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// LastN returns up to n of the newest messages, oldest first. n <= 0
// yields no messages.
func (m *AgentMemory) LastN(n int) []*Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.snapshot()
	if n <= 0 {
		return []*Message{}
	}
	if n > len(all) {
		n = len(all)
	}
	return all[len(all)-n:]
}

// Clear removes all messages but keeps the system prompt.
func (m *AgentMemory) Clear() {
	m.mu.Lock()
	for i := range m.ring {
		m.ring[i] = nil
	}
	m.start, m.count = 0, 0
	m.mu.Unlock()
	log.Info("[%s] Memory cleared", m.name)
}

// Len returns the number of stored messages, excluding the system prompt.
func (m *AgentMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Stats returns usage statistics.
func (m *AgentMemory) Stats() *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Stats{
		TotalMessages:   m.count,
		Capacity:        m.capacity,
		HasSystemPrompt: m.systemPrompt != "",
	}
}

// MessageContents converts the history, system prompt first, into
// langchaingo messages ready for GenerateContent.
func (m *AgentMemory) MessageContents() []llms.MessageContent {
	pairs := m.Messages(true)
	out := make([]llms.MessageContent, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, llms.TextParts(ChatMessageType(p.Role), p.Content))
	}
	return out
}

// ChatMessageType maps a memory role to the langchaingo message type.
// Unknown roles are sent as generic messages.
func ChatMessageType(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleUser:
		return llms.ChatMessageTypeHuman
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	case RoleTool:
		return llms.ChatMessageTypeTool
	}
	return llms.ChatMessageTypeGeneric
}

// snapshot returns the messages in insertion order. Callers hold mu.
func (m *AgentMemory) snapshot() []*Message {
	out := make([]*Message, 0, m.count)
	for i := 0; i < m.count; i++ {
		out = append(out, m.ring[(m.start+i)%m.capacity])
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
