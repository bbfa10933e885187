package a2a

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskState is the lifecycle state of a Task.
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

// Done reports whether the task has finished, successfully or not.
func (s TaskState) Done() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// AgentCard describes an agent's identity and capabilities. Agents publish
// it at /.well-known/agent.json.
type AgentCard struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Version     string   `json:"version"`
	Skills      []string `json:"skills"`
	InputModes  []string `json:"input_modes"`
	OutputModes []string `json:"output_modes"`
}

// NewAgentCard creates a card with text input and output modes.
func NewAgentCard(name, description, url string, skills ...string) *AgentCard {
	if skills == nil {
		skills = []string{}
	}
	return &AgentCard{
		Name:        name,
		Description: description,
		URL:         url,
		Version:     "1.0.0",
		Skills:      skills,
		InputModes:  []string{"text"},
		OutputModes: []string{"text"},
	}
}

// HasSkill reports whether the card lists skill, ignoring case.
func (c *AgentCard) HasSkill(skill string) bool {
	for _, s := range c.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// Message is exchanged between agents.
type Message struct {
	ID          string         `json:"id"`
	Sender      string         `json:"sender"`
	Receiver    string         `json:"receiver"`
	Content     string         `json:"content"`
	ContentType string         `json:"content_type"`
	Metadata    map[string]any `json:"metadata"`
	Timestamp   string         `json:"timestamp"`
}

// NewMessage creates a text message from sender.
func NewMessage(sender, content string, metadata map[string]any) *Message {
	m := &Message{Sender: sender, Content: content, Metadata: metadata}
	m.fillDefaults()
	return m
}

func (m *Message) fillDefaults() {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.ContentType == "" {
		m.ContentType = "text"
	}
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	if m.Timestamp == "" {
		m.Timestamp = now()
	}
}

// Task is a unit of work submitted to an agent.
type Task struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	State       TaskState      `json:"state"`
	Result      string         `json:"result"`
	Error       string         `json:"error"`
	CreatedAt   string         `json:"created_at"`
	CompletedAt string         `json:"completed_at"`
	Metadata    map[string]any `json:"metadata"`
}

// NewTask creates a pending task.
func NewTask(description string, metadata map[string]any) *Task {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Task{
		ID:          uuid.New().String(),
		Description: description,
		State:       TaskStatePending,
		CreatedAt:   now(),
		Metadata:    metadata,
	}
}

// Clone returns a copy that shares no mutable state with t.
func (t *Task) Clone() *Task {
	c := *t
	c.Metadata = make(map[string]any, len(t.Metadata))
	for k, v := range t.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

// MessageResponse is returned by POST /messages.
type MessageResponse struct {
	Status   string `json:"status"`
	Response string `json:"response"`
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
