package prebuilt

import (
	"strings"

	"github.com/smallnest/multiagent/graph"
	"github.com/tmc/langchaingo/llms"
)

// TeamState is the state shared by the nodes of the agent team graph.
type TeamState struct {
	// Messages contains the conversation history. Node outputs are appended.
	Messages []llms.MessageContent

	// CurrentAgent is the name of the last agent that ran
	CurrentAgent string

	// TaskComplete is set once an agent declares the task finished
	TaskComplete bool

	// FinalOutput holds the aggregated result, when an agent provides one
	FinalOutput string
}

// NewTeamSchema returns the schema merging agent outputs into a TeamState.
func NewTeamSchema() graph.StateSchema[TeamState] {
	return graph.NewFuncSchema(TeamState{}, func(current, update TeamState) (TeamState, error) {
		messages := make([]llms.MessageContent, 0, len(current.Messages)+len(update.Messages))
		messages = append(messages, current.Messages...)
		current.Messages = append(messages, update.Messages...)

		if update.CurrentAgent != "" {
			current.CurrentAgent = update.CurrentAgent
		}
		current.TaskComplete = current.TaskComplete || update.TaskComplete
		if update.FinalOutput != "" {
			current.FinalOutput = update.FinalOutput
		}
		return current, nil
	})
}

// MessageText returns the text parts of a message joined together.
func MessageText(msg llms.MessageContent) string {
	var sb strings.Builder
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			sb.WriteString(p.Text)
		case llms.ToolCallResponse:
			sb.WriteString(p.Content)
		}
	}
	return sb.String()
}

// LastMessageText returns the text of the last message, or "" when there
// are none.
func LastMessageText(messages []llms.MessageContent) string {
	if len(messages) == 0 {
		return ""
	}
	return MessageText(messages[len(messages)-1])
}
