package prebuilt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/smallnest/multiagent/graph"
	"github.com/smallnest/multiagent/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

const (
	// UserSource is the source of the task message in a transcript.
	UserSource = "user"

	// DefaultMaxTurns bounds a round-robin run without a termination condition.
	DefaultMaxTurns = 100
)

// TeamMessage is one entry of a round-robin transcript.
type TeamMessage struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// TeamResult is the outcome of a round-robin run.
type TeamResult struct {
	Messages   []TeamMessage
	StopReason string
}

// Assistant is a round-robin participant.
type Assistant struct {
	Name          string
	SystemMessage string
	Model         llms.Model
	Tools         []tools.Tool
}

// Reply produces the assistant's next message for transcript. Its own
// earlier messages are sent as AI messages; everybody else's as human
// messages prefixed with the speaker's name.
func (a *Assistant) Reply(ctx context.Context, transcript []TeamMessage) (string, error) {
	history := make([]llms.MessageContent, 0, len(transcript))
	for _, msg := range transcript {
		switch msg.Source {
		case a.Name:
			history = append(history, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
		case UserSource:
			history = append(history, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		default:
			history = append(history, llms.TextParts(llms.ChatMessageTypeHuman, msg.Source+": "+msg.Content))
		}
	}

	node := &AgentNode{
		Name:         a.Name,
		SystemPrompt: a.SystemMessage,
		Model:        a.Model,
		Tools:        a.Tools,
	}
	messages, err := node.Respond(ctx, history)
	if err != nil {
		return "", err
	}
	return LastMessageText(messages), nil
}

// TerminationCondition decides after every message whether a round-robin
// run should stop, and why.
type TerminationCondition interface {
	Check(messages []TeamMessage) (stop bool, reason string)
}

type textMention struct {
	text string
}

// TextMention stops when the newest message contains text.
func TextMention(text string) TerminationCondition {
	return textMention{text: text}
}

func (t textMention) Check(messages []TeamMessage) (bool, string) {
	if len(messages) == 0 || !strings.Contains(messages[len(messages)-1].Content, t.text) {
		return false, ""
	}
	return true, fmt.Sprintf("Text '%s' mentioned", t.text)
}

type maxMessages struct {
	n int
}

// MaxMessages stops once the transcript, task included, holds n messages.
func MaxMessages(n int) TerminationCondition {
	return maxMessages{n: n}
}

func (m maxMessages) Check(messages []TeamMessage) (bool, string) {
	if len(messages) < m.n {
		return false, ""
	}
	return true, fmt.Sprintf("Maximum number of messages %d reached, current message count: %d", m.n, len(messages))
}

type or []TerminationCondition

// Or stops when any of conditions does.
func Or(conditions ...TerminationCondition) TerminationCondition {
	return or(conditions)
}

func (o or) Check(messages []TeamMessage) (bool, string) {
	for _, c := range o {
		if stop, reason := c.Check(messages); stop {
			return true, reason
		}
	}
	return false, ""
}

// RoundRobinTeam lets participants speak in turn until the termination
// condition holds.
type RoundRobinTeam struct {
	Participants []*Assistant
	Termination  TerminationCondition

	// MaxTurns caps the number of replies. Zero means DefaultMaxTurns.
	MaxTurns int
}

// NewRoundRobinTeam creates a team. A nil termination runs until MaxTurns.
func NewRoundRobinTeam(participants []*Assistant, termination TerminationCondition) *RoundRobinTeam {
	return &RoundRobinTeam{
		Participants: participants,
		Termination:  termination,
	}
}

// NewDefaultRoundRobinTeam creates the Planner, Coder and Reviewer team
// ending on TERMINATE or after 15 messages.
func NewDefaultRoundRobinTeam(model llms.Model) *RoundRobinTeam {
	planner := &Assistant{
		Name:  "Planner",
		Model: model,
		SystemMessage: `You are an expert Project Planner.
Your role is:
1. Analyze task requirements
2. Create an implementation plan
3. Identify potential issues

Always respond with a structured plan in bullet points.
When the plan is ready, pass to the Coder.`,
	}
	coder := &Assistant{
		Name:  "Coder",
		Model: model,
		SystemMessage: `You are an expert Senior Developer.
Your role is:
1. Implement code according to the plan
2. Write clean, documented, testable code
3. Follow best practices

Always write complete, working code.
When done, ask the Reviewer to validate.`,
	}
	reviewer := &Assistant{
		Name:  "Reviewer",
		Model: model,
		SystemMessage: `You are a Senior Code Reviewer.
Your role is:
1. Analyze the produced code
2. Verify correctness and quality
3. Identify bugs and improvements

If you find issues, explain what to fix.
If everything is ok, write "APPROVED" and summarize the work done.
When finished, write TERMINATE to conclude.`,
	}

	log.Info("Round-robin team created: Planner, Coder, Reviewer")
	return NewRoundRobinTeam(
		[]*Assistant{planner, coder, reviewer},
		Or(TextMention("TERMINATE"), MaxMessages(15)),
	)
}

// Run executes task and returns the full transcript, task first.
func (t *RoundRobinTeam) Run(ctx context.Context, task string) (*TeamResult, error) {
	log.Info("Starting round-robin task: %s...", truncate(task, 50))
	result, err := t.run(ctx, task, func(TeamMessage) error { return nil })
	if err != nil {
		return nil, err
	}
	log.Info("Round-robin task completed: %s", result.StopReason)
	return result, nil
}

// Stream executes task in the background and delivers each message, task
// first, as it is produced. The error channel receives the outcome once
// the message channel is closed.
func (t *RoundRobinTeam) Stream(ctx context.Context, task string) (<-chan TeamMessage, <-chan error) {
	out := make(chan TeamMessage)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		_, err := t.run(ctx, task, func(msg TeamMessage) error {
			select {
			case out <- msg:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		close(out)
		errc <- err
	}()

	return out, errc
}

type roundRobinState struct {
	Messages   []TeamMessage
	StopReason string
}

func (t *RoundRobinTeam) run(ctx context.Context, task string, emit func(TeamMessage) error) (*TeamResult, error) {
	if len(t.Participants) == 0 {
		return nil, errors.New("round-robin team has no participants")
	}

	transcript := []TeamMessage{{Source: UserSource, Content: task}}
	if err := emit(transcript[0]); err != nil {
		return nil, err
	}
	if stop, reason := t.check(transcript); stop {
		return &TeamResult{Messages: transcript, StopReason: reason}, nil
	}

	workflow := graph.NewStateGraph[roundRobinState]()
	workflow.SetSchema(graph.NewFuncSchema(roundRobinState{}, func(cur, upd roundRobinState) (roundRobinState, error) {
		messages := make([]TeamMessage, 0, len(cur.Messages)+len(upd.Messages))
		messages = append(messages, cur.Messages...)
		cur.Messages = append(messages, upd.Messages...)
		if upd.StopReason != "" {
			cur.StopReason = upd.StopReason
		}
		return cur, nil
	}))

	var spoken []TeamMessage
	for i, p := range t.Participants {
		if _, dup := workflow.Nodes()[p.Name]; dup || p.Name == "" || p.Name == graph.END {
			return nil, fmt.Errorf("invalid participant name: %q", p.Name)
		}

		workflow.AddNode(p.Name, "round-robin participant", func(ctx context.Context, state roundRobinState) (roundRobinState, error) {
			content, err := p.Reply(ctx, state.Messages)
			if err != nil {
				return roundRobinState{}, err
			}
			msg := TeamMessage{Source: p.Name, Content: content}
			spoken = append(spoken, msg)
			if err := emit(msg); err != nil {
				return roundRobinState{}, err
			}

			update := roundRobinState{Messages: []TeamMessage{msg}}
			if stop, reason := t.check(slices.Concat(state.Messages, []TeamMessage{msg})); stop {
				update.StopReason = reason
			}
			return update, nil
		})

		next := t.Participants[(i+1)%len(t.Participants)].Name
		workflow.AddConditionalEdge(p.Name, func(ctx context.Context, state roundRobinState) string {
			if state.StopReason != "" {
				return graph.END
			}
			return next
		})
	}
	workflow.SetEntryPoint(t.Participants[0].Name)

	runnable, err := workflow.Compile()
	if err != nil {
		return nil, err
	}

	maxTurns := t.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	final, err := runnable.InvokeWithConfig(ctx, roundRobinState{Messages: transcript}, &graph.Config{RecursionLimit: maxTurns})
	if errors.Is(err, graph.ErrRecursionLimit) {
		return &TeamResult{
			Messages:   append(transcript, spoken...),
			StopReason: fmt.Sprintf("Maximum number of turns %d reached", maxTurns),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &TeamResult{Messages: final.Messages, StopReason: final.StopReason}, nil
}

func (t *RoundRobinTeam) check(messages []TeamMessage) (bool, string) {
	if t.Termination == nil {
		return false, ""
	}
	return t.Termination.Check(messages)
}

// FormatTranscript renders messages as "**source**: content" paragraphs.
func FormatTranscript(messages []TeamMessage) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, fmt.Sprintf("**%s**: %s", msg.Source, msg.Content))
	}
	return strings.Join(parts, "\n\n")
}
