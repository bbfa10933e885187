package prebuilt

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func defaultTeamModel(reviewer func([]llms.MessageContent) string) *RoleModel {
	return &RoleModel{answers: map[string]func([]llms.MessageContent) string{
		"Project Planner":      fixed("- step 1\n- step 2"),
		"Senior Developer":     fixed("class TodoList: pass"),
		"Senior Code Reviewer": reviewer,
	}}
}

func TestRoundRobinTeam_TextMention(t *testing.T) {
	team := NewDefaultRoundRobinTeam(defaultTeamModel(fixed("APPROVED. TERMINATE")))

	result, err := team.Run(context.Background(), "Create a todo list class")
	require.NoError(t, err)

	assert.Equal(t, []TeamMessage{
		{Source: UserSource, Content: "Create a todo list class"},
		{Source: "Planner", Content: "- step 1\n- step 2"},
		{Source: "Coder", Content: "class TodoList: pass"},
		{Source: "Reviewer", Content: "APPROVED. TERMINATE"},
	}, result.Messages)
	assert.Equal(t, "Text 'TERMINATE' mentioned", result.StopReason)
}

func TestRoundRobinTeam_MaxMessages(t *testing.T) {
	model := defaultTeamModel(fixed("Please fix the indentation."))
	team := NewDefaultRoundRobinTeam(model)

	result, err := team.Run(context.Background(), "Write code")
	require.NoError(t, err)

	require.Len(t, result.Messages, 15)
	assert.Equal(t, "Maximum number of messages 15 reached, current message count: 15", result.StopReason)
	// Speakers rotate in order after the task.
	for i, msg := range result.Messages[1:] {
		assert.Equal(t, []string{"Planner", "Coder", "Reviewer"}[i%3], msg.Source)
	}
}

func TestRoundRobinTeam_ReplySeesTranscript(t *testing.T) {
	var seen []llms.MessageContent
	model := defaultTeamModel(func(messages []llms.MessageContent) string {
		seen = messages
		return "TERMINATE"
	})
	team := NewDefaultRoundRobinTeam(model)

	_, err := team.Run(context.Background(), "Task")
	require.NoError(t, err)

	require.Len(t, seen, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, seen[0].Role)
	assert.Equal(t, "Task", MessageText(seen[1]))
	assert.Equal(t, "Planner: - step 1\n- step 2", MessageText(seen[2]))
	assert.Equal(t, llms.ChatMessageTypeHuman, seen[3].Role)
}

func TestRoundRobinTeam_OwnMessagesAreAI(t *testing.T) {
	planner := &Assistant{Name: "A", SystemMessage: "first", Model: newMockModel()}
	model := newMockModel("reply")
	second := &Assistant{Name: "B", SystemMessage: "second", Model: model}

	_, err := second.Reply(context.Background(), []TeamMessage{
		{Source: UserSource, Content: "task"},
		{Source: "B", Content: "my earlier answer"},
		{Source: planner.Name, Content: "a comment"},
	})
	require.NoError(t, err)

	call := model.Calls()[0]
	require.Len(t, call, 4)
	assert.Equal(t, llms.ChatMessageTypeAI, call[2].Role)
	assert.Equal(t, "my earlier answer", MessageText(call[2]))
	assert.Equal(t, "A: a comment", MessageText(call[3]))
}

func TestRoundRobinTeam_TaskMentionsTermination(t *testing.T) {
	model := newMockModel()
	team := NewRoundRobinTeam(
		[]*Assistant{{Name: "Solo", Model: model}},
		TextMention("TERMINATE"),
	)

	result, err := team.Run(context.Background(), "just say TERMINATE")
	require.NoError(t, err)
	assert.Len(t, result.Messages, 1)
	assert.Empty(t, model.Calls())
}

func TestRoundRobinTeam_MaxTurns(t *testing.T) {
	team := NewRoundRobinTeam([]*Assistant{
		{Name: "Ping", Model: newMockModel()},
		{Name: "Pong", Model: newMockModel()},
	}, nil)
	team.MaxTurns = 4

	result, err := team.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Len(t, result.Messages, 5)
	assert.Equal(t, "Maximum number of turns 4 reached", result.StopReason)
	assert.Equal(t, "Pong", result.Messages[4].Source)
}

func TestRoundRobinTeam_InvalidParticipants(t *testing.T) {
	_, err := NewRoundRobinTeam(nil, nil).Run(context.Background(), "task")
	assert.Error(t, err)

	dup := NewRoundRobinTeam([]*Assistant{
		{Name: "Same", Model: newMockModel()},
		{Name: "Same", Model: newMockModel()},
	}, MaxMessages(3))
	_, err = dup.Run(context.Background(), "task")
	assert.Error(t, err)
}

func TestRoundRobinTeam_Stream(t *testing.T) {
	team := NewDefaultRoundRobinTeam(defaultTeamModel(fixed("TERMINATE")))

	msgs, errc := team.Stream(context.Background(), "Stream it")
	var got []string
	for msg := range msgs {
		got = append(got, msg.Source)
	}
	require.NoError(t, <-errc)
	assert.Equal(t, []string{UserSource, "Planner", "Coder", "Reviewer"}, got)
}

func TestRoundRobinTeam_StreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	team := NewDefaultRoundRobinTeam(defaultTeamModel(fixed("keep going")))

	msgs, errc := team.Stream(ctx, "Stream it")
	first := <-msgs
	assert.Equal(t, UserSource, first.Source)
	cancel()

	for range msgs {
	}
	assert.Error(t, <-errc)
}

func TestTerminationConditions(t *testing.T) {
	msgs := func(contents ...string) []TeamMessage {
		out := make([]TeamMessage, len(contents))
		for i, c := range contents {
			out[i] = TeamMessage{Source: fmt.Sprint(i), Content: c}
		}
		return out
	}

	stop, _ := TextMention("DONE").Check(msgs("DONE", "not yet"))
	assert.False(t, stop, "only the newest message counts")
	stop, reason := TextMention("DONE").Check(msgs("a", "all DONE"))
	assert.True(t, stop)
	assert.Equal(t, "Text 'DONE' mentioned", reason)

	stop, _ = MaxMessages(3).Check(msgs("a", "b"))
	assert.False(t, stop)
	stop, _ = MaxMessages(3).Check(msgs("a", "b", "c"))
	assert.True(t, stop)

	cond := Or(TextMention("DONE"), MaxMessages(2))
	stop, reason = cond.Check(msgs("a", "b"))
	assert.True(t, stop)
	assert.Contains(t, reason, "Maximum number of messages 2")
	stop, _ = cond.Check(msgs("a"))
	assert.False(t, stop)
}

func TestFormatTranscript(t *testing.T) {
	out := FormatTranscript([]TeamMessage{
		{Source: "user", Content: "task"},
		{Source: "Planner", Content: "plan"},
	})
	assert.Equal(t, "**user**: task\n\n**Planner**: plan", out)
	assert.Equal(t, "", FormatTranscript(nil))
}
