package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/smallnest/multiagent/a2a"
	"github.com/smallnest/multiagent/config"
	"github.com/smallnest/multiagent/log"
	"github.com/smallnest/multiagent/mcp"
	"github.com/smallnest/multiagent/memory"
	"github.com/smallnest/multiagent/prebuilt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(config.Reset)
	t.Cleanup(func() { log.SetDefaultLogger(log.NewDefaultLogger(log.LogLevelInfo)) })

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// scriptModel replies from a script, then with "ok".
type scriptModel struct {
	mu      sync.Mutex
	replies []string
	calls   [][]llms.MessageContent
}

func (m *scriptModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	m.mu.Lock()
	m.calls = append(m.calls, messages)
	reply := "ok"
	if len(m.replies) > 0 {
		reply, m.replies = m.replies[0], m.replies[1:]
	}
	m.mu.Unlock()

	if opts.StreamingFunc != nil {
		if err := opts.StreamingFunc(ctx, []byte(reply)); err != nil {
			return nil, err
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *scriptModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestToolsList(t *testing.T) {
	out, err := execute(t, "", "tools", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "calculate")
	assert.Contains(t, out, "convert_units")
	assert.NotContains(t, out, "fetch_url")

	out, err = execute(t, "", "tools", "list", "--web")
	require.NoError(t, err)
	assert.Contains(t, out, "fetch_url")
}

func TestToolsCall(t *testing.T) {
	out, err := execute(t, "", "tools", "call", "calculate", "2", "+", "3")
	require.NoError(t, err)
	assert.Equal(t, "Result: 5\n", out)

	out, err = execute(t, "", "tools", "call", "calculate", `{"expression": "6 * 7"}`)
	require.NoError(t, err)
	assert.Equal(t, "Result: 42\n", out)

	_, err = execute(t, "", "tools", "call", "teleport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestGlobalFlagErrors(t *testing.T) {
	_, err := execute(t, "", "--provider", "skynet", "tools", "list")
	assert.ErrorIs(t, err, config.ErrUnsupportedProvider)

	_, err = execute(t, "", "--log-level", "loud", "tools", "list")
	assert.Error(t, err)
}

func TestProviderOverride(t *testing.T) {
	_, err := execute(t, "", "--provider", "openai", "--log-level", "none", "tools", "list")
	require.NoError(t, err)

	s := config.Get()
	assert.Equal(t, config.ProviderOpenAI, s.LLMProvider)
	// The configured model belongs to another provider.
	assert.Empty(t, s.LLMModel)
}

func TestModels(t *testing.T) {
	out, err := execute(t, "", "--provider", "openai", "models")
	require.NoError(t, err)
	assert.Contains(t, out, "Models for openai")
	assert.Contains(t, out, "gpt-4o-mini")
	assert.Contains(t, out, "(recommended)")

	out, err = execute(t, "", "--provider", "openai", "--model", "gpt-4o", "models")
	require.NoError(t, err)
	assert.Contains(t, out, "* gpt-4o\n")
}

func TestMemoryDemo(t *testing.T) {
	out, err := execute(t, "", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "Messages in memory: 4")
	assert.Contains(t, out, "[assistant]: Use the built-in append")
	assert.Contains(t, out, "Coder read: [Singleton Factory Observer]")
	assert.Contains(t, out, "- Reviewer: code approved")

	keys, err := memory.Shared().Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRunChat(t *testing.T) {
	model := &scriptModel{replies: []string{"Hello!", "Fresh start."}}
	agent := prebuilt.NewChatAgent(model, nil)

	var out bytes.Buffer
	in := strings.NewReader("hi\n\nclear\nagain\nexit\n")
	require.NoError(t, runChat(context.Background(), agent, in, &out, false))

	assert.Contains(t, out.String(), "Hello!")
	assert.Contains(t, out.String(), "Memory cleared!")
	assert.Contains(t, out.String(), "Fresh start.")
	assert.Contains(t, out.String(), "Goodbye!")

	require.Len(t, model.calls, 2)
	assert.Len(t, model.calls[1], 1, "history is gone after clear")
}

func TestRunChatStream(t *testing.T) {
	model := &scriptModel{replies: []string{"streamed"}}
	agent := prebuilt.NewChatAgent(model, nil)

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), agent, strings.NewReader("hi\n"), &out, true))
	assert.Contains(t, out.String(), "streamed\n")
	assert.Equal(t, 2, agent.Memory().Len())
}

func newTestAgent(t *testing.T) *httptest.Server {
	t.Helper()
	srv := a2a.NewServer(a2a.NewAgentCard("echo", "", ""))
	srv.OnTask(func(ctx context.Context, task *a2a.Task) (string, error) {
		return "done: " + task.Description, nil
	})
	srv.OnMessage(func(ctx context.Context, msg *a2a.Message) (string, error) {
		return "pong from " + msg.Sender, nil
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func TestA2ASend(t *testing.T) {
	ts := newTestAgent(t)

	out, err := execute(t, "", "a2a", "send", "--poll", "10ms", ts.URL, "write", "a", "poem")
	require.NoError(t, err)
	assert.Equal(t, "done: write a poem\n", out)

	out, err = execute(t, "", "a2a", "send", "--message", "--sender", "tester", ts.URL, "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong from tester\n", out)
}

func TestAgentHandlers(t *testing.T) {
	model := &scriptModel{replies: []string{"42", "hello back"}}
	onTask, onMessage := agentHandlers(&prebuilt.AgentNode{Name: "solver", SystemPrompt: "Solve.", Model: model})
	ctx := context.Background()

	result, err := onTask(ctx, a2a.NewTask("What is 6 * 7?", nil))
	require.NoError(t, err)
	assert.Equal(t, "42", result)

	reply, err := onMessage(ctx, a2a.NewMessage("planner", "hello", nil))
	require.NoError(t, err)
	assert.Equal(t, "hello back", reply)
	assert.Equal(t, "Message from planner: hello", prebuilt.MessageText(model.calls[1][1]))
}

func TestOpenTaskStore(t *testing.T) {
	a := &app{settings: config.Default()}
	ctx := context.Background()

	store, release, err := a.openTaskStore(ctx, "memory", "")
	require.NoError(t, err)
	release()
	assert.IsType(t, &a2a.MemoryTaskStore{}, store)

	store, release, err = a.openTaskStore(ctx, "sqlite", filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	defer release()
	task := a2a.NewTask("persist", nil)
	require.NoError(t, store.Save(ctx, task))
	loaded, err := store.Load(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "persist", loaded.Description)

	_, _, err = a.openTaskStore(ctx, "postgres", "")
	assert.Error(t, err)
	_, _, err = a.openTaskStore(ctx, "redis", "")
	assert.Error(t, err)
	_, _, err = a.openTaskStore(ctx, "etcd", "")
	assert.ErrorIs(t, err, ErrUnknownStore)
}

func TestMCPServer(t *testing.T) {
	srv := newMCPServer("test-tools", config.Default(), true)
	ctx := context.Background()

	resp := srv.HandleMessage(ctx, &mcp.Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: mcp.MethodToolsList})
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), `"fetch_url"`)
	assert.Contains(t, string(resp.Result), `"calculate"`)

	resp = srv.HandleMessage(ctx, &mcp.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  mcp.MethodResourcesRead,
		Params:  json.RawMessage(`{"uri": "config://settings"}`),
	})
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), `\"provider\":\"gemini\"`)
}

func TestPrintTaskLog(t *testing.T) {
	bb := memory.NewSharedMemory()
	ctx := context.Background()
	require.NoError(t, bb.Append(ctx, prebuilt.TaskLogKey, map[string]any{"agent": "coder", "output": "wrote it"}))
	require.NoError(t, bb.Append(ctx, prebuilt.TaskLogKey, "plain entry"))

	var out bytes.Buffer
	printTaskLog(ctx, &out, bb)
	assert.Contains(t, out.String(), "Task log")
	assert.Contains(t, out.String(), "coder")
	assert.Contains(t, out.String(), ": wrote it")
	assert.Contains(t, out.String(), "- plain entry")
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.html")
	require.NoError(t, writeHTML(path, "Transcript", prebuilt.FormatTranscript([]prebuilt.TeamMessage{
		{Source: "user", Content: "task"},
		{Source: "Coder", Content: "done"},
	})))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<strong>Coder</strong>")
	assert.Contains(t, string(data), "<title>Transcript</title>")
}
