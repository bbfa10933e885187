package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/smallnest/multiagent/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	s := NewServer("test-server")
	s.AddTool(Tool{
		Name:        "echo",
		Description: "Echo the text back",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []string{"text"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			return "echo: " + text, nil
		},
	})
	s.AddTool(Tool{
		Name: "fail",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("boom")
		},
	})
	s.AddTool(Tool{
		Name: "panic",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			panic("unexpected")
		},
	})
	s.AddResource(Resource{
		URI:         "config://app",
		Name:        "App config",
		Description: "Application configuration",
		Reader: func(ctx context.Context) (string, error) {
			return "debug=true", nil
		},
	})
	return s
}

func request(id int, method string, params any) *Request {
	req := &Request{JSONRPC: "2.0", Method: method}
	if id > 0 {
		req.ID = json.RawMessage(strings.TrimSpace(mustJSON(id)))
	}
	if params != nil {
		req.Params = json.RawMessage(mustJSON(params))
	}
	return req
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func decodeResult(t *testing.T, resp *Response) map[string]any {
	t.Helper()
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	var m map[string]any
	require.NoError(t, json.Unmarshal(resp.Result, &m))
	return m
}

func TestHandleInitialize(t *testing.T) {
	s := newTestServer()
	assert.False(t, s.Initialized())

	result := decodeResult(t, s.HandleMessage(context.Background(), request(1, "initialize", map[string]any{})))
	assert.Equal(t, "2024-11-05", result["protocolVersion"])
	assert.Equal(t, map[string]any{"name": "test-server", "version": "1.0.0"}, result["serverInfo"])
	assert.Equal(t, map[string]any{
		"tools":     map[string]any{"listChanged": false},
		"resources": map[string]any{"subscribe": false, "listChanged": false},
	}, result["capabilities"])
	assert.True(t, s.Initialized())

	// Notifications produce no response
	assert.Nil(t, s.HandleMessage(context.Background(), request(0, "notifications/initialized", nil)))
	assert.Nil(t, s.HandleMessage(context.Background(), request(0, "initialized", nil)))
}

func TestHandleTools(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	result := decodeResult(t, s.HandleMessage(ctx, request(1, "tools/list", nil)))
	list := result["tools"].([]any)
	require.Len(t, list, 3)
	first := list[0].(map[string]any)
	assert.Equal(t, "echo", first["name"])
	assert.Equal(t, "Echo the text back", first["description"])
	assert.Equal(t, "object", first["inputSchema"].(map[string]any)["type"])

	resp := s.HandleMessage(ctx, request(2, "tools/call", map[string]any{"name": "echo", "arguments": map[string]any{"text": "hi"}}))
	result = decodeResult(t, resp)
	assert.Equal(t, []any{map[string]any{"type": "text", "text": "echo: hi"}}, result["content"])
	assert.Equal(t, "2", string(resp.ID))

	resp = s.HandleMessage(ctx, request(3, "tools/call", map[string]any{"name": "nope"}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "Unknown tool: nope", resp.Error.Message)

	resp = s.HandleMessage(ctx, request(4, "tools/call", map[string]any{"name": "fail"}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Equal(t, "boom", resp.Error.Message)

	resp = s.HandleMessage(ctx, request(5, "tools/call", map[string]any{"name": "panic"}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
}

func TestHandleResources(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	result := decodeResult(t, s.HandleMessage(ctx, request(1, "resources/list", nil)))
	assert.Equal(t, []any{map[string]any{
		"uri":         "config://app",
		"name":        "App config",
		"description": "Application configuration",
		"mimeType":    "text/plain",
	}}, result["resources"])

	result = decodeResult(t, s.HandleMessage(ctx, request(2, "resources/read", map[string]any{"uri": "config://app"})))
	assert.Equal(t, []any{map[string]any{
		"uri":      "config://app",
		"mimeType": "text/plain",
		"text":     "debug=true",
	}}, result["contents"])

	resp := s.HandleMessage(ctx, request(3, "resources/read", map[string]any{"uri": "file://missing"}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "Unknown resource: file://missing", resp.Error.Message)
}

func TestHandleUnknownMethod(t *testing.T) {
	s := newTestServer()
	resp := s.HandleMessage(context.Background(), request(7, "prompts/list", nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, "Method not found: prompts/list", resp.Error.Message)

	result := decodeResult(t, s.HandleMessage(context.Background(), request(8, "ping", nil)))
	assert.Empty(t, result)
}

func TestAddTools(t *testing.T) {
	s := NewServer("tools", WithVersion("2.0.0"))
	s.AddTools(tool.Calculate, tool.ConvertUnits)
	ctx := context.Background()

	result := decodeResult(t, s.HandleMessage(ctx, request(1, "tools/list", nil)))
	list := result["tools"].([]any)
	require.Len(t, list, 2)
	schema := list[1].(map[string]any)["inputSchema"].(map[string]any)
	assert.Equal(t, []any{"value", "from_unit", "to_unit"}, schema["required"])

	result = decodeResult(t, s.HandleMessage(ctx, request(2, "tools/call", map[string]any{
		"name":      "convert_units",
		"arguments": map[string]any{"value": 10, "from_unit": "km", "to_unit": "miles"},
	})))
	assert.Equal(t, "10.0 km = 6.2137 miles", result["content"].([]any)[0].(map[string]any)["text"])

	result = decodeResult(t, s.HandleMessage(ctx, request(3, "initialize", nil)))
	assert.Equal(t, "2.0.0", result["serverInfo"].(map[string]any)["version"])
}

func TestServe(t *testing.T) {
	s := newTestServer()
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`not json`,
		``,
		`{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"echo","arguments":{"text":"x"}}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(in), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(t, "1", string(resp.ID))
	assert.Nil(t, resp.Error)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
	assert.Contains(t, lines[1], `"id":null`)

	resp = Response{}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &resp))
	assert.Equal(t, `"abc"`, string(resp.ID))
	assert.Contains(t, string(resp.Result), "echo: x")
}

func TestServeStopsOnCancel(t *testing.T) {
	s := newTestServer()
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, r, io.Discard) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

// pipeConn joins the two halves of a bidirectional pipe.
type pipeConn struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (p *pipeConn) Close() error {
	for _, c := range p.closers {
		c.Close()
	}
	return nil
}

// connectPair serves s over pipes and returns a connected client.
func connectPair(t *testing.T, s *Server) *Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()
	go s.Serve(ctx, c2sR, s2cW)

	c := NewClient(&pipeConn{Reader: s2cR, Writer: c2sW, closers: []io.Closer{c2sW, s2cR}})
	t.Cleanup(func() {
		c.Close()
		cancel()
	})
	return c
}

func TestClient(t *testing.T) {
	s := newTestServer()
	c := connectPair(t, s)
	ctx := context.Background()

	_, err := c.ListTools(ctx)
	require.NoError(t, err)

	info, err := c.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-11-05", info.ProtocolVersion)
	assert.Equal(t, "test-server", info.ServerInfo.Name)

	toolsList, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, toolsList, 3)
	assert.Equal(t, "echo", toolsList[0].Name)

	out, err := c.CallTool(ctx, "echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)

	_, err = c.CallTool(ctx, "nope", nil)
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)

	resources, err := c.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "config://app", resources[0].URI)

	text, err := c.ReadResource(ctx, "config://app")
	require.NoError(t, err)
	assert.Equal(t, "debug=true", text)

	require.NoError(t, c.Close())
	_, err = c.ListTools(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRemoteTools(t *testing.T) {
	s := NewServer("tools")
	s.AddTools(tool.Calculate, tool.ConvertUnits)
	c := connectPair(t, s)
	ctx := context.Background()

	_, err := c.Connect(ctx)
	require.NoError(t, err)

	remote, err := RemoteTools(ctx, c)
	require.NoError(t, err)
	require.Len(t, remote, 2)
	assert.Equal(t, []string{"calculate", "convert_units"}, tool.Names(remote))

	// Raw input is bound to the first required argument
	out, err := remote[0].Call(ctx, "2 + 2 * 3")
	require.NoError(t, err)
	assert.Equal(t, "Result: 8", out)

	out, err = remote[1].Call(ctx, `{"value": 1, "from_unit": "kg", "to_unit": "lbs"}`)
	require.NoError(t, err)
	assert.Equal(t, "1.0 kg = 2.2046 lbs", out)

	defs := tool.Definitions(remote)
	assert.Equal(t, "convert_units", defs[1].Function.Name)
}

func TestInteropWithSDKClient(t *testing.T) {
	s := NewServer("multi-agent-tools")
	s.AddTools(tool.All()...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()
	go s.Serve(ctx, c2sR, s2cW)

	client := sdk.NewClient(&sdk.Implementation{Name: "sdk-client", Version: "v1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdk.IOTransport{Reader: s2cR, Writer: c2sW}, nil)
	require.NoError(t, err)
	defer session.Close()

	listed, err := session.ListTools(ctx, &sdk.ListToolsParams{})
	require.NoError(t, err)
	assert.Len(t, listed.Tools, 13)

	res, err := session.CallTool(ctx, &sdk.CallToolParams{
		Name:      "encode_base64",
		Arguments: map[string]any{"text": "hello"},
	})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Base64 encoded: aGVsbG8=", text.Text)
}

type greetArgs struct {
	Name string `json:"name" jsonschema:"the name to greet"`
}

func TestInteropWithSDKServer(t *testing.T) {
	srv := sdk.NewServer(&sdk.Implementation{Name: "sdk-server", Version: "v1.0.0"}, nil)
	sdk.AddTool(srv, &sdk.Tool{Name: "greet", Description: "Say hi"},
		func(ctx context.Context, req *sdk.CallToolRequest, args greetArgs) (*sdk.CallToolResult, any, error) {
			return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: "Hi " + args.Name}}}, nil, nil
		})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()
	go srv.Run(ctx, &sdk.IOTransport{Reader: c2sR, Writer: s2cW})

	c := NewClient(&pipeConn{Reader: s2cR, Writer: c2sW, closers: []io.Closer{c2sW, s2cR}})
	defer c.Close()

	info, err := c.Connect(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sdk-server", info.ServerInfo.Name)

	listed, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "greet", listed[0].Name)

	out, err := c.CallTool(ctx, "greet", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada", out)
}
