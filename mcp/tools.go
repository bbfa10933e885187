package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallnest/multiagent/tool"
	"github.com/tmc/langchaingo/tools"
)

// RemoteTool is a tool served by an MCP server, usable wherever a
// langchaingo tool is expected.
type RemoteTool struct {
	client *Client
	info   ToolInfo
}

// Name implements tools.Tool.
func (t *RemoteTool) Name() string { return t.info.Name }

// Description implements tools.Tool.
func (t *RemoteTool) Description() string { return t.info.Description }

// Parameters implements tool.Tool.
func (t *RemoteTool) Parameters() map[string]any { return t.info.InputSchema }

// Call forwards the input to the server. A JSON object is sent as the
// arguments; any other input is bound to the first schema property.
func (t *RemoteTool) Call(ctx context.Context, input string) (string, error) {
	args := map[string]any{}
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &args) == nil {
		return t.client.CallTool(ctx, t.info.Name, args)
	}
	if name := t.firstParam(); name != "" {
		args[name] = input
	} else if input != "" {
		return "", fmt.Errorf("%s: expected JSON arguments", t.info.Name)
	}
	return t.client.CallTool(ctx, t.info.Name, args)
}

func (t *RemoteTool) firstParam() string {
	if req, ok := t.info.InputSchema["required"].([]any); ok && len(req) > 0 {
		if name, ok := req[0].(string); ok {
			return name
		}
	}
	if props, ok := t.info.InputSchema["properties"].(map[string]any); ok && len(props) == 1 {
		for name := range props {
			return name
		}
	}
	return ""
}

// RemoteTools lists the server's tools and wraps them as langchaingo tools.
func RemoteTools(ctx context.Context, c *Client) ([]tools.Tool, error) {
	infos, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]tools.Tool, 0, len(infos))
	for _, info := range infos {
		out = append(out, &RemoteTool{client: c, info: info})
	}
	return out, nil
}

var _ tool.Tool = (*RemoteTool)(nil)
