package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// ErrNotConnected is returned when the client has no open connection.
var ErrNotConnected = errors.New("not connected to MCP server")

// ClientInfo identifies this client during initialize.
var ClientInfo = Implementation{Name: "multi-agent-client", Version: "1.0.0"}

// Client talks to an MCP server over a line-delimited stream. Calls are
// serialized: each request waits for its response before the next is sent.
type Client struct {
	mu     sync.Mutex
	conn   io.ReadWriteCloser
	reader *bufio.Reader
	nextID int64
	cmd    *exec.Cmd
}

// NewClient creates a client over an established connection.
func NewClient(conn io.ReadWriteCloser) *Client {
	return &Client{conn: conn, reader: bufio.NewReaderSize(conn, 64*1024)}
}

type cmdConn struct {
	io.ReadCloser
	stdin io.WriteCloser
}

func (c *cmdConn) Write(p []byte) (int, error) { return c.stdin.Write(p) }

func (c *cmdConn) Close() error {
	err := c.stdin.Close()
	if rerr := c.ReadCloser.Close(); err == nil {
		err = rerr
	}
	return err
}

// NewCommandClient starts an MCP server subprocess and talks to it over its
// stdin and stdout.
func NewCommandClient(ctx context.Context, name string, args ...string) (*Client, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start MCP server: %w", err)
	}

	c := NewClient(&cmdConn{ReadCloser: stdout, stdin: stdin})
	c.cmd = cmd
	return c, nil
}

// Connect initializes the session and returns the server's reply.
func (c *Client) Connect(ctx context.Context) (*InitializeResult, error) {
	var result InitializeResult
	err := c.call(ctx, MethodInitialize, initializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      ClientInfo,
		Capabilities:    map[string]any{},
	}, &result)
	if err != nil {
		return nil, err
	}
	if err := c.notify(MethodInitialized); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTools lists the server's tools.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var result listToolsResult
	if err := c.call(ctx, MethodToolsList, map[string]any{}, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool calls a tool and returns the text of its first content item.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	var result callToolResult
	if err := c.call(ctx, MethodToolsCall, callToolParams{Name: name, Arguments: args}, &result); err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		return "", nil
	}
	return result.Content[0].Text, nil
}

// ListResources lists the server's resources.
func (c *Client) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	var result listResourcesResult
	if err := c.call(ctx, MethodResourcesList, map[string]any{}, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource reads a resource and returns its first text content.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	var result readResourceResult
	if err := c.call(ctx, MethodResourcesRead, readResourceParams{URI: uri}, &result); err != nil {
		return "", err
	}
	if len(result.Contents) == 0 {
		return "", nil
	}
	return result.Contents[0].Text, nil
}

// Close closes the connection and stops the subprocess, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if c.cmd != nil {
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}
		_ = c.cmd.Wait()
		c.cmd = nil
	}
	return err
}

func (c *Client) notify(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.write(&Request{JSONRPC: "2.0", Method: method})
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	c.nextID++
	id := json.RawMessage(strconv.FormatInt(c.nextID, 10))
	if err := c.write(&Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw}); err != nil {
		return err
	}

	resp, err := c.read(ctx, id)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) write(req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

// read returns the response matching id, skipping server notifications.
func (c *Client) read(ctx context.Context, id json.RawMessage) (*Response, error) {
	type lineResult struct {
		line []byte
		err  error
	}
	for {
		done := make(chan lineResult, 1)
		go func() {
			line, err := c.reader.ReadBytes('\n')
			done <- lineResult{line, err}
		}()

		var lr lineResult
		select {
		case <-ctx.Done():
			// The pending read owns the stream now.
			_ = c.conn.Close()
			c.conn = nil
			return nil, ctx.Err()
		case lr = <-done:
		}
		if lr.err != nil && len(lr.line) == 0 {
			return nil, fmt.Errorf("failed to read response: %w", lr.err)
		}

		var resp Response
		if err := json.Unmarshal(lr.line, &resp); err != nil {
			return nil, fmt.Errorf("invalid response: %w", err)
		}
		if string(resp.ID) == string(id) {
			return &resp, nil
		}
	}
}
