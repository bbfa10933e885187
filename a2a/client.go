package a2a

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrTaskTimeout is returned by WaitForTask when the deadline passes.
var ErrTaskTimeout = errors.New("task timeout")

// Default WaitForTask settings.
const (
	DefaultWaitTimeout  = 60 * time.Second
	DefaultPollInterval = time.Second
)

// ClientOption configures a Client.
type ClientOption func(*resty.Client)

// WithTimeout sets the per-request timeout. Default 30s.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

// WithRetry retries failed requests count times.
func WithRetry(count int, wait time.Duration) ClientOption {
	return func(c *resty.Client) {
		c.SetRetryCount(count)
		c.SetRetryWaitTime(wait)
	}
}

// Client talks to remote A2A agents.
type Client struct {
	http *resty.Client
}

// NewClient creates a client.
func NewClient(opts ...ClientOption) *Client {
	c := resty.New()
	for _, opt := range opts {
		opt(c)
	}
	if c.GetClient().Timeout == 0 {
		c.SetTimeout(30 * time.Second)
	}
	c.SetHeader("Content-Type", "application/json")
	return &Client{http: c}
}

func endpoint(agentURL, path string) string {
	return strings.TrimRight(agentURL, "/") + path
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var failure errorBody
	req := c.http.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&failure)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	if resp.IsError() {
		msg := failure.Error
		if msg == "" {
			msg = resp.String()
		}
		if resp.StatusCode() == http.StatusNotFound && strings.HasPrefix(msg, "Task not found") {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, msg)
		}
		return fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode(), msg)
	}
	return nil
}

// GetAgentCard fetches an agent's card.
func (c *Client) GetAgentCard(ctx context.Context, agentURL string) (*AgentCard, error) {
	var card AgentCard
	if err := c.do(ctx, http.MethodGet, endpoint(agentURL, AgentCardPath), nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// SubmitTask submits a task and returns it in its initial state.
func (c *Client) SubmitTask(ctx context.Context, agentURL, description string, metadata map[string]any) (*Task, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	var task Task
	req := createTaskRequest{Description: description, Metadata: metadata}
	if err := c.do(ctx, http.MethodPost, endpoint(agentURL, "/tasks"), req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTaskStatus fetches the current state of a task.
func (c *Client) GetTaskStatus(ctx context.Context, agentURL, taskID string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, endpoint(agentURL, "/tasks/"+taskID), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// WaitForTask polls until the task completes or fails. Zero durations use
// DefaultWaitTimeout and DefaultPollInterval.
func (c *Client) WaitForTask(ctx context.Context, agentURL, taskID string, timeout, pollInterval time.Duration) (*Task, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := c.GetTaskStatus(ctx, agentURL, taskID)
		if err != nil {
			return nil, err
		}
		if task.State.Done() {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: task %s did not complete within %s", ErrTaskTimeout, taskID, timeout)
		case <-ticker.C:
		}
	}
}

// SendMessage sends a message from sender. An empty sender is "client".
func (c *Client) SendMessage(ctx context.Context, agentURL, content, sender string, metadata map[string]any) (*MessageResponse, error) {
	if sender == "" {
		sender = "client"
	}
	msg := NewMessage(sender, content, metadata)

	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, endpoint(agentURL, "/messages"), msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
