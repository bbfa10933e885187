package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/smallnest/multiagent/log"
	"github.com/smallnest/multiagent/tool"
	"github.com/tmc/langchaingo/tools"
)

// DefaultVersion is the server version reported when none is given.
const DefaultVersion = "1.0.0"

// maxLineSize bounds a single line-delimited message.
const maxLineSize = 4 << 20

// ToolHandler executes a tool call.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// Tool is a tool exposed by a Server.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     ToolHandler
}

// Resource is a readable resource exposed by a Server.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Reader      func(ctx context.Context) (string, error)
}

// Server exposes tools and resources over MCP.
type Server struct {
	name    string
	version string

	mu            sync.RWMutex
	tools         map[string]Tool
	toolOrder     []string
	resources     map[string]Resource
	resourceOrder []string
	initialized   bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithVersion sets the version reported in serverInfo.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// NewServer creates an empty server.
func NewServer(name string, opts ...ServerOption) *Server {
	s := &Server{
		name:      name,
		version:   DefaultVersion,
		tools:     make(map[string]Tool),
		resources: make(map[string]Resource),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the server name.
func (s *Server) Name() string { return s.name }

// Initialized reports whether a client has completed initialize.
func (s *Server) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// AddTool registers a tool, replacing any tool with the same name.
func (s *Server) AddTool(t Tool) {
	if t.InputSchema == nil {
		t.InputSchema = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tools[t.Name]; !ok {
		s.toolOrder = append(s.toolOrder, t.Name)
	}
	s.tools[t.Name] = t
	log.Debug("Registered MCP tool: %s", t.Name)
}

// AddTools exposes langchaingo tools. Arguments are forwarded as JSON.
func (s *Server) AddTools(ts ...tools.Tool) {
	for _, t := range ts {
		s.AddTool(Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: tool.ParametersOf(t),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				data, err := json.Marshal(args)
				if err != nil {
					return "", err
				}
				return t.Call(ctx, tool.Input(t, string(data)))
			},
		})
	}
}

// AddResource registers a resource. MimeType defaults to text/plain.
func (s *Server) AddResource(r Resource) {
	if r.MimeType == "" {
		r.MimeType = "text/plain"
	}
	if r.Reader == nil {
		r.Reader = func(context.Context) (string, error) { return "", nil }
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[r.URI]; !ok {
		s.resourceOrder = append(s.resourceOrder, r.URI)
	}
	s.resources[r.URI] = r
	log.Debug("Registered MCP resource: %s", r.URI)
}

// HandleMessage dispatches one request. It returns nil for notifications.
func (s *Server) HandleMessage(ctx context.Context, req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Error handling MCP message: %v", r)
			resp = newError(req.ID, CodeInternalError, fmt.Sprint(r))
		}
		if req.IsNotification() {
			resp = nil
		}
	}()

	switch req.Method {
	case MethodInitialize:
		return s.handleInitialize(req)
	case MethodInitialized, MethodInitializedShort:
		return nil
	case MethodPing:
		return newResult(req.ID, struct{}{})
	case MethodToolsList:
		return s.handleToolsList(req)
	case MethodToolsCall:
		return s.handleToolsCall(ctx, req)
	case MethodResourcesList:
		return s.handleResourcesList(req)
	case MethodResourcesRead:
		return s.handleResourcesRead(ctx, req)
	default:
		return newError(req.ID, CodeMethodNotFound, "Method not found: "+req.Method)
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return newResult(req.ID, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      Implementation{Name: s.name, Version: s.version},
	})
}

func (s *Server) handleToolsList(req *Request) *Response {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ToolInfo, 0, len(s.toolOrder))
	for _, name := range s.toolOrder {
		t := s.tools[name]
		infos = append(infos, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return newResult(req.ID, listToolsResult{Tools: infos})
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params callToolParams
	if err := decodeParams(req.Params, &params); err != nil {
		return newError(req.ID, CodeInvalidParams, err.Error())
	}

	s.mu.RLock()
	t, ok := s.tools[params.Name]
	s.mu.RUnlock()
	if !ok {
		return newError(req.ID, CodeInvalidParams, "Unknown tool: "+params.Name)
	}

	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}
	text, err := t.Handler(ctx, params.Arguments)
	if err != nil {
		log.Error("Error handling MCP message: %v", err)
		return newError(req.ID, CodeInternalError, err.Error())
	}
	return newResult(req.ID, callToolResult{Content: []Content{{Type: "text", Text: text}}})
}

func (s *Server) handleResourcesList(req *Request) *Response {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ResourceInfo, 0, len(s.resourceOrder))
	for _, uri := range s.resourceOrder {
		r := s.resources[uri]
		infos = append(infos, ResourceInfo{URI: r.URI, Name: r.Name, Description: r.Description, MimeType: r.MimeType})
	}
	return newResult(req.ID, listResourcesResult{Resources: infos})
}

func (s *Server) handleResourcesRead(ctx context.Context, req *Request) *Response {
	var params readResourceParams
	if err := decodeParams(req.Params, &params); err != nil {
		return newError(req.ID, CodeInvalidParams, err.Error())
	}

	s.mu.RLock()
	r, ok := s.resources[params.URI]
	s.mu.RUnlock()
	if !ok {
		return newError(req.ID, CodeInvalidParams, "Unknown resource: "+params.URI)
	}

	text, err := r.Reader(ctx)
	if err != nil {
		log.Error("Error handling MCP message: %v", err)
		return newError(req.ID, CodeInternalError, err.Error())
	}
	return newResult(req.ID, readResourceResult{
		Contents: []ResourceContent{{URI: r.URI, MimeType: r.MimeType, Text: text}},
	})
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// Serve reads line-delimited JSON-RPC messages from r and writes responses
// to w until r is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	log.Info("Starting MCP server '%s' on stdio", s.name)
	defer log.Info("MCP server stopped")

	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var resp *Response
			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				log.Error("Invalid JSON: %v", err)
				resp = newError(nil, CodeParseError, "Parse error: "+err.Error())
			} else if req.Method == "" {
				if req.IsNotification() {
					continue
				}
				resp = newError(req.ID, CodeInvalidRequest, "Invalid request: missing method")
			} else {
				resp = s.HandleMessage(ctx, &req)
			}

			if resp == nil {
				continue
			}
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
		}
	}
}
