package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/smallnest/multiagent/log"
	"golang.org/x/time/rate"
)

// AgentCardPath is where a Server publishes its card.
const AgentCardPath = "/.well-known/agent.json"

// TaskHandler processes a task and returns its result.
type TaskHandler func(ctx context.Context, task *Task) (string, error)

// MessageHandler answers an incoming message.
type MessageHandler func(ctx context.Context, msg *Message) (string, error)

// NoTaskHandlerError is recorded on tasks submitted to a server without a handler.
const NoTaskHandlerError = "No task handler registered"

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithTaskStore replaces the in-memory task store.
func WithTaskStore(store TaskStore) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithRateLimit limits requests to r per second with the given burst.
// Requests over the limit receive 429.
func WithRateLimit(r float64, burst int) ServerOption {
	return func(s *Server) {
		s.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// Server receives tasks and messages from other agents over HTTP.
type Server struct {
	card  *AgentCard
	store TaskStore

	mu             sync.RWMutex
	taskHandler    TaskHandler
	messageHandler MessageHandler
	messages       []*Message

	limiter *rate.Limiter

	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewServer creates a server advertising card.
func NewServer(card *AgentCard, opts ...ServerOption) *Server {
	s := &Server{
		card:    card,
		store:   NewMemoryTaskStore(),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Card returns the advertised agent card.
func (s *Server) Card() *AgentCard {
	return s.card
}

// OnTask registers the task handler.
func (s *Server) OnTask(h TaskHandler) {
	s.mu.Lock()
	s.taskHandler = h
	s.mu.Unlock()
}

// OnMessage registers the message handler.
func (s *Server) OnMessage(h MessageHandler) {
	s.mu.Lock()
	s.messageHandler = h
	s.mu.Unlock()
}

// Messages returns the messages received so far.
func (s *Server) Messages() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Message(nil), s.messages...)
}

// Wait blocks until all background task processing has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

type errorBody struct {
	Error string `json:"error"`
}

type createTaskRequest struct {
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

// HandleRequest routes one request and returns the status code and the
// response body to encode as JSON. body may be nil.
func (s *Server) HandleRequest(ctx context.Context, method, path string, body []byte) (status int, resp any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Error handling request: %v", r)
			status, resp = http.StatusInternalServerError, errorBody{Error: fmt.Sprint(r)}
		}
	}()

	if s.limiter != nil && !s.limiter.Allow() {
		return http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"}
	}

	switch {
	case method == http.MethodGet && path == AgentCardPath:
		return http.StatusOK, s.card

	case method == http.MethodPost && path == "/tasks":
		var req createTaskRequest
		if err := decodeBody(body, &req); err != nil {
			return http.StatusBadRequest, errorBody{Error: err.Error()}
		}
		return s.createTask(ctx, req)

	case method == http.MethodGet && strings.HasPrefix(path, "/tasks/"):
		id := path[strings.LastIndex(path, "/")+1:]
		return s.getTask(ctx, id)

	case method == http.MethodPost && path == "/messages":
		var msg Message
		if err := decodeBody(body, &msg); err != nil {
			return http.StatusBadRequest, errorBody{Error: err.Error()}
		}
		return s.handleMessage(ctx, &msg)
	}

	return http.StatusNotFound, errorBody{Error: "Not found"}
}

func decodeBody(body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) createTask(ctx context.Context, req createTaskRequest) (int, any) {
	task := NewTask(req.Description, req.Metadata)
	if err := s.store.Save(ctx, task); err != nil {
		log.Error("Failed to save task %s: %v", task.ID, err)
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}

	s.wg.Add(1)
	go s.processTask(task.Clone())

	return http.StatusCreated, task
}

func (s *Server) processTask(task *Task) {
	defer s.wg.Done()
	ctx := s.baseCtx

	task.State = TaskStateRunning
	s.saveTask(ctx, task)

	s.mu.RLock()
	handler := s.taskHandler
	s.mu.RUnlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				task.Error = fmt.Sprint(r)
				task.State = TaskStateFailed
				log.Error("Task %s failed: %v", task.ID, r)
			}
		}()

		if handler == nil {
			task.Error = NoTaskHandlerError
			task.State = TaskStateFailed
			return
		}
		result, err := handler(ctx, task.Clone())
		if err != nil {
			task.Error = err.Error()
			task.State = TaskStateFailed
			log.Error("Task %s failed: %v", task.ID, err)
			return
		}
		task.Result = result
		task.State = TaskStateCompleted
	}()

	task.CompletedAt = now()
	s.saveTask(ctx, task)
}

func (s *Server) saveTask(ctx context.Context, task *Task) {
	if err := s.store.Save(ctx, task); err != nil {
		log.Error("Failed to save task %s: %v", task.ID, err)
	}
}

func (s *Server) getTask(ctx context.Context, id string) (int, any) {
	task, err := s.store.Load(ctx, id)
	if errors.Is(err, ErrTaskNotFound) {
		return http.StatusNotFound, errorBody{Error: "Task not found: " + id}
	}
	if err != nil {
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}
	return http.StatusOK, task
}

func (s *Server) handleMessage(ctx context.Context, msg *Message) (int, any) {
	msg.fillDefaults()
	msg.Receiver = s.card.Name

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	handler := s.messageHandler
	s.mu.Unlock()

	var response string
	if handler != nil {
		var err error
		response, err = handler(ctx, msg)
		if err != nil {
			log.Error("Message handler failed: %v", err)
			return http.StatusInternalServerError, errorBody{Error: err.Error()}
		}
	}

	return http.StatusOK, MessageResponse{Status: "received", Response: response}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read request body"})
			return
		}
	}

	status, resp := s.HandleRequest(r.Context(), r.Method, r.URL.Path, body)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to write response: %v", err)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and waits for running tasks.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.baseCtx = context.WithoutCancel(ctx)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting A2A server '%s' on %s", s.card.Name, addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Wait()
	log.Info("A2A server '%s' stopped", s.card.Name)
	return err
}
