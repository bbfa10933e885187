package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/multiagent/config"
	"github.com/smallnest/multiagent/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Type selects a recommended model for a kind of work.
type Type string

const (
	TypeGeneral   Type = "general"
	TypeCoding    Type = "coding"
	TypeReasoning Type = "reasoning"
)

// RecommendedModels maps a provider and task type to a model name.
var RecommendedModels = map[config.Provider]map[Type]string{
	config.ProviderGemini: {
		TypeGeneral:   "gemini-2.5-flash-lite",
		TypeCoding:    "gemini-3-pro-preview",
		TypeReasoning: "gemini-3-pro-preview",
	},
	config.ProviderOllama: {
		TypeGeneral:   "mistral",
		TypeCoding:    "qwen2.5-coder",
		TypeReasoning: "lfm2.5-thinking:1.2b",
	},
	config.ProviderOpenAI: {
		TypeGeneral:   "gpt-4o-mini",
		TypeCoding:    "gpt-4o",
		TypeReasoning: "gpt-4o",
	},
	config.ProviderAnthropic: {
		TypeGeneral:   "claude-3-5-sonnet-20241022",
		TypeCoding:    "claude-3-5-sonnet-20241022",
		TypeReasoning: "claude-3-5-sonnet-20241022",
	},
}

// RecommendedModel returns the recommended model, or "" when none is known.
func RecommendedModel(p config.Provider, t Type) string {
	return RecommendedModels[p][t]
}

// ErrMissingAPIKey is wrapped by New when the selected provider needs a key.
var ErrMissingAPIKey = errors.New("api key not configured")

type options struct {
	settings    *config.Settings
	provider    config.Provider
	model       string
	typ         Type
	temperature *float64
	maxTokens   *int
}

// Option configures New.
type Option func(*options)

// WithSettings uses s instead of config.Get().
func WithSettings(s *config.Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithProvider overrides the configured provider.
func WithProvider(p config.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithModel pins a model name.
func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithType picks the recommended model for t when no model is pinned.
func WithType(t Type) Option {
	return func(o *options) {
		o.typ = t
	}
}

// WithTemperature overrides the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) {
		o.temperature = &t
	}
}

// WithMaxTokens overrides the default completion budget.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		o.maxTokens = &n
	}
}

// Model is a provider client with default call options applied.
type Model struct {
	llms.Model

	Provider    config.Provider
	Name        string
	Temperature float64
	MaxTokens   int
}

// GenerateContent calls the wrapped client. Caller options are applied after
// the defaults and therefore win.
func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	callOpts := make([]llms.CallOption, 0, len(opts)+2)
	callOpts = append(callOpts, llms.WithTemperature(m.Temperature), llms.WithMaxTokens(m.MaxTokens))
	callOpts = append(callOpts, opts...)
	return m.Model.GenerateContent(ctx, messages, callOpts...)
}

// Call generates a reply to a single prompt.
func (m *Model) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, opts...)
}

func (m *Model) String() string {
	return fmt.Sprintf("%s/%s", m.Provider, m.Name)
}

// New creates a chat model for the configured or requested provider.
//
// The model is resolved in order: WithModel, then the configured LLM_MODEL
// when the provider is the configured one, then the recommended model for
// the requested Type.
func New(ctx context.Context, opts ...Option) (*Model, error) {
	o := &options{typ: TypeGeneral}
	for _, opt := range opts {
		opt(o)
	}
	s := o.settings
	if s == nil {
		s = config.Get()
	}

	provider := o.provider
	if provider == "" {
		provider = s.LLMProvider
	}
	provider, err := config.ParseProvider(string(provider))
	if err != nil {
		return nil, err
	}

	model := o.model
	if model == "" && provider == s.LLMProvider {
		model = s.LLMModel
	}
	if model == "" {
		model = RecommendedModel(provider, o.typ)
	}

	temperature := s.AgentTemperature
	if o.temperature != nil {
		temperature = *o.temperature
	}
	maxTokens := s.AgentMaxTokens
	if o.maxTokens != nil {
		maxTokens = *o.maxTokens
	}

	log.Info("Creating LLM: provider=%s, model=%s", provider, model)

	var client llms.Model
	switch provider {
	case config.ProviderGemini:
		if s.GoogleAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY not configured: %w", ErrMissingAPIKey)
		}
		client, err = googleai.New(ctx,
			googleai.WithAPIKey(s.GoogleAPIKey),
			googleai.WithDefaultModel(model),
			googleai.WithDefaultMaxTokens(maxTokens),
			googleai.WithDefaultTemperature(temperature),
		)
	case config.ProviderOllama:
		client, err = ollama.New(
			ollama.WithModel(model),
			ollama.WithServerURL(s.OllamaHost),
		)
	case config.ProviderOpenAI:
		if s.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not configured: %w", ErrMissingAPIKey)
		}
		client, err = openai.New(
			openai.WithToken(s.OpenAIAPIKey),
			openai.WithModel(model),
			openai.WithBaseURL(s.OpenAIBaseURL),
		)
	case config.ProviderAnthropic:
		if s.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not configured: %w", ErrMissingAPIKey)
		}
		client, err = anthropic.New(
			anthropic.WithToken(s.AnthropicAPIKey),
			anthropic.WithModel(model),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}

	return &Model{
		Model:       client,
		Provider:    provider,
		Name:        model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

// NewTeamModel creates the client used by the round-robin team. Only
// OpenAI-compatible backends are supported: Ollama through its /v1 endpoint
// and OpenAI itself.
func NewTeamModel(s *config.Settings) (*Model, error) {
	if s == nil {
		s = config.Get()
	}

	var (
		client llms.Model
		err    error
		model  = s.LLMModel
	)
	switch s.LLMProvider {
	case config.ProviderOllama:
		if model == "" {
			model = RecommendedModel(config.ProviderOllama, TypeGeneral)
		}
		client, err = openai.New(
			openai.WithToken("ollama"),
			openai.WithModel(model),
			openai.WithBaseURL(s.OllamaHost+"/v1"),
		)
	case config.ProviderOpenAI:
		if s.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not configured: %w", ErrMissingAPIKey)
		}
		if model == "" {
			model = RecommendedModel(config.ProviderOpenAI, TypeGeneral)
		}
		client, err = openai.New(
			openai.WithToken(s.OpenAIAPIKey),
			openai.WithModel(model),
			openai.WithBaseURL(s.OpenAIBaseURL),
		)
	default:
		return nil, fmt.Errorf("provider %s is not supported for teams, use ollama or openai: %w",
			s.LLMProvider, config.ErrUnsupportedProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create team client: %w", err)
	}

	return &Model{
		Model:       client,
		Provider:    s.LLMProvider,
		Name:        model,
		Temperature: s.AgentTemperature,
		MaxTokens:   s.AgentMaxTokens,
	}, nil
}
