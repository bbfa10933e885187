package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{ProviderGemini, ProviderOllama, ProviderOpenAI, ProviderAnthropic}

// ErrUnsupportedProvider is returned for provider names outside Providers.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ParseProvider converts a case-insensitive provider name.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, s)
}

// Settings holds the application configuration.
type Settings struct {
	LLMProvider Provider `mapstructure:"llm_provider"`
	LLMModel    string   `mapstructure:"llm_model"`

	GoogleAPIKey    string `mapstructure:"google_api_key"`
	OllamaHost      string `mapstructure:"ollama_host"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	OpenAIBaseURL   string `mapstructure:"openai_base_url"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`

	AgentTemperature  float64 `mapstructure:"agent_temperature"`
	AgentMaxTokens    int     `mapstructure:"agent_max_tokens"`
	MemoryMaxMessages int     `mapstructure:"memory_max_messages"`

	LogLevel string `mapstructure:"log_level"`

	// Optional infrastructure endpoints.
	RedisAddr   string `mapstructure:"redis_addr"`
	ChromaURL   string `mapstructure:"chroma_url"`
	BraveAPIKey string `mapstructure:"brave_api_key"`
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	return &Settings{
		LLMProvider:       ProviderGemini,
		LLMModel:          "gemini-2.5-flash-lite",
		OllamaHost:        "http://localhost:11434",
		OpenAIBaseURL:     "https://api.openai.com/v1",
		AgentTemperature:  0.7,
		AgentMaxTokens:    4096,
		MemoryMaxMessages: 20,
		LogLevel:          "INFO",
	}
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	if _, err := ParseProvider(string(s.LLMProvider)); err != nil {
		return err
	}
	if s.AgentTemperature < 0 || s.AgentTemperature > 2 {
		return fmt.Errorf("agent_temperature must be within [0, 2], got %v", s.AgentTemperature)
	}
	if s.AgentMaxTokens <= 0 {
		return fmt.Errorf("agent_max_tokens must be positive, got %d", s.AgentMaxTokens)
	}
	if s.MemoryMaxMessages <= 0 {
		return fmt.Errorf("memory_max_messages must be positive, got %d", s.MemoryMaxMessages)
	}
	return nil
}

// APIKey returns the credential configured for p, if any.
func (s *Settings) APIKey(p Provider) string {
	switch p {
	case ProviderGemini:
		return s.GoogleAPIKey
	case ProviderOpenAI:
		return s.OpenAIAPIKey
	case ProviderAnthropic:
		return s.AnthropicAPIKey
	}
	return ""
}

type loadOptions struct {
	envFile    string
	configFile string
}

// Option configures Load.
type Option func(*loadOptions)

// WithEnvFile sets the dotenv file read before the environment. Default ".env".
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithConfigFile adds a config file (any format viper understands).
func WithConfigFile(path string) Option {
	return func(o *loadOptions) {
		o.configFile = path
	}
}

// Load builds Settings from defaults, the dotenv file, an optional config
// file and the process environment, in increasing priority.
func Load(opts ...Option) (*Settings, error) {
	o := &loadOptions{envFile: ".env"}
	for _, opt := range opts {
		opt(o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
	}

	v := viper.New()
	def := Default()
	v.SetDefault("llm_provider", string(def.LLMProvider))
	v.SetDefault("llm_model", def.LLMModel)
	v.SetDefault("google_api_key", "")
	v.SetDefault("ollama_host", def.OllamaHost)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", def.OpenAIBaseURL)
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("agent_temperature", def.AgentTemperature)
	v.SetDefault("agent_max_tokens", def.AgentMaxTokens)
	v.SetDefault("memory_max_messages", def.MemoryMaxMessages)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("redis_addr", "")
	v.SetDefault("chroma_url", "")
	v.SetDefault("brave_api_key", "")

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", o.configFile, err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	provider, err := ParseProvider(string(s.LLMProvider))
	if err != nil {
		return nil, err
	}
	s.LLMProvider = provider

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var (
	cachedMu  sync.Mutex
	cached    *Settings
	cachedErr error
	loaded    bool
)

// Get returns the process-wide settings, loading them on first use. When
// loading fails the defaults are returned alongside the error.
func Get() *Settings {
	s, _ := GetE()
	return s
}

// GetE is Get with the load error exposed.
func GetE() (*Settings, error) {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	if !loaded {
		cached, cachedErr = Load()
		if cachedErr != nil {
			cached = Default()
		}
		loaded = true
	}
	return cached, cachedErr
}

// Set replaces the cached settings. Intended for CLIs that load with
// explicit options and for tests.
func Set(s *Settings) {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	cached, cachedErr, loaded = s, nil, true
}

// Reset drops the cached settings so the next Get reloads them.
func Reset() {
	cachedMu.Lock()
	defer cachedMu.Unlock()
	cached, cachedErr, loaded = nil, nil, false
}
