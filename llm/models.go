package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallnest/multiagent/config"
	"github.com/smallnest/multiagent/log"
)

var staticModels = map[config.Provider][]string{
	config.ProviderGemini: {
		"gemini-3-pro-preview",
		"gemini-3-flash-preview",
		"gemini-2.5-flash-lite",
		"gemini-2.0-flash",
		"gemini-2.0-flash-thinking-exp",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	},
	config.ProviderOpenAI:    {"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"},
	config.ProviderAnthropic: {"claude-3-5-sonnet-20241022", "claude-3-haiku-20240307"},
}

// ListAvailableModels lists models for provider, or the configured provider
// when empty. Ollama is queried live; failures are logged and yield an
// empty list.
func ListAvailableModels(ctx context.Context, provider config.Provider, s *config.Settings) []string {
	if s == nil {
		s = config.Get()
	}
	if provider == "" {
		provider = s.LLMProvider
	}

	if provider == config.ProviderOllama {
		models, err := listOllamaModels(ctx, s.OllamaHost)
		if err != nil {
			log.Warn("Unable to list Ollama models: %v", err)
			return []string{}
		}
		return models
	}

	return append([]string{}, staticModels[provider]...)
}

func listOllamaModels(ctx context.Context, host string) ([]string, error) {
	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}

	resp, err := resty.New().
		SetBaseURL(host).
		SetTimeout(5 * time.Second).
		R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/tags")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/tags: %s", resp.Status())
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
