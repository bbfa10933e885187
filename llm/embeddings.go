package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/multiagent/config"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmbeddingsUnsupported is returned for providers without an embeddings API.
var ErrEmbeddingsUnsupported = errors.New("embeddings not supported by provider")

// Default embedding models.
const (
	GeminiEmbeddingModel = "text-embedding-004"
	OllamaEmbeddingModel = "nomic-embed-text"
	OpenAIEmbeddingModel = "text-embedding-3-small"
)

// NewEmbedder returns an embedder backed by the configured provider.
func NewEmbedder(ctx context.Context, s *config.Settings) (embeddings.Embedder, error) {
	if s == nil {
		s = config.Get()
	}

	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch s.LLMProvider {
	case config.ProviderGemini:
		if s.GoogleAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY not configured: %w", ErrMissingAPIKey)
		}
		client, err = googleai.New(ctx,
			googleai.WithAPIKey(s.GoogleAPIKey),
			googleai.WithDefaultEmbeddingModel(GeminiEmbeddingModel),
		)
	case config.ProviderOllama:
		client, err = ollama.New(
			ollama.WithModel(OllamaEmbeddingModel),
			ollama.WithServerURL(s.OllamaHost),
		)
	case config.ProviderOpenAI:
		if s.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not configured: %w", ErrMissingAPIKey)
		}
		client, err = openai.New(
			openai.WithToken(s.OpenAIAPIKey),
			openai.WithBaseURL(s.OpenAIBaseURL),
			openai.WithEmbeddingModel(OpenAIEmbeddingModel),
		)
	default:
		return nil, fmt.Errorf("%w: %s", ErrEmbeddingsUnsupported, s.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, err
	}
	return embedder, nil
}
