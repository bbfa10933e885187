package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// DefaultSystemPrompt instructs the model to answer from retrieved context.
const DefaultSystemPrompt = "You are a helpful assistant that answers questions based on the provided context. " +
	"If the context doesn't contain relevant information, say so clearly. " +
	"Always cite the source when available."

const queryTemplate = `Based on the following context, answer the question.

CONTEXT:
%s

QUESTION: %s

Answer:`

// Agent answers questions with a model grounded on documents from a Store.
type Agent struct {
	Store        *Store
	Model        llms.Model
	SystemPrompt string
}

// NewAgent creates an agent with the default system prompt.
func NewAgent(store *Store, model llms.Model) *Agent {
	return &Agent{Store: store, Model: model, SystemPrompt: DefaultSystemPrompt}
}

// BuildContext formats search results as numbered source blocks.
func BuildContext(results []Result) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		source, _ := r.Metadata[sourceField].(string)
		if source == "" {
			source = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("[%d] Source: %s\n%s", i+1, source, r.Document))
	}
	return strings.Join(parts, "\n\n")
}

// Query retrieves nContext documents for question and asks the model.
func (a *Agent) Query(ctx context.Context, question string, nContext int) (string, error) {
	results, err := a.Store.Search(ctx, question, nContext, nil)
	if err != nil {
		return "", err
	}

	systemPrompt := a.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(queryTemplate, BuildContext(results), question)),
	}

	resp, err := a.Model.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}
