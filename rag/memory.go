package rag

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// ErrNoEmbedder is returned when a vector store has no embedder configured.
var ErrNoEmbedder = errors.New("no embedder configured")

// MemoryVectorStore is a simple in-memory vector store using cosine
// similarity.
type MemoryVectorStore struct {
	mu         sync.RWMutex
	documents  []schema.Document
	embeddings [][]float32
	embedder   embeddings.Embedder
}

// NewMemoryVectorStore creates a new MemoryVectorStore
func NewMemoryVectorStore(embedder embeddings.Embedder) *MemoryVectorStore {
	return &MemoryVectorStore{embedder: embedder}
}

// AddDocuments embeds and stores documents, returning generated IDs.
func (s *MemoryVectorStore) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	embedder := s.getOptions(options...).Embedder
	if embedder == nil {
		return nil, ErrNoEmbedder
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = uuid.NewString()
		metadata := make(map[string]any, len(doc.Metadata))
		maps.Copy(metadata, doc.Metadata)

		s.documents = append(s.documents, schema.Document{PageContent: doc.PageContent, Metadata: metadata})
		s.embeddings = append(s.embeddings, vectors[i])
	}
	return ids, nil
}

// SimilaritySearch returns the documents closest to query. Filters, when
// given, must be a map of metadata values that documents have to equal.
func (s *MemoryVectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := s.getOptions(options...)
	if opts.Embedder == nil {
		return nil, ErrNoEmbedder
	}
	if numDocuments <= 0 {
		return []schema.Document{}, nil
	}

	var filter map[string]any
	if opts.Filters != nil {
		f, ok := opts.Filters.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unsupported filter type %T", opts.Filters)
		}
		filter = f
	}

	queryEmbedding, err := opts.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type docScore struct {
		index int
		score float32
	}

	scores := make([]docScore, 0, len(s.documents))
	for i, doc := range s.documents {
		if !matchesFilter(doc, filter) {
			continue
		}
		score := float32(cosineSimilarity32(queryEmbedding, s.embeddings[i]))
		if score < opts.ScoreThreshold {
			continue
		}
		scores = append(scores, docScore{index: i, score: score})
	}

	// Sort by similarity score (descending)
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	k := min(numDocuments, len(scores))
	results := make([]schema.Document, k)
	for i := range k {
		doc := s.documents[scores[i].index]
		metadata := make(map[string]any, len(doc.Metadata))
		maps.Copy(metadata, doc.Metadata)
		results[i] = schema.Document{
			PageContent: doc.PageContent,
			Metadata:    metadata,
			Score:       scores[i].score,
		}
	}
	return results, nil
}

// Clear removes all documents.
func (s *MemoryVectorStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = nil
	s.embeddings = nil
	return nil
}

// Len returns the number of stored vectors.
func (s *MemoryVectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

func (s *MemoryVectorStore) getOptions(options ...vectorstores.Option) vectorstores.Options {
	opts := vectorstores.Options{Embedder: s.embedder}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

// matchesFilter checks if a document matches the given filter
func matchesFilter(doc schema.Document, filter map[string]any) bool {
	for key, value := range filter {
		docValue, exists := doc.Metadata[key]
		if !exists || docValue != value {
			return false
		}
	}
	return true
}

// cosineSimilarity32 calculates cosine similarity between two float32 vectors
func cosineSimilarity32(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ vectorstores.VectorStore = (*MemoryVectorStore)(nil)
