package rag

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	chromago "github.com/amikos-tech/chroma-go"
	chromatypes "github.com/amikos-tech/chroma-go/types"
	"github.com/google/uuid"
	"github.com/smallnest/multiagent/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/chroma"
)

const (
	// DefaultResults is the number of results returned by Search when n <= 0.
	DefaultResults = 3
	// DefaultChunkSize is the approximate chunk size used by AddFromFile.
	DefaultChunkSize = 500
	// DefaultCollection is the collection name used when none is given.
	DefaultCollection = "default"

	idField     = "id"
	sourceField = "source"
	keyField    = "_key"
)

// ErrFileNotFound is returned by AddFromFile for a missing file.
var ErrFileNotFound = errors.New("file not found")

// Result is one search hit.
type Result struct {
	Document string
	ID       string
	Metadata map[string]any
	// Distance is the cosine distance, 1 - similarity.
	Distance float64
}

// clearer is implemented by backends that can drop all their documents.
type clearer interface {
	Clear(ctx context.Context) error
}

// storedDocument is a document written by an earlier process.
type storedDocument struct {
	id  string
	key string
}

// indexer is implemented by persistent backends that can list the
// documents they already hold.
type indexer interface {
	stored(ctx context.Context) ([]storedDocument, error)
}

// keyDeleter is implemented by backends that can remove documents by their
// private key.
type keyDeleter interface {
	deleteKeys(ctx context.Context, keys []string) error
}

// Store is a document collection with semantic search on top of a
// langchaingo vector store.
//
// Backends only need to add and search. Document IDs, deletion and counts
// are tracked by the Store itself: every stored document carries a private
// key in its metadata, and deleted keys are filtered out of search results.
type Store struct {
	name    string
	backend vectorstores.VectorStore

	mu      sync.RWMutex
	keys    map[string]string // document id -> storage key
	order   []string
	deleted map[string]struct{}
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCollectionName sets the collection name used in logs.
func WithCollectionName(name string) StoreOption {
	return func(s *Store) {
		s.name = name
	}
}

// NewStore wraps a vector store backend.
func NewStore(backend vectorstores.VectorStore, opts ...StoreOption) *Store {
	s := &Store{
		name:    DefaultCollection,
		backend: backend,
		keys:    make(map[string]string),
		deleted: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMemoryStore creates a store kept in process memory.
func NewMemoryStore(embedder embeddings.Embedder, opts ...StoreOption) *Store {
	s := NewStore(NewMemoryVectorStore(embedder), opts...)
	log.Info("RAG store initialized with in-memory storage")
	return s
}

// chromaBackend recreates its collection on Clear. The chroma-go client
// reads and deletes documents the langchaingo store cannot reach.
type chromaBackend struct {
	chroma.Store
	opts       []chroma.Option
	client     *chromago.Client
	collection string
}

func (c *chromaBackend) Clear(ctx context.Context) error {
	if err := c.Store.RemoveCollection(); err != nil {
		return err
	}
	store, err := chroma.New(c.opts...)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	c.Store = store
	return nil
}

func (c *chromaBackend) stored(ctx context.Context) ([]storedDocument, error) {
	col, err := c.client.GetCollection(ctx, c.collection, nil)
	if err != nil {
		return nil, err
	}
	n, err := col.Count(ctx)
	if err != nil || n == 0 {
		return nil, err
	}
	res, err := col.GetWithOptions(ctx,
		chromatypes.WithInclude(chromatypes.IMetadatas),
		chromatypes.WithLimit(n))
	if err != nil {
		return nil, err
	}

	docs := make([]storedDocument, 0, len(res.Metadatas))
	for _, md := range res.Metadatas {
		id, _ := md[idField].(string)
		key, _ := md[keyField].(string)
		if id != "" && key != "" {
			docs = append(docs, storedDocument{id: id, key: key})
		}
	}
	return docs, nil
}

func (c *chromaBackend) deleteKeys(ctx context.Context, keys []string) error {
	col, err := c.client.GetCollection(ctx, c.collection, nil)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := col.Delete(ctx, nil, map[string]any{keyField: key}, nil); err != nil {
			return err
		}
	}
	return nil
}

// NewChromaStore connects to a Chroma server and uses collection with
// cosine distance. Documents already in the collection are indexed, so
// Count and generated IDs carry on from an earlier process.
func NewChromaStore(url, collection string, embedder embeddings.Embedder) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	opts := []chroma.Option{
		chroma.WithChromaURL(url),
		chroma.WithNameSpace(collection),
		chroma.WithEmbedder(embedder),
		chroma.WithDistanceFunction(chromatypes.COSINE),
	}
	store, err := chroma.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chroma at %s: %w", url, err)
	}
	client, err := chromago.NewClient(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chroma at %s: %w", url, err)
	}

	s := NewStore(&chromaBackend{Store: store, opts: opts, client: client, collection: collection},
		WithCollectionName(collection))
	if err := s.Sync(context.Background()); err != nil {
		log.Warn("Failed to index collection '%s': %v", collection, err)
	}
	log.Info("RAG store initialized with chroma storage: %s (%d documents)", url, s.Count())
	return s, nil
}

// Sync rebuilds the document index from a persistent backend. When an ID
// was stored more than once, the first copy found wins and the rest are
// hidden. Backends that cannot list their documents are left untouched.
func (s *Store) Sync(ctx context.Context) error {
	idx, ok := s.backend.(indexer)
	if !ok {
		return nil
	}
	docs, err := idx.stored(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]string, len(docs))
	s.order = s.order[:0]
	s.deleted = make(map[string]struct{})
	for _, doc := range docs {
		if _, dup := s.keys[doc.id]; dup {
			s.deleted[doc.key] = struct{}{}
			continue
		}
		s.keys[doc.id] = doc.key
		s.order = append(s.order, doc.id)
	}
	return nil
}

// purge removes replaced or deleted documents from backends that support
// it. Failures leave the keys hidden by the tombstone set.
func (s *Store) purge(ctx context.Context, keys []string) {
	d, ok := s.backend.(keyDeleter)
	if !ok || len(keys) == 0 {
		return
	}
	if err := d.deleteKeys(ctx, keys); err != nil {
		log.Warn("Failed to delete %d documents from '%s': %v", len(keys), s.name, err)
	}
}

// Name returns the collection name.
func (s *Store) Name() string { return s.name }

// Count returns the number of live documents in the collection.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// IDs returns the live document IDs in insertion order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// AddDocuments stores texts and returns their IDs. IDs default to
// doc_{count+i}. Adding an existing ID replaces that document.
func (s *Store) AddDocuments(ctx context.Context, texts []string, ids []string, metadatas []map[string]any) ([]string, error) {
	if ids != nil && len(ids) != len(texts) {
		return nil, fmt.Errorf("got %d ids for %d documents", len(ids), len(texts))
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("got %d metadatas for %d documents", len(metadatas), len(texts))
	}
	if len(texts) == 0 {
		return []string{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ids == nil {
		// Numbering starts at the current count and skips live IDs left
		// behind by deletions.
		next := len(s.order)
		ids = make([]string, len(texts))
		for i := range texts {
			for {
				id := fmt.Sprintf("doc_%d", next)
				next++
				if _, taken := s.keys[id]; !taken {
					ids[i] = id
					break
				}
			}
		}
	}

	docs := make([]schema.Document, len(texts))
	keys := make([]string, len(texts))
	for i, text := range texts {
		metadata := map[string]any{}
		if metadatas != nil {
			maps.Copy(metadata, metadatas[i])
		}
		keys[i] = uuid.NewString()
		metadata[idField] = ids[i]
		metadata[keyField] = keys[i]
		docs[i] = schema.Document{PageContent: text, Metadata: metadata}
	}

	if _, err := s.backend.AddDocuments(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	var replaced []string
	for i, id := range ids {
		if old, ok := s.keys[id]; ok {
			s.deleted[old] = struct{}{}
			replaced = append(replaced, old)
		} else {
			s.order = append(s.order, id)
		}
		s.keys[id] = keys[i]
	}

	s.purge(ctx, replaced)

	log.Info("Added %d documents to collection '%s'", len(texts), s.name)
	return ids, nil
}

// Ingest stores langchaingo documents, such as those returned by
// LoadDirectory and SplitDocuments.
func (s *Store) Ingest(ctx context.Context, docs []schema.Document) ([]string, error) {
	texts := make([]string, len(docs))
	metadatas := make([]map[string]any, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
		metadatas[i] = doc.Metadata
	}
	return s.AddDocuments(ctx, texts, nil, metadatas)
}

// AddFromFile splits a text file into chunks of roughly chunkSize
// characters on line boundaries and stores them with the file name as
// source.
func (s *Store) AddFromFile(ctx context.Context, path string, chunkSize int) ([]string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	chunks := ChunkLines(string(data), chunkSize)
	metadatas := make([]map[string]any, len(chunks))
	for i := range chunks {
		metadatas[i] = map[string]any{sourceField: filepath.Base(path)}
	}
	return s.AddDocuments(ctx, chunks, nil, metadatas)
}

// ChunkLines groups lines into chunks of roughly size characters. A line is
// never split; a chunk is closed before a line that would overflow it.
func ChunkLines(content string, size int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, line := range strings.Split(content, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen > size && strings.TrimSpace(current.String()) != "" {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			current.WriteString(line)
			currentLen = lineLen
			continue
		}
		current.WriteString("\n")
		current.WriteString(line)
		currentLen += lineLen + 1
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// Search returns up to n documents most similar to query. where restricts
// results to documents whose metadata equals the given values.
func (s *Store) Search(ctx context.Context, query string, n int, where map[string]any) ([]Result, error) {
	if n <= 0 {
		n = DefaultResults
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var options []vectorstores.Option
	if len(where) > 0 {
		options = append(options, vectorstores.WithFilters(where))
	}
	docs, err := s.backend.SimilaritySearch(ctx, query, n+len(s.deleted), options...)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, n)
	for _, doc := range docs {
		if key, ok := doc.Metadata[keyField].(string); ok {
			if _, gone := s.deleted[key]; gone {
				continue
			}
		}
		metadata := make(map[string]any, len(doc.Metadata))
		maps.Copy(metadata, doc.Metadata)
		delete(metadata, keyField)
		id, _ := metadata[idField].(string)

		results = append(results, Result{
			Document: doc.PageContent,
			ID:       id,
			Metadata: metadata,
			Distance: 1 - float64(doc.Score),
		})
		if len(results) == n {
			break
		}
	}
	return results, nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]struct{}, len(ids))
	var keys []string
	for _, id := range ids {
		key, ok := s.keys[id]
		if !ok {
			continue
		}
		s.deleted[key] = struct{}{}
		keys = append(keys, key)
		delete(s.keys, id)
		removed[id] = struct{}{}
	}
	if len(removed) > 0 {
		order := s.order[:0]
		for _, id := range s.order {
			if _, ok := removed[id]; !ok {
				order = append(order, id)
			}
		}
		s.order = order
	}
	s.purge(ctx, keys)

	log.Info("Deleted %d documents", len(removed))
	return nil
}

// Clear deletes all documents in the collection.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.backend.(clearer); ok {
		if err := c.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
		s.deleted = make(map[string]struct{})
	} else {
		for _, key := range s.keys {
			s.deleted[key] = struct{}{}
		}
	}
	s.keys = make(map[string]string)
	s.order = nil

	log.Info("Cleared collection '%s'", s.name)
	return nil
}
