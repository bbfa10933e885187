package rag

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// LoadDirectory loads .txt and .md files under dir, descending at most
// maxDepth levels. The source metadata is the file name.
func LoadDirectory(ctx context.Context, dir string, maxDepth int) ([]schema.Document, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	loader := documentloaders.NewRecursiveDirLoader(
		documentloaders.WithRoot(dir),
		documentloaders.WithMaxDepth(maxDepth),
		documentloaders.WithAllowExts("txt", "md"),
	)
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", dir, err)
	}
	for i := range docs {
		if path, ok := docs[i].Metadata[sourceField].(string); ok {
			docs[i].Metadata[sourceField] = filepath.Base(path)
		}
	}
	return docs, nil
}

// SplitDocuments splits documents with langchaingo's recursive character
// splitter, keeping metadata on every chunk.
func SplitDocuments(docs []schema.Document, chunkSize, overlap int) ([]schema.Document, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(max(overlap, 0)),
	)
	return textsplitter.SplitDocuments(splitter, docs)
}
