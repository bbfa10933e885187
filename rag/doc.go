// Package rag provides retrieval-augmented generation for agents.
//
// A Store keeps documents in a langchaingo vector store and answers
// semantic searches with cosine distance. Two backends are provided: a
// Chroma server and an in-process memory store for tests and offline use.
// An Agent combines a Store with a model and answers questions from the
// retrieved context.
//
// # Quick Start
//
//	embedder, err := llm.NewEmbedder(ctx, config.Get())
//	if err != nil {
//		return err
//	}
//
//	store := rag.NewMemoryStore(embedder)
//	// or: store, err := rag.NewChromaStore("http://localhost:8000", "docs", embedder)
//
//	store.AddDocuments(ctx, []string{
//		"Python is a programming language",
//		"LangGraph creates agent workflows",
//	}, nil, nil)
//	store.AddFromFile(ctx, "guide.txt", 500)
//
//	results, err := store.Search(ctx, "What is Python?", 2, nil)
//
//	agent := rag.NewAgent(store, model)
//	answer, err := agent.Query(ctx, "What is Python used for?", 3)
//
// # Ingesting directories
//
// LoadDirectory reads .txt and .md files with langchaingo document loaders
// and SplitDocuments chunks them with the recursive character splitter:
//
//	docs, err := rag.LoadDirectory(ctx, "./docs", 2)
//	chunks, err := rag.SplitDocuments(docs, 500, 50)
//	ids, err := store.Ingest(ctx, chunks)
package rag
