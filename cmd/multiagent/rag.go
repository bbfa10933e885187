package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smallnest/multiagent/llm"
	"github.com/smallnest/multiagent/log"
	"github.com/smallnest/multiagent/rag"
	"github.com/spf13/cobra"
)

type ragOptions struct {
	dirs       []string
	files      []string
	collection string
	results    int
	chunkSize  int
	overlap    int
	depth      int
}

func newRAGCmd(a *app) *cobra.Command {
	o := &ragOptions{}

	cmd := &cobra.Command{
		Use:   "rag [QUESTION...]",
		Short: "Ingest documents and answer questions from them",
		Long: "Ingest documents and answer questions from them.\n\n" +
			"Documents are stored in Chroma when CHROMA_URL is set and in memory otherwise.\n" +
			"Without a question the command reads questions from stdin.",
		Example: `  multiagent rag --dir ./docs "How do I configure Redis?"
  multiagent rag --file notes.md --file faq.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.ragStore(ctx, o.collection)
			if err != nil {
				return err
			}
			if err := ingest(ctx, store, o); err != nil {
				return err
			}
			if store.Count() == 0 && a.settings.ChromaURL == "" {
				return errors.New("no documents ingested: use --dir or --file")
			}

			model, err := a.newModel(ctx, llm.TypeGeneral)
			if err != nil {
				return err
			}
			agent := rag.NewAgent(store, model)

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				return answer(ctx, out, agent, strings.Join(args, " "), o.results)
			}

			banner(out, fmt.Sprintf("Ask the %q collection", store.Name()))
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, userStyle.Render("Question: "))
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				q := strings.TrimSpace(scanner.Text())
				if q == "" {
					continue
				}
				if q == "exit" || q == "quit" {
					return nil
				}
				if err := answer(ctx, out, agent, q, o.results); err != nil {
					fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
				}
			}
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&o.dirs, "dir", nil, "directory of .txt and .md files to ingest (repeatable)")
	f.StringSliceVar(&o.files, "file", nil, "file to ingest line by line (repeatable)")
	f.StringVar(&o.collection, "collection", rag.DefaultCollection, "collection name")
	f.IntVar(&o.results, "results", rag.DefaultResults, "number of context documents per question")
	f.IntVar(&o.chunkSize, "chunk-size", rag.DefaultChunkSize, "chunk size for ingestion")
	f.IntVar(&o.overlap, "overlap", 50, "chunk overlap for directory ingestion")
	f.IntVar(&o.depth, "depth", 3, "maximum directory depth")
	return cmd
}

func (a *app) ragStore(ctx context.Context, collection string) (*rag.Store, error) {
	embedder, err := llm.NewEmbedder(ctx, a.settings)
	if err != nil {
		return nil, err
	}
	if a.settings.ChromaURL != "" {
		return rag.NewChromaStore(a.settings.ChromaURL, collection, embedder)
	}
	return rag.NewMemoryStore(embedder, rag.WithCollectionName(collection)), nil
}

func ingest(ctx context.Context, store *rag.Store, o *ragOptions) error {
	for _, dir := range o.dirs {
		docs, err := rag.LoadDirectory(ctx, dir, o.depth)
		if err != nil {
			return err
		}
		chunks, err := rag.SplitDocuments(docs, o.chunkSize, o.overlap)
		if err != nil {
			return fmt.Errorf("failed to split %s: %w", dir, err)
		}
		ids, err := store.Ingest(ctx, chunks)
		if err != nil {
			return err
		}
		log.Info("Ingested %d chunks from %s", len(ids), dir)
	}
	for _, file := range o.files {
		ids, err := store.AddFromFile(ctx, file, o.chunkSize)
		if err != nil {
			return err
		}
		log.Info("Ingested %d chunks from %s", len(ids), file)
	}
	return nil
}

func answer(ctx context.Context, w io.Writer, agent *rag.Agent, question string, n int) error {
	reply, err := agent.Query(ctx, question, n)
	if err != nil {
		return err
	}
	speaker(w, "Answer", reply)
	return nil
}
