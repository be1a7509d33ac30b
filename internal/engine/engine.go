// Package engine wires every capability package into the fourteen tool
// operations internal/transport exposes: one struct holding every
// capability the engine needs, exposed through narrow methods rather
// than the struct's fields directly.
package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/fgarofalo56/ragengine/internal/chunk"
	"github.com/fgarofalo56/ragengine/internal/codegraph"
	"github.com/fgarofalo56/ragengine/internal/config"
	"github.com/fgarofalo56/ragengine/internal/crawl"
	"github.com/fgarofalo56/ragengine/internal/embed"
	"github.com/fgarofalo56/ragengine/internal/enrich"
	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/fetch"
	"github.com/fgarofalo56/ragengine/internal/graph"
	"github.com/fgarofalo56/ragengine/internal/llmclient"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
	"github.com/fgarofalo56/ragengine/internal/rerank"
	"github.com/fgarofalo56/ragengine/internal/retrieve"
	"github.com/fgarofalo56/ragengine/internal/store"
)

// Deps is everything the engine needs, assembled once at startup by
// cmd/ragengine and handed to New.
type Deps struct {
	Config    *config.Config
	Fetcher   fetch.Fetcher
	LLM       llmclient.Provider
	Embedder  *embed.Client
	Store     *store.Store
	Graph     *graph.Store
	Extractor *graph.Extractor
	Validator *graph.Validator
	Indexer   *codegraph.Indexer
}

// Engine exposes the fourteen tool operations as plain Go methods;
// internal/transport adapts each one to an MCP tool.
type Engine struct {
	deps      Deps
	dispatch  *crawl.Dispatcher
	retriever *retrieve.Retriever
}

// New assembles an Engine from deps, wiring the optional reranker and
// graph-enrichment capabilities on only when the config flags enable them.
func New(deps Deps) *Engine {
	var reranker retrieve.Reranker
	if deps.Config.UseReranking {
		reranker = rerank.New(deps.LLM)
	}

	var grapher retrieve.GraphEnricher
	if deps.Config.UseKnowledgeGraph || deps.Config.UseGraphRAG {
		grapher = deps.Extractor
	}

	return &Engine{
		deps:     deps,
		dispatch: crawl.NewDispatcher(deps.Fetcher),
		retriever: &retrieve.Retriever{
			Store:    deps.Store,
			Embedder: deps.Embedder,
			Reranker: reranker,
			Graph:    grapher,
		},
	}
}

// sourceIDFor derives the source_id grouping key from a URL: its host.
func sourceIDFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// ingestResult summarizes one ingest pass, used across every crawl_* op.
type ingestResult struct {
	PagesCrawled int
	ChunksStored int
}

// ingestDocuments chunks, optionally contextually summarizes, embeds,
// optionally extracts code examples, and writes docs to the store —
// the ingestion half common to every crawl operation. Failed documents
// (doc.Error != nil) are counted but not ingested; a per-URL fetch
// failure is swallowed rather than aborting the whole ingest.
func (e *Engine) ingestDocuments(ctx context.Context, sourceID string, docs []crawl.Document, chunkSize int) (ingestResult, error) {
	cfg := e.deps.Config
	if chunkSize <= 0 {
		chunkSize = cfg.DefaultChunkSize
	}

	var result ingestResult
	totalWords := 0

	for _, doc := range docs {
		if doc.Error != nil || doc.Markdown == "" {
			continue
		}
		result.PagesCrawled++

		chunks := chunk.Split(doc.Markdown, chunkSize)
		if len(chunks) == 0 {
			continue
		}

		contents := make([]string, len(chunks))
		for i, c := range chunks {
			content := c.Content
			if cfg.UseContextualEmbeddings {
				content = enrich.Summarize(ctx, e.deps.LLM, doc.Markdown, c.Content)
			}
			contents[i] = content
		}

		vectors := e.deps.Embedder.Embed(ctx, contents)

		pages := make([]ragmodel.CrawledPage, len(chunks))
		for i, c := range chunks {
			pages[i] = ragmodel.CrawledPage{
				ID:             uuid.NewString(),
				URL:            doc.URL,
				SourceID:       sourceID,
				ChunkIndex:     c.Index,
				Content:        contents[i],
				ContextSummary: strings.TrimSuffix(strings.TrimSuffix(contents[i], c.Content), "\n\n"),
				Metadata:       c.Metadata,
				Embedding:      vectors[i],
				ContentHash:    chunk.ContentHash(c.Content),
			}
			totalWords += wordCount(c.Content)
		}

		if err := e.deps.Store.DeleteByURL(ctx, doc.URL); err != nil {
			return result, err
		}
		if err := e.deps.Store.InsertChunks(ctx, pages); err != nil {
			return result, err
		}
		result.ChunksStored += len(pages)

		if cfg.UseAgenticRAG {
			if err := e.ingestCodeExamples(ctx, doc, sourceID); err != nil {
				return result, err
			}
		}

		if cfg.UseGraphRAG {
			if err := e.deps.Extractor.ExtractDocument(ctx, doc.URL, chunks); err != nil {
				return result, err
			}
		}
	}

	if result.PagesCrawled > 0 {
		if err := e.deps.Store.UpsertSource(ctx, sourceID, summarize(sourceID, result.PagesCrawled), totalWords, result.PagesCrawled); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (e *Engine) ingestCodeExamples(ctx context.Context, doc crawl.Document, sourceID string) error {
	blocks := enrich.ExtractCodeBlocks(ctx, e.deps.LLM, doc.Markdown)
	if len(blocks) == 0 {
		return nil
	}

	inputs := make([]string, len(blocks))
	for i, b := range blocks {
		inputs[i] = b.EmbeddingInput()
	}
	vectors := e.deps.Embedder.Embed(ctx, inputs)

	examples := make([]ragmodel.CodeExample, len(blocks))
	for i, b := range blocks {
		examples[i] = ragmodel.CodeExample{
			ID:          uuid.NewString(),
			URL:         doc.URL,
			SourceID:    sourceID,
			ChunkIndex:  b.Index,
			Content:     b.Code,
			Language:    b.Language,
			Summary:     b.Summary,
			Embedding:   vectors[i],
			ContentHash: chunk.ContentHash(b.Code),
		}
	}
	return e.deps.Store.InsertCodeExamples(ctx, examples)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func summarize(sourceID string, pageCount int) string {
	return fmt.Sprintf("%s (%d pages crawled)", sourceID, pageCount)
}

// repoNameFromURL derives a short repository name from a git URL, e.g.
// https://github.com/owner/repo.git -> owner/repo.
func repoNameFromURL(repoURL string) string {
	trimmed := strings.TrimSuffix(repoURL, ".git")
	u, err := url.Parse(trimmed)
	if err != nil || u.Path == "" {
		return trimmed
	}
	return strings.Trim(u.Path, "/")
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrValidation, fmt.Sprintf(format, args...))
}
