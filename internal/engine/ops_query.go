package engine

import (
	"context"

	"github.com/fgarofalo56/ragengine/internal/ragmodel"
	"github.com/fgarofalo56/ragengine/internal/retrieve"
)

// PerformRAGQuery runs the hybrid retriever against the ingested prose
// chunk table.
func (e *Engine) PerformRAGQuery(ctx context.Context, query, sourceFilter string, matchCount int) ([]ragmodel.SearchResult, error) {
	if query == "" {
		return nil, validationError("query is required")
	}

	cfg := e.deps.Config
	opts := retrieve.Opts{
		SourceFilter: sourceFilter,
		MatchCount:   matchCount,
		Hybrid:       cfg.UseHybridSearch,
		Rerank:       cfg.UseReranking,
		GraphEnrich:  cfg.UseKnowledgeGraph || cfg.UseGraphRAG,
	}
	return e.retriever.Query(ctx, query, opts)
}

// SearchCodeExamples runs vector search against the code-example table.
// Only meaningful when agentic RAG is enabled; with it off the table is
// simply empty and the call degrades to a no-results response rather
// than an error.
func (e *Engine) SearchCodeExamples(ctx context.Context, query, sourceID string, matchCount int) ([]ragmodel.SearchResult, error) {
	if query == "" {
		return nil, validationError("query is required")
	}
	return e.retriever.QueryCodeExamples(ctx, query, sourceID, matchCount)
}
