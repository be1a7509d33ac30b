// Package retrieve implements the hybrid retriever: vector search,
// optional full-text fusion, optional reranking, optional graph
// enrichment, with multi-strategy dispatch and result deduplication.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/llmclient"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

// FusionStrategy selects how vector and full-text result sets are merged
// when Opts.Hybrid is set.
type FusionStrategy string

const (
	// FusionOverlapFirst merges both-set hits first (in vector-rank
	// order), then remaining vector results, then remaining text
	// results. This is the default fusion strategy.
	FusionOverlapFirst FusionStrategy = "overlap_first"
	FusionRRF          FusionStrategy = "rrf"
	FusionWeighted     FusionStrategy = "weighted"
	FusionMax          FusionStrategy = "max"
)

// VectorSearcher is the read side of internal/store that Retriever needs.
type VectorSearcher interface {
	VectorSearchPages(ctx context.Context, queryVec []float32, sourceFilter string, matchCount int) ([]ragmodel.SearchResult, error)
	VectorSearchCodeExamples(ctx context.Context, queryVec []float32, sourceID string, matchCount int) ([]ragmodel.SearchResult, error)
	FullTextSearchPages(ctx context.Context, query, sourceFilter string, matchCount int) ([]ragmodel.SearchResult, error)
}

// GraphEnricher looks up entities mentioned in a document and their
// neighbors, for the optional graph-enrichment pass.
type GraphEnricher interface {
	MentionedEntities(ctx context.Context, documentURL string, limit int) ([]ragmodel.EntityContext, error)
}

// Opts configures one retrieval call.
type Opts struct {
	SourceFilter string
	MatchCount   int
	Hybrid       bool
	Rerank       bool
	GraphEnrich  bool
	Fusion       FusionStrategy
}

const (
	defaultMatchCount  = 10
	graphEnrichTopK    = 5
	graphEnrichPerItem = 3
)

func (o Opts) withDefaults() Opts {
	if o.MatchCount <= 0 {
		o.MatchCount = defaultMatchCount
	}
	if o.Fusion == "" {
		o.Fusion = FusionOverlapFirst
	}
	return o
}

// Reranker scores a query/document pair; internal/rerank.LLMReranker
// implements this against an llmclient.Provider.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []ragmodel.SearchResult) ([]ragmodel.SearchResult, error)
}

// Retriever answers queries by combining the capabilities above.
type Retriever struct {
	Store    VectorSearcher
	Embedder interface {
		Embed(ctx context.Context, texts []string) [][]float32
	}
	Reranker Reranker
	Graph    GraphEnricher
}

// Query embeds q, runs vector search (and, if opts.Hybrid, full-text
// search fused with it), optionally reranks, and optionally attaches graph
// context to the top results.
func (r *Retriever) Query(ctx context.Context, q string, opts Opts) ([]ragmodel.SearchResult, error) {
	opts = opts.withDefaults()

	vectors := r.Embedder.Embed(ctx, []string{q})
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: embedding query", errs.ErrEmbedding)
	}
	queryVec := vectors[0]

	vectorResults, err := r.Store.VectorSearchPages(ctx, queryVec, opts.SourceFilter, opts.MatchCount)
	if err != nil {
		return nil, err
	}

	results := vectorResults
	if opts.Hybrid {
		textResults, err := r.Store.FullTextSearchPages(ctx, q, opts.SourceFilter, opts.MatchCount)
		if err != nil {
			slog.Warn("full-text search failed, falling back to vector-only", "error", err)
		} else {
			results = fuse(opts.Fusion, vectorResults, textResults, opts.MatchCount)
		}
	}

	if opts.Rerank && r.Reranker != nil {
		reranked, err := r.Reranker.Rerank(ctx, q, results)
		if err != nil {
			slog.Warn("rerank failed, keeping fused order", "error", err)
		} else {
			results = reranked
		}
		if len(results) > opts.MatchCount {
			results = results[:opts.MatchCount]
		}
	}

	if opts.GraphEnrich && r.Graph != nil {
		r.enrichWithGraph(ctx, results)
	}

	return results, nil
}

// QueryCodeExamples is Query but against the CodeExample table, with the
// source filter named source_id.
func (r *Retriever) QueryCodeExamples(ctx context.Context, q, sourceID string, matchCount int) ([]ragmodel.SearchResult, error) {
	if matchCount <= 0 {
		matchCount = defaultMatchCount
	}
	vectors := r.Embedder.Embed(ctx, []string{q})
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: embedding query", errs.ErrEmbedding)
	}
	return r.Store.VectorSearchCodeExamples(ctx, vectors[0], sourceID, matchCount)
}

func (r *Retriever) enrichWithGraph(ctx context.Context, results []ragmodel.SearchResult) {
	topK := min(graphEnrichTopK, len(results))
	for i := 0; i < topK; i++ {
		if results[i].Page == nil {
			continue
		}
		entities, err := r.Graph.MentionedEntities(ctx, results[i].Page.URL, graphEnrichPerItem)
		if err != nil {
			slog.Warn("graph enrichment unavailable, skipping", "error", fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err))
			return
		}
		results[i].GraphContext = entities
	}
}
