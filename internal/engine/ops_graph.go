package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/fgarofalo56/ragengine/internal/codegraph"
	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/graph"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
	"github.com/fgarofalo56/ragengine/internal/retrieve"
)

// ParseGithubRepository clones repoURL and indexes its Go source into the
// property graph.
func (e *Engine) ParseGithubRepository(ctx context.Context, repoURL string) (graph.WriteStats, error) {
	if repoURL == "" {
		return graph.WriteStats{}, validationError("repo_url is required")
	}
	return e.deps.Indexer.IndexRepositories(ctx, []codegraph.RepoSpec{
		{Name: repoNameFromURL(repoURL), URL: repoURL},
	})
}

// BatchRepoResult is one repository's outcome from ParseGithubRepositoriesBatch.
type BatchRepoResult struct {
	Name  string
	Stats graph.WriteStats
	Err   error
}

// ParseGithubRepositoriesBatch clones and indexes every repoURL
// concurrently, returning each repository's own outcome alongside the
// aggregate.
func (e *Engine) ParseGithubRepositoriesBatch(ctx context.Context, repoURLs []string) ([]BatchRepoResult, graph.WriteStats, error) {
	if len(repoURLs) == 0 {
		return nil, graph.WriteStats{}, validationError("at least one repo_url is required")
	}

	specs := make([]codegraph.RepoSpec, len(repoURLs))
	for i, u := range repoURLs {
		specs[i] = codegraph.RepoSpec{Name: repoNameFromURL(u), URL: u}
	}

	detailed, err := e.deps.Indexer.IndexRepositoriesDetailed(ctx, specs)
	if err != nil {
		return nil, graph.WriteStats{}, err
	}

	results := make([]BatchRepoResult, len(detailed))
	var total graph.WriteStats
	for i, r := range detailed {
		results[i] = BatchRepoResult{Name: r.Name, Stats: r.Stats, Err: r.Err}
		total.Add(r.Stats)
	}
	return results, total, nil
}

// CheckAIScriptHallucinations validates scriptContent's class/function
// references against repoName's indexed graph (or, if repoName is empty,
// against every indexed repository).
func (e *Engine) CheckAIScriptHallucinations(ctx context.Context, repoName, path, scriptContent string) (graph.ValidationReport, error) {
	if scriptContent == "" {
		return graph.ValidationReport{}, validationError("script content is required")
	}
	return e.deps.Validator.ValidateSource(ctx, repoName, path, scriptContent)
}

// QueryKnowledgeGraphResult is the union result of every
// query_knowledge_graph sub-command; only the field matching the requested
// command is populated.
type QueryKnowledgeGraphResult struct {
	Repositories []string
	Classes      []string
	Neighbors    []graph.NeighborEdge
	Methods      []graph.Method
}

// QueryKnowledgeGraph dispatches one of four space-delimited commands:
// "repos", "explore <name>", "classes <repo>", "method <name>".
func (e *Engine) QueryKnowledgeGraph(ctx context.Context, command string) (QueryKnowledgeGraphResult, error) {
	fields := strings.Fields(strings.TrimSpace(command))
	if len(fields) == 0 {
		return QueryKnowledgeGraphResult{}, validationError("command is required")
	}

	switch strings.ToLower(fields[0]) {
	case "repos":
		repos, err := e.deps.Graph.ListRepositories(ctx)
		return QueryKnowledgeGraphResult{Repositories: repos}, err

	case "explore":
		if len(fields) < 2 {
			return QueryKnowledgeGraphResult{}, validationError("explore requires an entity name")
		}
		edges, err := e.deps.Graph.ExploreEntity(ctx, fields[1])
		return QueryKnowledgeGraphResult{Neighbors: edges}, err

	case "classes":
		if len(fields) < 2 {
			return QueryKnowledgeGraphResult{}, validationError("classes requires a repository name")
		}
		classes, err := e.deps.Graph.ListClassesByRepo(ctx, fields[1])
		return QueryKnowledgeGraphResult{Classes: classes}, err

	case "method":
		if len(fields) < 2 {
			return QueryKnowledgeGraphResult{}, validationError("method requires a method name")
		}
		methods, err := e.deps.Graph.MethodByName(ctx, fields[1])
		return QueryKnowledgeGraphResult{Methods: methods}, err

	default:
		return QueryKnowledgeGraphResult{}, fmt.Errorf("%w: unknown command %q", errs.ErrValidation, fields[0])
	}
}

// GraphRAGQuery runs the hybrid retriever with graph enrichment forced on
// regardless of the USE_KNOWLEDGE_GRAPH/USE_GRAPHRAG flags: a caller
// asking for this operation by name wants the graph context even if it
// isn't on by default for the plain RAG query.
func (e *Engine) GraphRAGQuery(ctx context.Context, query, sourceFilter string, matchCount int) ([]ragmodel.SearchResult, error) {
	if query == "" {
		return nil, validationError("query is required")
	}
	if e.deps.Extractor == nil {
		return nil, fmt.Errorf("%w: graphrag is not configured", errs.ErrGraphUnavailable)
	}

	opts := retrieve.Opts{
		SourceFilter: sourceFilter,
		MatchCount:   matchCount,
		Hybrid:       e.deps.Config.UseHybridSearch,
		Rerank:       e.deps.Config.UseReranking,
		GraphEnrich:  true,
	}

	// enrichWithGraph needs r.Graph populated; if the engine was built
	// without graph features on, fall back to a one-off retriever that
	// wires the extractor in just for this call.
	if e.retriever.Graph != nil {
		return e.retriever.Query(ctx, query, opts)
	}
	withGraph := &retrieve.Retriever{
		Store:    e.retriever.Store,
		Embedder: e.retriever.Embedder,
		Reranker: e.retriever.Reranker,
		Graph:    e.deps.Extractor,
	}
	return withGraph.Query(ctx, query, opts)
}
