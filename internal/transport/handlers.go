package transport

import (
	"context"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fgarofalo56/ragengine/internal/engine"
	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/fetch"
	"github.com/fgarofalo56/ragengine/internal/graph"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

// --- crawl_single_page ---

type CrawlSinglePageInput struct {
	URL string `json:"url" jsonschema:"the URL to fetch and ingest"`
}

type CrawlSinglePageOutput struct {
	Envelope
	URL          string `json:"url,omitempty"`
	PagesCrawled int    `json:"pages_crawled,omitempty"`
	ChunksStored int    `json:"chunks_stored,omitempty"`
}

func crawlSinglePageHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, CrawlSinglePageInput) (*gomcp.CallToolResult, CrawlSinglePageOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in CrawlSinglePageInput) (*gomcp.CallToolResult, CrawlSinglePageOutput, error) {
		res, err := eng.CrawlSinglePage(ctx, in.URL)
		if err != nil {
			return nil, CrawlSinglePageOutput{Envelope: failed(err)}, nil
		}
		return nil, CrawlSinglePageOutput{Envelope: ok(), URL: res.URL, PagesCrawled: res.PagesCrawled, ChunksStored: res.ChunksStored}, nil
	}
}

// --- smart_crawl_url ---

type SmartCrawlURLInput struct {
	URL           string `json:"url" jsonschema:"the URL to crawl"`
	MaxDepth      int    `json:"max_depth,omitempty" jsonschema:"maximum link-following depth for recursive crawling"`
	MaxConcurrent int    `json:"max_concurrent,omitempty" jsonschema:"maximum concurrent fetches"`
}

type SmartCrawlURLOutput struct {
	Envelope
	URL          string `json:"url,omitempty"`
	PagesCrawled int    `json:"pages_crawled,omitempty"`
	ChunksStored int    `json:"chunks_stored,omitempty"`
}

func smartCrawlURLHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, SmartCrawlURLInput) (*gomcp.CallToolResult, SmartCrawlURLOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in SmartCrawlURLInput) (*gomcp.CallToolResult, SmartCrawlURLOutput, error) {
		res, err := eng.SmartCrawlURL(ctx, in.URL, in.MaxDepth, in.MaxConcurrent)
		if err != nil {
			return nil, SmartCrawlURLOutput{Envelope: failed(err)}, nil
		}
		return nil, SmartCrawlURLOutput{Envelope: ok(), URL: res.URL, PagesCrawled: res.PagesCrawled, ChunksStored: res.ChunksStored}, nil
	}
}

// --- crawl_with_stealth_mode ---

type CrawlWithStealthModeInput struct {
	URL              string  `json:"url" jsonschema:"the URL to fetch"`
	ExtraWaitSeconds float64 `json:"extra_wait_seconds,omitempty" jsonschema:"seconds to pause before reading the response body"`
}

type CrawlWithStealthModeOutput struct {
	Envelope
	URL          string `json:"url,omitempty"`
	PagesCrawled int    `json:"pages_crawled,omitempty"`
	ChunksStored int    `json:"chunks_stored,omitempty"`
}

func crawlWithStealthModeHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, CrawlWithStealthModeInput) (*gomcp.CallToolResult, CrawlWithStealthModeOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in CrawlWithStealthModeInput) (*gomcp.CallToolResult, CrawlWithStealthModeOutput, error) {
		res, err := eng.CrawlWithStealthMode(ctx, in.URL, in.ExtraWaitSeconds)
		if err != nil {
			return nil, CrawlWithStealthModeOutput{Envelope: failed(err)}, nil
		}
		return nil, CrawlWithStealthModeOutput{Envelope: ok(), URL: res.URL, PagesCrawled: res.PagesCrawled, ChunksStored: res.ChunksStored}, nil
	}
}

// --- crawl_with_multi_url_config ---

// PatternOptsInput overrides fetch behavior for URLs (discovered while
// crawling a URLConfigInput entry) whose path matches Pattern, a
// doublestar glob such as "**/download/**" or "**.pdf".
type PatternOptsInput struct {
	Pattern      string  `json:"pattern" jsonschema:"a doublestar glob matched against the URL path"`
	ExtraWait    float64 `json:"extra_wait_seconds,omitempty" jsonschema:"pause before reading the body, in seconds"`
	SimulateUser bool    `json:"simulate_user,omitempty" jsonschema:"send a browser-like User-Agent"`
}

type URLConfigInput struct {
	URL      string `json:"url" jsonschema:"the URL to crawl"`
	Strategy string `json:"strategy,omitempty" jsonschema:"crawl strategy override: single_page, text_file, sitemap, recursive, or adaptive"`
	MaxDepth int    `json:"max_depth,omitempty" jsonschema:"maximum link-following depth"`
	// Patterns selects fetch overrides per discovered URL by path glob,
	// checked in order; the first match wins.
	Patterns []PatternOptsInput `json:"patterns,omitempty" jsonschema:"per-URL fetch overrides selected by glob pattern"`
}

type CrawlWithMultiURLConfigInput struct {
	URLs []URLConfigInput `json:"urls" jsonschema:"the URLs to crawl, each with its own strategy"`
}

type MultiCrawlResultOutput struct {
	URL          string `json:"url"`
	PagesCrawled int    `json:"pages_crawled,omitempty"`
	ChunksStored int    `json:"chunks_stored,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
}

type CrawlWithMultiURLConfigOutput struct {
	Envelope
	Results []MultiCrawlResultOutput `json:"results,omitempty"`
}

func crawlWithMultiURLConfigHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, CrawlWithMultiURLConfigInput) (*gomcp.CallToolResult, CrawlWithMultiURLConfigOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in CrawlWithMultiURLConfigInput) (*gomcp.CallToolResult, CrawlWithMultiURLConfigOutput, error) {
		configs := make([]engine.URLConfig, len(in.URLs))
		for i, u := range in.URLs {
			patterns := make([]fetch.PatternOpts, len(u.Patterns))
			for j, p := range u.Patterns {
				patterns[j] = fetch.PatternOpts{
					Pattern: p.Pattern,
					Opts: fetch.Opts{
						ExtraWait:    time.Duration(p.ExtraWait * float64(time.Second)),
						SimulateUser: p.SimulateUser,
					},
				}
			}
			configs[i] = engine.URLConfig{URL: u.URL, Strategy: u.Strategy, MaxDepth: u.MaxDepth, FetchPatterns: patterns}
		}

		results, err := eng.CrawlWithMultiURLConfig(ctx, configs)
		if err != nil {
			return nil, CrawlWithMultiURLConfigOutput{Envelope: failed(err)}, nil
		}

		out := make([]MultiCrawlResultOutput, len(results))
		for i, r := range results {
			o := MultiCrawlResultOutput{URL: r.URL, PagesCrawled: r.PagesCrawled, ChunksStored: r.ChunksStored}
			if r.Err != nil {
				o.Error = r.Err.Error()
				o.ErrorType = errs.Type(r.Err)
			}
			out[i] = o
		}
		return nil, CrawlWithMultiURLConfigOutput{Envelope: ok(), Results: out}, nil
	}
}

// --- crawl_with_memory_monitoring ---

type CrawlWithMemoryMonitoringInput struct {
	URL         string  `json:"url" jsonschema:"the URL to crawl"`
	MaxDepth    int     `json:"max_depth,omitempty" jsonschema:"maximum link-following depth"`
	ThresholdMB float64 `json:"threshold_mb,omitempty" jsonschema:"resident memory threshold, in megabytes, above which concurrency is throttled"`
}

type MemoryStatsOutput struct {
	StartMB float64 `json:"start_mb"`
	EndMB   float64 `json:"end_mb"`
	PeakMB  float64 `json:"peak_mb"`
	AvgMB   float64 `json:"avg_mb"`
	Samples int     `json:"samples"`
}

type CrawlWithMemoryMonitoringOutput struct {
	Envelope
	URL          string            `json:"url,omitempty"`
	PagesCrawled int               `json:"pages_crawled,omitempty"`
	ChunksStored int               `json:"chunks_stored,omitempty"`
	Memory       MemoryStatsOutput `json:"memory"`
}

func crawlWithMemoryMonitoringHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, CrawlWithMemoryMonitoringInput) (*gomcp.CallToolResult, CrawlWithMemoryMonitoringOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in CrawlWithMemoryMonitoringInput) (*gomcp.CallToolResult, CrawlWithMemoryMonitoringOutput, error) {
		res, err := eng.CrawlWithMemoryMonitoring(ctx, in.URL, in.MaxDepth, in.ThresholdMB)
		mem := MemoryStatsOutput{
			StartMB: res.Memory.StartMB, EndMB: res.Memory.EndMB,
			PeakMB: res.Memory.PeakMB, AvgMB: res.Memory.AvgMB, Samples: res.Memory.Samples,
		}
		if err != nil {
			return nil, CrawlWithMemoryMonitoringOutput{Envelope: failed(err), Memory: mem}, nil
		}
		return nil, CrawlWithMemoryMonitoringOutput{
			Envelope: ok(), URL: res.URL, PagesCrawled: res.PagesCrawled, ChunksStored: res.ChunksStored, Memory: mem,
		}, nil
	}
}

// --- adaptive_deep_crawl ---

type AdaptiveDeepCrawlInput struct {
	URL            string  `json:"url" jsonschema:"the URL to start from"`
	Query          string  `json:"query" jsonschema:"the relevance query guiding which pages to keep"`
	Strategy       string  `json:"strategy,omitempty" jsonschema:"frontier discipline: best_first (default), bfs, or dfs"`
	MaxDepth       int     `json:"max_depth,omitempty" jsonschema:"maximum link-following depth"`
	MaxPages       int     `json:"max_pages,omitempty" jsonschema:"maximum pages to keep; 0 crawls nothing, negative is unlimited"`
	RelevanceThres float64 `json:"relevance_threshold,omitempty" jsonschema:"minimum relevance score, in [0,1], for a page to be kept"`
}

type SourceScoreOutput struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

type AdaptiveDeepCrawlOutput struct {
	Envelope
	URL          string              `json:"url,omitempty"`
	PagesCrawled int                 `json:"pages_crawled,omitempty"`
	ChunksStored int                 `json:"chunks_stored,omitempty"`
	TopSources   []SourceScoreOutput `json:"top_sources,omitempty"`
}

func adaptiveDeepCrawlHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, AdaptiveDeepCrawlInput) (*gomcp.CallToolResult, AdaptiveDeepCrawlOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in AdaptiveDeepCrawlInput) (*gomcp.CallToolResult, AdaptiveDeepCrawlOutput, error) {
		res, err := eng.AdaptiveDeepCrawl(ctx, in.URL, in.Query, in.Strategy, in.MaxDepth, in.MaxPages, in.RelevanceThres)
		if err != nil {
			return nil, AdaptiveDeepCrawlOutput{Envelope: failed(err)}, nil
		}
		topSources := make([]SourceScoreOutput, len(res.TopSources))
		for i, s := range res.TopSources {
			topSources[i] = SourceScoreOutput{URL: s.URL, Score: s.Score}
		}
		return nil, AdaptiveDeepCrawlOutput{
			Envelope: ok(), URL: res.URL, PagesCrawled: res.PagesCrawled, ChunksStored: res.ChunksStored,
			TopSources: topSources,
		}, nil
	}
}

// --- get_available_sources ---

type GetAvailableSourcesInput struct{}

type SourceOutput struct {
	SourceID   string `json:"source_id"`
	Summary    string `json:"summary"`
	TotalWords int    `json:"total_words"`
	PageCount  int    `json:"page_count"`
}

type GetAvailableSourcesOutput struct {
	Envelope
	Sources []SourceOutput `json:"sources,omitempty"`
}

func getAvailableSourcesHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, GetAvailableSourcesInput) (*gomcp.CallToolResult, GetAvailableSourcesOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, _ GetAvailableSourcesInput) (*gomcp.CallToolResult, GetAvailableSourcesOutput, error) {
		sources, err := eng.GetAvailableSources(ctx)
		if err != nil {
			return nil, GetAvailableSourcesOutput{Envelope: failed(err)}, nil
		}
		out := make([]SourceOutput, len(sources))
		for i, s := range sources {
			out[i] = SourceOutput{SourceID: s.SourceID, Summary: s.Summary, TotalWords: s.TotalWords, PageCount: s.PageCount}
		}
		return nil, GetAvailableSourcesOutput{Envelope: ok(), Sources: out}, nil
	}
}

// --- perform_rag_query / search_code_examples / graphrag_query share a
// result shape ---

type SearchResultOutput struct {
	Content      string                    `json:"content"`
	URL          string                    `json:"url"`
	Similarity   float64                   `json:"similarity"`
	Rank         int                       `json:"rank"`
	Strategy     string                    `json:"strategy"`
	GraphContext []ragmodel.EntityContext `json:"graph_context,omitempty"`
}

func toSearchResultOutputs(results []ragmodel.SearchResult) []SearchResultOutput {
	out := make([]SearchResultOutput, len(results))
	for i, r := range results {
		out[i] = SearchResultOutput{
			Content: r.Content(), URL: r.SourcePath(), Similarity: r.Similarity,
			Rank: r.Rank, Strategy: r.Strategy, GraphContext: r.GraphContext,
		}
	}
	return out
}

type PerformRAGQueryInput struct {
	Query        string `json:"query" jsonschema:"the natural-language query to search for"`
	SourceFilter string `json:"source_id,omitempty" jsonschema:"restrict results to this source"`
	MatchCount   int    `json:"match_count,omitempty" jsonschema:"maximum results to return"`
}

type PerformRAGQueryOutput struct {
	Envelope
	Results []SearchResultOutput `json:"results,omitempty"`
}

func performRAGQueryHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, PerformRAGQueryInput) (*gomcp.CallToolResult, PerformRAGQueryOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in PerformRAGQueryInput) (*gomcp.CallToolResult, PerformRAGQueryOutput, error) {
		results, err := eng.PerformRAGQuery(ctx, in.Query, in.SourceFilter, in.MatchCount)
		if err != nil {
			return nil, PerformRAGQueryOutput{Envelope: failed(err)}, nil
		}
		return nil, PerformRAGQueryOutput{Envelope: ok(), Results: toSearchResultOutputs(results)}, nil
	}
}

type SearchCodeExamplesInput struct {
	Query      string `json:"query" jsonschema:"the natural-language query to search for"`
	SourceID   string `json:"source_id,omitempty" jsonschema:"restrict results to this source"`
	MatchCount int    `json:"match_count,omitempty" jsonschema:"maximum results to return"`
}

type SearchCodeExamplesOutput struct {
	Envelope
	Results []SearchResultOutput `json:"results,omitempty"`
}

func searchCodeExamplesHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, SearchCodeExamplesInput) (*gomcp.CallToolResult, SearchCodeExamplesOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in SearchCodeExamplesInput) (*gomcp.CallToolResult, SearchCodeExamplesOutput, error) {
		results, err := eng.SearchCodeExamples(ctx, in.Query, in.SourceID, in.MatchCount)
		if err != nil {
			return nil, SearchCodeExamplesOutput{Envelope: failed(err)}, nil
		}
		return nil, SearchCodeExamplesOutput{Envelope: ok(), Results: toSearchResultOutputs(results)}, nil
	}
}

type GraphRAGQueryInput struct {
	Query        string `json:"query" jsonschema:"the natural-language query to search for"`
	SourceFilter string `json:"source_id,omitempty" jsonschema:"restrict results to this source"`
	MatchCount   int    `json:"match_count,omitempty" jsonschema:"maximum results to return"`
}

type GraphRAGQueryOutput struct {
	Envelope
	Results []SearchResultOutput `json:"results,omitempty"`
}

func graphragQueryHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, GraphRAGQueryInput) (*gomcp.CallToolResult, GraphRAGQueryOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in GraphRAGQueryInput) (*gomcp.CallToolResult, GraphRAGQueryOutput, error) {
		results, err := eng.GraphRAGQuery(ctx, in.Query, in.SourceFilter, in.MatchCount)
		if err != nil {
			return nil, GraphRAGQueryOutput{Envelope: failed(err)}, nil
		}
		return nil, GraphRAGQueryOutput{Envelope: ok(), Results: toSearchResultOutputs(results)}, nil
	}
}

// --- parse_github_repository ---

type ParseGithubRepositoryInput struct {
	RepoURL string `json:"repo_url" jsonschema:"the git repository URL to clone and index"`
}

type WriteStatsOutput struct {
	FilesProcessed    int `json:"files_processed"`
	ClassesCreated    int `json:"classes_created"`
	MethodsCreated    int `json:"methods_created"`
	FunctionsCreated  int `json:"functions_created"`
	AttributesCreated int `json:"attributes_created"`
}

func toWriteStatsOutput(s graph.WriteStats) WriteStatsOutput {
	return WriteStatsOutput{
		FilesProcessed: s.FilesProcessed, ClassesCreated: s.ClassesCreated,
		MethodsCreated: s.MethodsCreated, FunctionsCreated: s.FunctionsCreated,
		AttributesCreated: s.AttributesCreated,
	}
}

type ParseGithubRepositoryOutput struct {
	Envelope
	Stats WriteStatsOutput `json:"stats"`
}

func parseGithubRepositoryHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, ParseGithubRepositoryInput) (*gomcp.CallToolResult, ParseGithubRepositoryOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in ParseGithubRepositoryInput) (*gomcp.CallToolResult, ParseGithubRepositoryOutput, error) {
		stats, err := eng.ParseGithubRepository(ctx, in.RepoURL)
		if err != nil {
			return nil, ParseGithubRepositoryOutput{Envelope: failed(err)}, nil
		}
		return nil, ParseGithubRepositoryOutput{Envelope: ok(), Stats: toWriteStatsOutput(stats)}, nil
	}
}

// --- parse_github_repositories_batch ---

type ParseGithubRepositoriesBatchInput struct {
	RepoURLs []string `json:"repo_urls" jsonschema:"the git repository URLs to clone and index"`
}

type BatchRepoResultOutput struct {
	Name      string           `json:"name"`
	Stats     WriteStatsOutput `json:"stats"`
	Error     string           `json:"error,omitempty"`
	ErrorType string           `json:"error_type,omitempty"`
}

type ParseGithubRepositoriesBatchOutput struct {
	Envelope
	Results []BatchRepoResultOutput `json:"results,omitempty"`
	Total   WriteStatsOutput        `json:"total"`
}

func parseGithubRepositoriesBatchHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, ParseGithubRepositoriesBatchInput) (*gomcp.CallToolResult, ParseGithubRepositoriesBatchOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in ParseGithubRepositoriesBatchInput) (*gomcp.CallToolResult, ParseGithubRepositoriesBatchOutput, error) {
		results, total, err := eng.ParseGithubRepositoriesBatch(ctx, in.RepoURLs)
		if err != nil {
			return nil, ParseGithubRepositoriesBatchOutput{Envelope: failed(err)}, nil
		}

		out := make([]BatchRepoResultOutput, len(results))
		for i, r := range results {
			o := BatchRepoResultOutput{Name: r.Name, Stats: toWriteStatsOutput(r.Stats)}
			if r.Err != nil {
				o.Error = r.Err.Error()
				o.ErrorType = errs.Type(r.Err)
			}
			out[i] = o
		}
		return nil, ParseGithubRepositoriesBatchOutput{Envelope: ok(), Results: out, Total: toWriteStatsOutput(total)}, nil
	}
}

// --- check_ai_script_hallucinations ---

type CheckAIScriptHallucinationsInput struct {
	RepoName      string `json:"repo_name,omitempty" jsonschema:"the indexed repository to validate against; empty matches any indexed repository"`
	Path          string `json:"path,omitempty" jsonschema:"a label for the script, used only in the report"`
	ScriptContent string `json:"script_content" jsonschema:"the source text to scan for hallucinated symbol references"`
}

type SymbolUsageOutput struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Line   int    `json:"line"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type CheckAIScriptHallucinationsOutput struct {
	Envelope
	Usages            []SymbolUsageOutput `json:"usages,omitempty"`
	OverallConfidence float64             `json:"overall_confidence"`
}

func checkAIScriptHallucinationsHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, CheckAIScriptHallucinationsInput) (*gomcp.CallToolResult, CheckAIScriptHallucinationsOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in CheckAIScriptHallucinationsInput) (*gomcp.CallToolResult, CheckAIScriptHallucinationsOutput, error) {
		report, err := eng.CheckAIScriptHallucinations(ctx, in.RepoName, in.Path, in.ScriptContent)
		if err != nil {
			return nil, CheckAIScriptHallucinationsOutput{Envelope: failed(err)}, nil
		}

		usages := make([]SymbolUsageOutput, len(report.Usages))
		for i, u := range report.Usages {
			usages[i] = SymbolUsageOutput{Name: u.Name, Kind: u.Kind, Line: u.Line, Status: string(u.Status), Reason: u.Reason}
		}
		return nil, CheckAIScriptHallucinationsOutput{Envelope: ok(), Usages: usages, OverallConfidence: report.OverallConfidence}, nil
	}
}

// --- query_knowledge_graph ---

type QueryKnowledgeGraphInput struct {
	Command string `json:"command" jsonschema:"one of: 'repos', 'explore <name>', 'classes <repo>', 'method <name>'"`
}

type NeighborEdgeOutput struct {
	Neighbor     string `json:"neighbor"`
	RelationType string `json:"relation_type"`
}

type MethodOutput struct {
	FullName   string   `json:"full_name"`
	Name       string   `json:"name"`
	ParamsList []string `json:"params_list,omitempty"`
	ReturnType string   `json:"return_type,omitempty"`
}

type QueryKnowledgeGraphOutput struct {
	Envelope
	Repositories []string             `json:"repositories,omitempty"`
	Classes      []string             `json:"classes,omitempty"`
	Neighbors    []NeighborEdgeOutput `json:"neighbors,omitempty"`
	Methods      []MethodOutput       `json:"methods,omitempty"`
}

func queryKnowledgeGraphHandler(eng *engine.Engine) func(context.Context, *gomcp.CallToolRequest, QueryKnowledgeGraphInput) (*gomcp.CallToolResult, QueryKnowledgeGraphOutput, error) {
	return func(ctx context.Context, _ *gomcp.CallToolRequest, in QueryKnowledgeGraphInput) (*gomcp.CallToolResult, QueryKnowledgeGraphOutput, error) {
		res, err := eng.QueryKnowledgeGraph(ctx, in.Command)
		if err != nil {
			return nil, QueryKnowledgeGraphOutput{Envelope: failed(err)}, nil
		}

		neighbors := make([]NeighborEdgeOutput, len(res.Neighbors))
		for i, n := range res.Neighbors {
			neighbors[i] = NeighborEdgeOutput{Neighbor: n.Neighbor, RelationType: n.RelationType}
		}
		methods := make([]MethodOutput, len(res.Methods))
		for i, m := range res.Methods {
			methods[i] = MethodOutput{FullName: m.FullName, Name: m.Name, ParamsList: m.ParamsList, ReturnType: m.ReturnType}
		}

		return nil, QueryKnowledgeGraphOutput{
			Envelope: ok(), Repositories: res.Repositories, Classes: res.Classes,
			Neighbors: neighbors, Methods: methods,
		}, nil
	}
}
