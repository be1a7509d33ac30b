package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fgarofalo56/ragengine/internal/classify"
	"github.com/fgarofalo56/ragengine/internal/crawl"
	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/fetch"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

// CrawlResult is the shared result shape for every crawl_* operation.
type CrawlResult struct {
	URL          string
	PagesCrawled int
	ChunksStored int
}

// CrawlSinglePage fetches exactly one URL and ingests it, without
// following any links.
func (e *Engine) CrawlSinglePage(ctx context.Context, rawURL string) (CrawlResult, error) {
	if rawURL == "" {
		return CrawlResult{}, validationError("url is required")
	}

	res, err := e.deps.Fetcher.Fetch(ctx, rawURL, fetch.Opts{})
	doc := crawl.Document{URL: rawURL, Markdown: res.Markdown, Error: err}
	if err != nil {
		// crawl_single_page surfaces a fetch failure directly, unlike the
		// sitemap/recursive strategies which swallow per-URL errors.
		return CrawlResult{}, fmt.Errorf("%w: %w", errs.ErrFetch, err)
	}

	ingested, err := e.ingestDocuments(ctx, sourceIDFor(rawURL), []crawl.Document{doc}, e.deps.Config.DefaultChunkSize)
	if err != nil {
		return CrawlResult{}, err
	}
	return CrawlResult{URL: rawURL, PagesCrawled: ingested.PagesCrawled, ChunksStored: ingested.ChunksStored}, nil
}

// SmartCrawlURL classifies rawURL (sitemap/recursive/text-file/single page)
// and ingests every page it discovers. No query is passed, so the adaptive
// strategy is never chosen.
func (e *Engine) SmartCrawlURL(ctx context.Context, rawURL string, maxDepth, maxConcurrent int) (CrawlResult, error) {
	if rawURL == "" {
		return CrawlResult{}, validationError("url is required")
	}

	docs, err := e.dispatch.Crawl(ctx, rawURL, crawl.Opts{MaxDepth: maxDepth, MaxConcurrent: maxConcurrent})
	if err != nil {
		return CrawlResult{}, err
	}

	ingested, err := e.ingestDocuments(ctx, sourceIDFor(rawURL), docs, e.deps.Config.DefaultChunkSize)
	if err != nil {
		return CrawlResult{}, err
	}
	return CrawlResult{URL: rawURL, PagesCrawled: ingested.PagesCrawled, ChunksStored: ingested.ChunksStored}, nil
}

// CrawlWithStealthMode fetches rawURL with a browser-like user agent and an
// extra pre-read pause, for sites that block obvious crawler traffic.
func (e *Engine) CrawlWithStealthMode(ctx context.Context, rawURL string, extraWaitSeconds float64) (CrawlResult, error) {
	if rawURL == "" {
		return CrawlResult{}, validationError("url is required")
	}

	opts := fetch.Opts{SimulateUser: true, ExtraWait: time.Duration(extraWaitSeconds * float64(time.Second))}
	res, err := e.deps.Fetcher.Fetch(ctx, rawURL, opts)
	if err != nil {
		return CrawlResult{}, fmt.Errorf("%w: %w", errs.ErrFetch, err)
	}

	doc := crawl.Document{URL: rawURL, Markdown: res.Markdown}
	ingested, err := e.ingestDocuments(ctx, sourceIDFor(rawURL), []crawl.Document{doc}, e.deps.Config.DefaultChunkSize)
	if err != nil {
		return CrawlResult{}, err
	}
	return CrawlResult{URL: rawURL, PagesCrawled: ingested.PagesCrawled, ChunksStored: ingested.ChunksStored}, nil
}

// URLConfig is one entry of a multi-URL crawl batch: a URL plus its own
// strategy override and fetch-option overrides selected by glob pattern
// against URLs discovered while crawling it (stealth wait/user-agent for
// matching paths, e.g. "**/download/**").
type URLConfig struct {
	URL           string
	Strategy      string
	MaxDepth      int
	FetchPatterns []fetch.PatternOpts
}

// MultiCrawlResult is one URLConfig entry's outcome.
type MultiCrawlResult struct {
	URL          string
	PagesCrawled int
	ChunksStored int
	Err          error
}

// CrawlWithMultiURLConfig crawls every entry in configs with its own
// strategy and depth, ingesting each independently so one bad URL does not
// block the rest.
func (e *Engine) CrawlWithMultiURLConfig(ctx context.Context, configs []URLConfig) ([]MultiCrawlResult, error) {
	if len(configs) == 0 {
		return nil, validationError("at least one url config is required")
	}

	out := make([]MultiCrawlResult, len(configs))
	for i, cfg := range configs {
		opts := crawl.Opts{MaxDepth: cfg.MaxDepth, FetchPatterns: cfg.FetchPatterns}
		if cfg.Strategy != "" {
			opts.Strategy = classify.Strategy(cfg.Strategy)
		}

		docs, err := e.dispatch.Crawl(ctx, cfg.URL, opts)
		if err != nil {
			out[i] = MultiCrawlResult{URL: cfg.URL, Err: err}
			continue
		}
		ingested, err := e.ingestDocuments(ctx, sourceIDFor(cfg.URL), docs, e.deps.Config.DefaultChunkSize)
		if err != nil {
			out[i] = MultiCrawlResult{URL: cfg.URL, Err: err}
			continue
		}
		out[i] = MultiCrawlResult{URL: cfg.URL, PagesCrawled: ingested.PagesCrawled, ChunksStored: ingested.ChunksStored}
	}
	return out, nil
}

// MemoryCrawlResult extends CrawlResult with the RSS statistics gathered
// while the crawl ran.
type MemoryCrawlResult struct {
	CrawlResult
	Memory crawl.MemoryStats
}

// CrawlWithMemoryMonitoring runs a recursive crawl while throttling
// concurrency against thresholdMB of resident memory.
func (e *Engine) CrawlWithMemoryMonitoring(ctx context.Context, rawURL string, maxDepth int, thresholdMB float64) (MemoryCrawlResult, error) {
	if rawURL == "" {
		return MemoryCrawlResult{}, validationError("url is required")
	}
	if thresholdMB <= 0 {
		thresholdMB = 1024
	}

	docs, stats, err := e.dispatch.CrawlWithMemoryMonitoring(ctx, rawURL, crawl.Opts{MaxDepth: maxDepth}, thresholdMB)
	if err != nil {
		return MemoryCrawlResult{Memory: stats}, err
	}

	ingested, err := e.ingestDocuments(ctx, sourceIDFor(rawURL), docs, e.deps.Config.DefaultChunkSize)
	if err != nil {
		return MemoryCrawlResult{Memory: stats}, err
	}
	return MemoryCrawlResult{
		CrawlResult: CrawlResult{URL: rawURL, PagesCrawled: ingested.PagesCrawled, ChunksStored: ingested.ChunksStored},
		Memory:      stats,
	}, nil
}

// SourceScore is one crawled page's URL and relevance score, ranked
// descending in AdaptiveCrawlResult.TopSources.
type SourceScore struct {
	URL   string
	Score float64
}

// AdaptiveCrawlResult extends CrawlResult with the per-page relevance
// ranking the adaptive strategy computed while deciding what to keep.
type AdaptiveCrawlResult struct {
	CrawlResult
	TopSources []SourceScore
}

// AdaptiveDeepCrawl runs the query-scored adaptive strategy, dispatching on
// one of three frontier disciplines: best_first (default), bfs, or dfs.
func (e *Engine) AdaptiveDeepCrawl(ctx context.Context, rawURL, query, strategy string, maxDepth, maxPages int, relevanceThres float64) (AdaptiveCrawlResult, error) {
	if rawURL == "" {
		return AdaptiveCrawlResult{}, validationError("url is required")
	}
	if query == "" {
		return AdaptiveCrawlResult{}, validationError("query is required for adaptive_deep_crawl")
	}

	mode, err := adaptiveModeFor(strategy)
	if err != nil {
		return AdaptiveCrawlResult{}, err
	}

	opts := crawl.Opts{
		Strategy:       classify.Adaptive,
		Query:          query,
		MaxDepth:       maxDepth,
		MaxPages:       maxPages,
		RelevanceThres: relevanceThres,
		AdaptiveMode:   mode,
	}
	docs, err := e.dispatch.Crawl(ctx, rawURL, opts)
	if err != nil {
		return AdaptiveCrawlResult{}, err
	}

	ingested, err := e.ingestDocuments(ctx, sourceIDFor(rawURL), docs, e.deps.Config.DefaultChunkSize)
	if err != nil {
		return AdaptiveCrawlResult{}, err
	}
	return AdaptiveCrawlResult{
		CrawlResult: CrawlResult{URL: rawURL, PagesCrawled: ingested.PagesCrawled, ChunksStored: ingested.ChunksStored},
		TopSources:  topSources(docs),
	}, nil
}

// adaptiveModeFor maps the tool-call strategy string to a crawl.AdaptiveMode,
// defaulting to best_first when unset.
func adaptiveModeFor(strategy string) (crawl.AdaptiveMode, error) {
	switch crawl.AdaptiveMode(strategy) {
	case "":
		return crawl.BestFirst, nil
	case crawl.BestFirst, crawl.BFS, crawl.DFS:
		return crawl.AdaptiveMode(strategy), nil
	default:
		return "", validationError("strategy must be one of best_first, bfs, dfs, got %q", strategy)
	}
}

// topSources ranks docs by relevance score descending, for the
// adaptive_deep_crawl tool's top_sources output.
func topSources(docs []crawl.Document) []SourceScore {
	out := make([]SourceScore, len(docs))
	for i, d := range docs {
		out[i] = SourceScore{URL: d.URL, Score: d.Score}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// GetAvailableSources lists every ingested Source.
func (e *Engine) GetAvailableSources(ctx context.Context) ([]ragmodel.Source, error) {
	return e.deps.Store.ListSources(ctx)
}
