// Package e2e runs thin scenario tests that exercise the engine through its
// public operations rather than any single package's internals, driving
// full crawl-then-query and graph-validation flows against real
// sqlite-backed stores.
package e2e

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fgarofalo56/ragengine/internal/codegraph"
	"github.com/fgarofalo56/ragengine/internal/config"
	"github.com/fgarofalo56/ragengine/internal/embed"
	"github.com/fgarofalo56/ragengine/internal/engine"
	"github.com/fgarofalo56/ragengine/internal/fetch"
	"github.com/fgarofalo56/ragengine/internal/graph"
	"github.com/fgarofalo56/ragengine/internal/store"
	"github.com/fgarofalo56/ragengine/pkg/sqliteutil"
)

// siteFetcher serves a fixed map of URL -> page, recording nothing; each
// scenario builds the small site graph it needs.
type siteFetcher struct {
	pages map[string]fetch.Result
	err   map[string]error
}

func (f *siteFetcher) Fetch(_ context.Context, rawURL string, _ fetch.Opts) (fetch.Result, error) {
	if err := f.err[rawURL]; err != nil {
		return fetch.Result{}, err
	}
	res, ok := f.pages[rawURL]
	if !ok {
		return fetch.Result{}, fmt.Errorf("no such page: %s", rawURL)
	}
	return res, nil
}

// scoringProvider is a deterministic llmclient.Provider: embeddings are the
// text length repeated across Dimension slots. Any text containing
// failMarker makes Embed error for the whole batch it's in, forcing the
// embedding client's per-item zero-vector fallback.
type scoringProvider struct {
	failMarker string
	dimension  int
}

func (p scoringProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if p.failMarker != "" && strings.Contains(t, p.failMarker) {
			return nil, fmt.Errorf("upstream rejected batch")
		}
	}
	dim := p.dimension
	if dim <= 0 {
		dim = 3
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := float32(len(t))
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = v
		}
		out[i] = vec
	}
	return out, nil
}

func (scoringProvider) Complete(_ context.Context, _, prompt string) (string, error) {
	return "summary: " + prompt, nil
}

func (scoringProvider) Score(_ context.Context, _, _ string) (float64, error) {
	return 1, nil
}

func newScenarioEngine(t *testing.T, cfg *config.Config, fetcher fetch.Fetcher, provider scoringProvider) (*engine.Engine, *store.Store, *graph.Store) {
	t.Helper()

	vectorDB, err := sqliteutil.OpenDB(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { vectorDB.Close() })
	require.NoError(t, store.Migrate(vectorDB))

	graphDB, err := sqliteutil.OpenDB(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { graphDB.Close() })
	require.NoError(t, graph.Migrate(graphDB))

	vectorStore := store.New(vectorDB)
	graphStore := graph.New(graphDB)
	embedder := &embed.Client{Provider: provider, BatchSize: 10, MaxRetries: 1, Dimension: 3}

	deps := engine.Deps{
		Config:    cfg,
		Fetcher:   fetcher,
		LLM:       provider,
		Embedder:  embedder,
		Store:     vectorStore,
		Graph:     graphStore,
		Extractor: graph.NewExtractor(provider, graphStore),
		Validator: graph.NewValidator(graphStore),
		Indexer:   codegraph.NewIndexer(graphStore, t.TempDir()),
	}
	return engine.New(deps), vectorStore, graphStore
}

func baseScenarioConfig() *config.Config {
	return &config.Config{
		Transport:        config.TransportStdio,
		DefaultChunkSize: 200,
		MaxRetries:       1,
		EmbeddingBatch:   10,
	}
}

// S1: a single page is crawled and ingested, then a query finds it.
func TestScenario_CrawlSinglePageThenQuery(t *testing.T) {
	fetcher := &siteFetcher{pages: map[string]fetch.Result{
		"https://docs.x.test/intro": {Markdown: "# Getting started\n\nThis guide explains the onboarding flow."},
	}}
	eng, _, _ := newScenarioEngine(t, baseScenarioConfig(), fetcher, scoringProvider{})
	ctx := context.Background()

	crawlRes, err := eng.CrawlSinglePage(ctx, "https://docs.x.test/intro")
	require.NoError(t, err)
	assert.Equal(t, 1, crawlRes.PagesCrawled)
	assert.Positive(t, crawlRes.ChunksStored)

	results, err := eng.PerformRAGQuery(ctx, "onboarding flow", "", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content(), "onboarding")
}

// S2: re-running a sitemap crawl against the same two pages replaces rather
// than duplicates their chunks.
func TestScenario_SitemapReCrawlIsIdempotent(t *testing.T) {
	sitemapXML := `<?xml version="1.0"?>
<urlset><url><loc>https://docs.x.test/a</loc></url><url><loc>https://docs.x.test/b</loc></url></urlset>`
	fetcher := &siteFetcher{pages: map[string]fetch.Result{
		"https://docs.x.test/sitemap.xml": {Markdown: sitemapXML},
		"https://docs.x.test/a":           {Markdown: "Page A covers authentication setup."},
		"https://docs.x.test/b":           {Markdown: "Page B covers rate limiting."},
	}}
	eng, vectorStore, _ := newScenarioEngine(t, baseScenarioConfig(), fetcher, scoringProvider{})
	ctx := context.Background()

	first, err := eng.SmartCrawlURL(ctx, "https://docs.x.test/sitemap.xml", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, first.PagesCrawled)

	second, err := eng.SmartCrawlURL(ctx, "https://docs.x.test/sitemap.xml", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, second.PagesCrawled)

	all, err := vectorStore.VectorSearchPages(ctx, []float32{1, 1, 1}, "", 100)
	require.NoError(t, err)
	assert.Len(t, all, first.ChunksStored, "re-crawling must replace, not append, a URL's chunks")
}

// S3 (hybrid merge order: both-strategy hits first, then vector-only, then
// text-only) is covered at the unit level by internal/retrieve's
// TestFuseOverlapFirst_PrioritizesBothSetHits and
// TestRetriever_HybridFusesWithSpecOrderByDefault, which pin the exact
// ordering contract; no separate end-to-end test is needed here.

// S4: adaptive best-first crawling keeps the highest-relevance pages first
// and stops at max_pages, with top_sources reporting the kept pages in
// descending score order.
func TestScenario_AdaptiveDeepCrawlKeepsTopScoringPagesInOrder(t *testing.T) {
	query := "t0 t1 t2 t3 t4 t5 t6 t7 t8 t9"
	terms := strings.Fields(query)

	// leaf i's path contains the first (9-i) terms, so relevanceScore
	// against the URL alone is (9-i)/10: leaf0 scores 0.9 down to leaf9
	// scoring 0.0.
	links := make([]string, 0, 10)
	pages := map[string]fetch.Result{
		"https://hub.x.test/": {Markdown: "a hub page with links to every leaf", Links: nil},
	}
	for i := 0; i < 10; i++ {
		matching := terms[:9-i]
		leafURL := fmt.Sprintf("https://hub.x.test/leaf-%s", strings.Join(matching, "-"))
		if len(matching) == 0 {
			leafURL = "https://hub.x.test/leaf-none"
		}
		links = append(links, leafURL)
		pages[leafURL] = fetch.Result{Markdown: strings.Join(matching, " ")}
	}
	pages["https://hub.x.test/"] = fetch.Result{Markdown: "a hub page with links to every leaf", Links: links}

	fetcher := &siteFetcher{pages: pages}
	eng, _, _ := newScenarioEngine(t, baseScenarioConfig(), fetcher, scoringProvider{})

	res, err := eng.AdaptiveDeepCrawl(context.Background(), "https://hub.x.test/", query, "best_first", 1, 3, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 3, res.PagesCrawled)
	require.Len(t, res.TopSources, 3)
	assert.InDelta(t, 0.9, res.TopSources[0].Score, 0.0001)
	assert.InDelta(t, 0.8, res.TopSources[1].Score, 0.0001)
	assert.InDelta(t, 0.7, res.TopSources[2].Score, 0.0001)
	assert.GreaterOrEqual(t, res.TopSources[0].Score, res.TopSources[1].Score)
	assert.GreaterOrEqual(t, res.TopSources[1].Score, res.TopSources[2].Score)
}

// S5: an embedding provider that permanently rejects one chunk's batch still
// lets ingestion finish — that chunk stores with a zero vector instead of
// aborting the whole document.
func TestScenario_PartialEmbeddingFailureFallsBackToZeroVector(t *testing.T) {
	const marker = "FAILITEM"
	markdown := "first chunk of content here. " +
		"second chunk contains " + marker + " and keeps going. " +
		"third chunk of content wraps it up."

	fetcher := &siteFetcher{pages: map[string]fetch.Result{
		"https://docs.x.test/flaky": {Markdown: markdown},
	}}
	cfg := baseScenarioConfig()
	cfg.DefaultChunkSize = 28 // forces the marker into its own chunk
	eng, vectorStore, _ := newScenarioEngine(t, cfg, fetcher, scoringProvider{failMarker: marker, dimension: 3})
	ctx := context.Background()

	res, err := eng.CrawlSinglePage(ctx, "https://docs.x.test/flaky")
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.ChunksStored, 2)

	all, err := vectorStore.VectorSearchPages(ctx, []float32{1, 1, 1}, "", 100)
	require.NoError(t, err)

	var sawZeroVector, sawRealVector bool
	for _, r := range all {
		require.NotNil(t, r.Page)
		zero := true
		for _, v := range r.Page.Embedding {
			if v != 0 {
				zero = false
				break
			}
		}
		if strings.Contains(r.Page.Content, marker) {
			sawZeroVector = zero
		} else if !zero {
			sawRealVector = true
		}
	}
	assert.True(t, sawZeroVector, "the chunk whose batch failed permanently must fall back to a zero vector")
	assert.True(t, sawRealVector, "chunks outside the failing batch must keep their real embedding")
}

// S6: checking a script against an indexed graph that doesn't define the
// referenced method flags it as invalid and lowers overall confidence.
func TestScenario_HallucinationCheckFlagsUnknownMethod(t *testing.T) {
	eng, _, graphStore := newScenarioEngine(t, baseScenarioConfig(), &siteFetcher{}, scoringProvider{})
	ctx := context.Background()

	require.NoError(t, graphStore.UpsertRepository(ctx, "acme/widgets"))
	_, err := graphStore.UpsertFile(ctx, graph.File{
		ID:       "f1",
		RepoName: "acme/widgets",
		Path:     "agent.go",
		Classes:  []graph.Class{{FullName: "acme/widgets/agent.Agent", Name: "Agent"}},
	})
	require.NoError(t, err)

	report, err := eng.CheckAIScriptHallucinations(ctx, "acme/widgets", "usage.go", "Agent().nonexistent()\n")
	require.NoError(t, err)

	var statuses []graph.UsageStatus
	for _, u := range report.Usages {
		statuses = append(statuses, u.Status)
	}
	assert.Contains(t, statuses, graph.StatusInvalid)
	assert.Less(t, report.OverallConfidence, 1.0)
}
