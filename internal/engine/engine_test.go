package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fgarofalo56/ragengine/internal/codegraph"
	"github.com/fgarofalo56/ragengine/internal/config"
	"github.com/fgarofalo56/ragengine/internal/crawl"
	"github.com/fgarofalo56/ragengine/internal/embed"
	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/fetch"
	"github.com/fgarofalo56/ragengine/internal/graph"
	"github.com/fgarofalo56/ragengine/internal/store"
	"github.com/fgarofalo56/ragengine/pkg/sqliteutil"
)

// fakeProvider is a deterministic llmclient.Provider stand-in: embeddings
// are the text length repeated three times, so distinct inputs land at
// distinct points without needing a real embedding model in tests.
type fakeProvider struct{}

func (fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := float32(len(t))
		out[i] = []float32{v, v, v}
	}
	return out, nil
}

func (fakeProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	return "summary: " + prompt, nil
}

func (fakeProvider) Score(ctx context.Context, query, document string) (float64, error) {
	return 1, nil
}

// fakeFetcher returns a canned markdown body for any URL, recording every
// URL it was asked to fetch.
type fakeFetcher struct {
	markdown string
	err      error
	seen     []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, opts fetch.Opts) (fetch.Result, error) {
	f.seen = append(f.seen, rawURL)
	if f.err != nil {
		return fetch.Result{}, f.err
	}
	return fetch.Result{URL: rawURL, Markdown: f.markdown}, nil
}

func newTestEngine(t *testing.T, cfg *config.Config, fetcher fetch.Fetcher) (*Engine, *store.Store) {
	t.Helper()

	vectorDB, err := sqliteutil.OpenDB(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { vectorDB.Close() })
	require.NoError(t, store.Migrate(vectorDB))

	graphDB, err := sqliteutil.OpenDB(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { graphDB.Close() })
	require.NoError(t, graph.Migrate(graphDB))

	provider := fakeProvider{}
	embedder := embed.New(provider)
	vectorStore := store.New(vectorDB)
	graphStore := graph.New(graphDB)

	deps := Deps{
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
	return New(deps), vectorStore
}

func baseConfig() *config.Config {
	return &config.Config{
		Transport:        config.TransportStdio,
		DefaultChunkSize: 200,
		MaxRetries:       1,
		EmbeddingBatch:   10,
	}
}

func TestCrawlSinglePage_IngestsOneDocument(t *testing.T) {
	eng, vectorStore := newTestEngine(t, baseConfig(), &fakeFetcher{markdown: "# Hello\n\nSome ingestable content here."})

	res, err := eng.CrawlSinglePage(context.Background(), "https://docs.example.test/a")
	require.NoError(t, err)
	assert.Equal(t, 1, res.PagesCrawled)
	assert.Positive(t, res.ChunksStored)

	sources, err := vectorStore.ListSources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "docs.example.test", sources[0].SourceID)
}

func TestCrawlSinglePage_EmptyURLIsValidationError(t *testing.T) {
	eng, _ := newTestEngine(t, baseConfig(), &fakeFetcher{})

	_, err := eng.CrawlSinglePage(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "validation_error", errs.Type(err))
}

func TestCrawlSinglePage_FetchErrorPropagates(t *testing.T) {
	wantErr := assert.AnError
	eng, _ := newTestEngine(t, baseConfig(), &fakeFetcher{err: wantErr})

	_, err := eng.CrawlSinglePage(context.Background(), "https://docs.example.test/a")
	require.Error(t, err)
	assert.Equal(t, "fetch_error", errs.Type(err))
}

func TestIngestDocuments_ReingestReplacesRatherThanAppends(t *testing.T) {
	eng, vectorStore := newTestEngine(t, baseConfig(), &fakeFetcher{})
	ctx := context.Background()

	docs := []crawl.Document{{URL: "https://x.test/p", Markdown: "first version of the page content"}}
	_, err := eng.ingestDocuments(ctx, "x.test", docs, 0)
	require.NoError(t, err)

	docs[0].Markdown = "second, different version of the page content"
	_, err = eng.ingestDocuments(ctx, "x.test", docs, 0)
	require.NoError(t, err)

	results, err := vectorStore.VectorSearchPages(ctx, []float32{1, 0, 0}, "", 100)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotContains(t, r.Page.Content, "first version")
	}
}

func TestIngestDocuments_SkipsFailedDocuments(t *testing.T) {
	eng, vectorStore := newTestEngine(t, baseConfig(), &fakeFetcher{})
	ctx := context.Background()

	docs := []crawl.Document{
		{URL: "https://x.test/ok", Markdown: "a perfectly good page"},
		{URL: "https://x.test/bad", Error: assert.AnError},
	}
	result, err := eng.ingestDocuments(ctx, "x.test", docs, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PagesCrawled)

	sources, err := vectorStore.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, 1, sources[0].PageCount)
}

func TestPerformRAGQuery_EmptyQueryIsValidationError(t *testing.T) {
	eng, _ := newTestEngine(t, baseConfig(), &fakeFetcher{})

	_, err := eng.PerformRAGQuery(context.Background(), "", "", 5)
	require.Error(t, err)
	assert.Equal(t, "validation_error", errs.Type(err))
}

func TestGraphRAGQuery_RequiresExtractor(t *testing.T) {
	cfg := baseConfig()
	eng, _ := newTestEngine(t, cfg, &fakeFetcher{})
	eng.deps.Extractor = nil

	_, err := eng.GraphRAGQuery(context.Background(), "anything", "", 5)
	require.Error(t, err)
	assert.Equal(t, "graph_unavailable", errs.Type(err))
}

func TestSourceIDFor(t *testing.T) {
	assert.Equal(t, "docs.example.test", sourceIDFor("https://docs.example.test/a/b?q=1"))
	assert.Equal(t, "not-a-url", sourceIDFor("not-a-url"))
}

func TestRepoNameFromURL(t *testing.T) {
	assert.Equal(t, "owner/repo", repoNameFromURL("https://github.com/owner/repo.git"))
	assert.Equal(t, "owner/repo", repoNameFromURL("https://github.com/owner/repo"))
}

func TestParseGithubRepository_EmptyURLIsValidationError(t *testing.T) {
	eng, _ := newTestEngine(t, baseConfig(), &fakeFetcher{})

	_, err := eng.ParseGithubRepository(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "validation_error", errs.Type(err))
}

func TestQueryKnowledgeGraph_UnknownCommandIsValidationError(t *testing.T) {
	eng, _ := newTestEngine(t, baseConfig(), &fakeFetcher{})

	_, err := eng.QueryKnowledgeGraph(context.Background(), "bogus")
	require.Error(t, err)
	assert.Equal(t, "validation_error", errs.Type(err))
}

func TestQueryKnowledgeGraph_ReposListsEmptyGraph(t *testing.T) {
	eng, _ := newTestEngine(t, baseConfig(), &fakeFetcher{})

	res, err := eng.QueryKnowledgeGraph(context.Background(), "repos")
	require.NoError(t, err)
	assert.Empty(t, res.Repositories)
}
