package transport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fgarofalo56/ragengine/internal/codegraph"
	"github.com/fgarofalo56/ragengine/internal/config"
	"github.com/fgarofalo56/ragengine/internal/embed"
	"github.com/fgarofalo56/ragengine/internal/engine"
	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/fetch"
	"github.com/fgarofalo56/ragengine/internal/graph"
	"github.com/fgarofalo56/ragengine/internal/store"
	"github.com/fgarofalo56/ragengine/pkg/sqliteutil"
)

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
	return prompt, nil
}

func (fakeProvider) Score(ctx context.Context, query, document string) (float64, error) {
	return 1, nil
}

type fakeFetcher struct {
	markdown string
	err      error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, opts fetch.Opts) (fetch.Result, error) {
	if f.err != nil {
		return fetch.Result{}, f.err
	}
	return fetch.Result{URL: rawURL, Markdown: f.markdown}, nil
}

func newTestEngine(t *testing.T) *engine.Engine {
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
	graphStore := graph.New(graphDB)

	return engine.New(engine.Deps{
		Config:    &config.Config{Transport: config.TransportStdio, DefaultChunkSize: 200, MaxRetries: 1},
		Fetcher:   &fakeFetcher{markdown: "# Title\n\nSome content worth chunking and storing."},
		LLM:       provider,
		Embedder:  embed.New(provider),
		Store:     store.New(vectorDB),
		Graph:     graphStore,
		Extractor: graph.NewExtractor(provider, graphStore),
		Validator: graph.NewValidator(graphStore),
		Indexer:   codegraph.NewIndexer(graphStore, t.TempDir()),
	})
}

func TestNewServer_BuildsServer(t *testing.T) {
	server := NewServer(newTestEngine(t))
	assert.NotNil(t, server)
}

func TestEnvelope_OkHasNoError(t *testing.T) {
	env := ok()
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
	assert.Empty(t, env.ErrorType)
}

func TestEnvelope_FailedCarriesErrorType(t *testing.T) {
	env := failed(errs.ErrValidation)
	assert.False(t, env.Success)
	assert.Equal(t, "validation_error", env.ErrorType)
	assert.NotEmpty(t, env.Error)
}

func TestCrawlSinglePageHandler_SuccessAndValidation(t *testing.T) {
	eng := newTestEngine(t)
	handler := crawlSinglePageHandler(eng)
	ctx := context.Background()

	_, out, err := handler(ctx, nil, CrawlSinglePageInput{URL: "https://docs.example.test/a"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Positive(t, out.ChunksStored)

	_, out, err = handler(ctx, nil, CrawlSinglePageInput{URL: ""})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "validation_error", out.ErrorType)
}

func TestPerformRAGQueryHandler_EmptyQueryFails(t *testing.T) {
	eng := newTestEngine(t)
	handler := performRAGQueryHandler(eng)

	_, out, err := handler(context.Background(), nil, PerformRAGQueryInput{Query: ""})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "validation_error", out.ErrorType)
}

func TestGetAvailableSourcesHandler_EmptyStoreSucceeds(t *testing.T) {
	eng := newTestEngine(t)
	handler := getAvailableSourcesHandler(eng)

	_, out, err := handler(context.Background(), nil, GetAvailableSourcesInput{})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Empty(t, out.Sources)
}

func TestQueryKnowledgeGraphHandler_UnknownCommandFails(t *testing.T) {
	eng := newTestEngine(t)
	handler := queryKnowledgeGraphHandler(eng)

	_, out, err := handler(context.Background(), nil, QueryKnowledgeGraphInput{Command: "nonsense"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "validation_error", out.ErrorType)
}
