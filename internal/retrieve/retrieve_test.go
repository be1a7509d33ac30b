package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

func page(id string) ragmodel.SearchResult {
	return ragmodel.SearchResult{Page: &ragmodel.CrawledPage{ID: id, URL: id}}
}

func TestFuseOverlapFirst_PrioritizesBothSetHits(t *testing.T) {
	vector := []ragmodel.SearchResult{page("u1"), page("u2"), page("u3")}
	text := []ragmodel.SearchResult{page("u3"), page("u4")}

	merged := fuseOverlapFirst(vector, text, 4)

	var order []string
	for _, r := range merged {
		order = append(order, r.Page.ID)
	}
	assert.Equal(t, []string{"u3", "u1", "u2", "u4"}, order)
}

type fakeSearcher struct {
	vectorResults   []ragmodel.SearchResult
	textResults     []ragmodel.SearchResult
	fullTextErr     error
}

func (f *fakeSearcher) VectorSearchPages(context.Context, []float32, string, int) ([]ragmodel.SearchResult, error) {
	return f.vectorResults, nil
}
func (f *fakeSearcher) VectorSearchCodeExamples(context.Context, []float32, string, int) ([]ragmodel.SearchResult, error) {
	return nil, nil
}
func (f *fakeSearcher) FullTextSearchPages(context.Context, string, string, int) ([]ragmodel.SearchResult, error) {
	return f.textResults, f.fullTextErr
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, []string) [][]float32 { return [][]float32{{1, 0, 0}} }

func TestRetriever_VectorOnlyOrderIsDescendingSimilarity(t *testing.T) {
	store := &fakeSearcher{vectorResults: []ragmodel.SearchResult{
		{Page: &ragmodel.CrawledPage{ID: "a"}, Similarity: 0.9},
		{Page: &ragmodel.CrawledPage{ID: "b"}, Similarity: 0.5},
	}}
	r := &Retriever{Store: store, Embedder: fakeEmbedder{}}

	results, err := r.Query(context.Background(), "q", Opts{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestRetriever_HybridFusesWithSpecOrderByDefault(t *testing.T) {
	store := &fakeSearcher{
		vectorResults: []ragmodel.SearchResult{page("u1"), page("u2"), page("u3")},
		textResults:   []ragmodel.SearchResult{page("u3"), page("u4")},
	}
	r := &Retriever{Store: store, Embedder: fakeEmbedder{}}

	results, err := r.Query(context.Background(), "q", Opts{Hybrid: true, MatchCount: 4})
	require.NoError(t, err)

	var order []string
	for _, res := range results {
		order = append(order, res.Page.ID)
	}
	assert.Equal(t, []string{"u3", "u1", "u2", "u4"}, order)
}
