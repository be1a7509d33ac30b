package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

type fakeProvider struct {
	scoreByContent map[string]float64
}

func (f *fakeProvider) Embed(context.Context, []string) ([][]float32, error)    { return nil, nil }
func (f *fakeProvider) Complete(context.Context, string, string) (string, error) { return "", nil }
func (f *fakeProvider) Score(_ context.Context, _, document string) (float64, error) {
	return f.scoreByContent[document], nil
}

func TestRerank_SortsDescendingByScore(t *testing.T) {
	p := &fakeProvider{scoreByContent: map[string]float64{
		"low":  0.1,
		"high": 0.9,
		"mid":  0.5,
	}}
	r := New(p)

	results := []ragmodel.SearchResult{
		{Page: &ragmodel.CrawledPage{ID: "a", Content: "low"}},
		{Page: &ragmodel.CrawledPage{ID: "b", Content: "high"}},
		{Page: &ragmodel.CrawledPage{ID: "c", Content: "mid"}},
	}

	out, err := r.Rerank(context.Background(), "q", results)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "b", out[0].Page.ID)
	assert.Equal(t, "c", out[1].Page.ID)
	assert.Equal(t, "a", out[2].Page.ID)
	assert.Equal(t, 0, out[0].Rank)
}

func TestRerank_EmptyInput(t *testing.T) {
	r := New(&fakeProvider{})
	out, err := r.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
