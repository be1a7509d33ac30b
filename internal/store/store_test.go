package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fgarofalo56/ragengine/internal/ragmodel"
	"github.com/fgarofalo56/ragengine/pkg/sqliteutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqliteutil.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return New(db)
}

func TestStore_DeleteThenInsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pages := []ragmodel.CrawledPage{
		{ID: "1", URL: "https://x.test/a", SourceID: "x.test", ChunkIndex: 0, Content: "hello world", Embedding: []float32{1, 0, 0}},
		{ID: "2", URL: "https://x.test/a", SourceID: "x.test", ChunkIndex: 1, Content: "second chunk", Embedding: []float32{0, 1, 0}},
	}
	require.NoError(t, s.InsertChunks(ctx, pages))

	require.NoError(t, s.DeleteByURL(ctx, "https://x.test/a"))
	require.NoError(t, s.InsertChunks(ctx, pages[:1]))

	results, err := s.VectorSearchPages(ctx, []float32{1, 0, 0}, "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestStore_VectorSearchRanksBySimilarity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pages := []ragmodel.CrawledPage{
		{ID: "1", URL: "https://x.test/a", SourceID: "x.test", ChunkIndex: 0, Content: "a", Embedding: []float32{1, 0}},
		{ID: "2", URL: "https://x.test/b", SourceID: "x.test", ChunkIndex: 0, Content: "b", Embedding: []float32{0, 1}},
	}
	require.NoError(t, s.InsertChunks(ctx, pages))

	results, err := s.VectorSearchPages(ctx, []float32{1, 0}, "", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "1", results[0].Page.ID)
}

func TestStore_FullTextSearchFindsMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pages := []ragmodel.CrawledPage{
		{ID: "1", URL: "https://x.test/a", SourceID: "x.test", ChunkIndex: 0, Content: "configuring authentication tokens"},
		{ID: "2", URL: "https://x.test/b", SourceID: "x.test", ChunkIndex: 0, Content: "unrelated content about weather"},
	}
	require.NoError(t, s.InsertChunks(ctx, pages))

	results, err := s.FullTextSearchPages(ctx, "authentication", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "1", results[0].Page.ID)
}

func TestStore_UpsertSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSource(ctx, "x.test", "a summary", 100, 2))
	require.NoError(t, s.UpsertSource(ctx, "x.test", "updated summary", 150, 3))

	var summary string
	var words, pages int
	row := s.DB.QueryRowContext(ctx, `SELECT summary, total_word_count, page_count FROM sources WHERE source_id = ?`, "x.test")
	require.NoError(t, row.Scan(&summary, &words, &pages))
	require.Equal(t, "updated summary", summary)
	require.Equal(t, 150, words)
	require.Equal(t, 3, pages)
}
