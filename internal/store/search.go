package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

// VectorSearchPages ranks every CrawledPage row by cosine similarity to
// queryVec (optionally restricted to sourceFilter) and returns the top
// matchCount, descending. There is no native vector index in sqlite, so
// this scores every row in Go — acceptable at this engine's scale.
func (s *Store) VectorSearchPages(ctx context.Context, queryVec []float32, sourceFilter string, matchCount int) ([]ragmodel.SearchResult, error) {
	rows, err := s.queryPages(ctx, sourceFilter)
	if err != nil {
		return nil, err
	}

	results := make([]ragmodel.SearchResult, 0, len(rows))
	for _, p := range rows {
		p := p
		results = append(results, ragmodel.SearchResult{
			Page:       &p,
			Similarity: cosineSimilarity(queryVec, p.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > matchCount {
		results = results[:matchCount]
	}
	for i := range results {
		results[i].Rank = i
		results[i].Strategy = "vector"
	}
	return results, nil
}

// VectorSearchCodeExamples is VectorSearchPages for CodeExample rows, with
// the source filter field named source_id.
func (s *Store) VectorSearchCodeExamples(ctx context.Context, queryVec []float32, sourceID string, matchCount int) ([]ragmodel.SearchResult, error) {
	rows, err := s.queryCodeExamples(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	results := make([]ragmodel.SearchResult, 0, len(rows))
	for _, c := range rows {
		c := c
		results = append(results, ragmodel.SearchResult{
			Code:       &c,
			Similarity: cosineSimilarity(queryVec, c.Embedding),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > matchCount {
		results = results[:matchCount]
	}
	for i := range results {
		results[i].Rank = i
		results[i].Strategy = "vector"
	}
	return results, nil
}

// FullTextSearchPages runs an FTS5 MATCH query over crawled_pages content,
// ranked by the built-in bm25() text score (lower is better; results are
// sorted ascending then assigned ranks so Rank 0 is the best match).
func (s *Store) FullTextSearchPages(ctx context.Context, query, sourceFilter string, matchCount int) ([]ragmodel.SearchResult, error) {
	args := []any{query}
	sourceClause := ""
	if sourceFilter != "" {
		sourceClause = "AND cp.source_id = ?"
		args = append(args, sourceFilter)
	}
	args = append(args, matchCount)

	q := fmt.Sprintf(`
		SELECT cp.id, cp.url, cp.chunk_index, cp.source_id, cp.content, cp.context_summary,
		       cp.metadata, cp.embedding, cp.content_hash, bm25(crawled_pages_fts) AS score
		FROM crawled_pages_fts
		JOIN crawled_pages cp ON cp.rowid = crawled_pages_fts.rowid
		WHERE crawled_pages_fts MATCH ? %s
		ORDER BY score ASC
		LIMIT ?`, sourceClause)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: full-text search: %w", errs.ErrStore, err)
	}
	defer rows.Close()

	var results []ragmodel.SearchResult
	rank := 0
	for rows.Next() {
		var p ragmodel.CrawledPage
		var metadataJSON string
		var embeddingBlob []byte
		var score float64
		if err := rows.Scan(&p.ID, &p.URL, &p.ChunkIndex, &p.SourceID, &p.Content, &p.ContextSummary,
			&metadataJSON, &embeddingBlob, &p.ContentHash, &score); err != nil {
			return nil, fmt.Errorf("%w: scanning full-text row: %w", errs.ErrStore, err)
		}
		_ = json.Unmarshal([]byte(metadataJSON), &p.Metadata)
		p.Embedding = decodeVector(embeddingBlob)

		results = append(results, ragmodel.SearchResult{
			Page:       &p,
			Similarity: -score,
			Rank:       rank,
			Strategy:   "fulltext",
		})
		rank++
	}
	return results, rows.Err()
}

func (s *Store) queryPages(ctx context.Context, sourceFilter string) ([]ragmodel.CrawledPage, error) {
	q := `SELECT id, url, chunk_index, source_id, content, context_summary, metadata, embedding, content_hash FROM crawled_pages`
	var args []any
	if sourceFilter != "" {
		q += ` WHERE source_id = ?`
		args = append(args, sourceFilter)
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying crawled_pages: %w", errs.ErrStore, err)
	}
	defer rows.Close()

	var out []ragmodel.CrawledPage
	for rows.Next() {
		var p ragmodel.CrawledPage
		var metadataJSON string
		var embeddingBlob []byte
		if err := rows.Scan(&p.ID, &p.URL, &p.ChunkIndex, &p.SourceID, &p.Content, &p.ContextSummary,
			&metadataJSON, &embeddingBlob, &p.ContentHash); err != nil {
			return nil, fmt.Errorf("%w: scanning crawled_pages row: %w", errs.ErrStore, err)
		}
		_ = json.Unmarshal([]byte(metadataJSON), &p.Metadata)
		p.Embedding = decodeVector(embeddingBlob)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) queryCodeExamples(ctx context.Context, sourceID string) ([]ragmodel.CodeExample, error) {
	q := `SELECT id, url, chunk_index, source_id, content, language, summary, metadata, embedding, content_hash FROM code_examples`
	var args []any
	if sourceID != "" {
		q += ` WHERE source_id = ?`
		args = append(args, sourceID)
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying code_examples: %w", errs.ErrStore, err)
	}
	defer rows.Close()

	var out []ragmodel.CodeExample
	for rows.Next() {
		var c ragmodel.CodeExample
		var metadataJSON string
		var embeddingBlob []byte
		if err := rows.Scan(&c.ID, &c.URL, &c.ChunkIndex, &c.SourceID, &c.Content, &c.Language,
			&c.Summary, &metadataJSON, &embeddingBlob, &c.ContentHash); err != nil {
			return nil, fmt.Errorf("%w: scanning code_examples row: %w", errs.ErrStore, err)
		}
		_ = json.Unmarshal([]byte(metadataJSON), &c.Metadata)
		c.Embedding = decodeVector(embeddingBlob)
		out = append(out, c)
	}
	return out, rows.Err()
}
