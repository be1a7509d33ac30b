package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

// Store is the vector-store writer/reader. All write methods are
// transactional; DeleteByURL+InsertChunks for a given URL is the
// caller's responsibility to sequence (see internal/engine), since
// re-ingest requires per-URL delete-then-insert ordering; the engine
// ingests documents one at a time.
type Store struct {
	DB *sql.DB
}

// New wraps an already-migrated *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

const batchSize = 20 // rows per batched insert

// DeleteByURL removes all crawled-page chunks and code examples for url,
// the first half of the per-URL idempotent re-ingest contract.
func (s *Store) DeleteByURL(ctx context.Context, url string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM crawled_pages WHERE url = ?`, url); err != nil {
		return fmt.Errorf("%w: deleting crawled_pages: %w", errs.ErrStore, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM code_examples WHERE url = ?`, url); err != nil {
		return fmt.Errorf("%w: deleting code_examples: %w", errs.ErrStore, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	return nil
}

// InsertChunks batch-inserts CrawledPage rows, batchSize rows per
// transaction.
func (s *Store) InsertChunks(ctx context.Context, pages []ragmodel.CrawledPage) error {
	for start := 0; start < len(pages); start += batchSize {
		end := min(start+batchSize, len(pages))
		if err := s.insertChunkBatch(ctx, pages[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertChunkBatch(ctx context.Context, batch []ragmodel.CrawledPage) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crawled_pages (id, url, chunk_index, source_id, content, context_summary, metadata, embedding, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url, chunk_index) DO UPDATE SET
			source_id = excluded.source_id, content = excluded.content,
			context_summary = excluded.context_summary, metadata = excluded.metadata,
			embedding = excluded.embedding, content_hash = excluded.content_hash`)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer stmt.Close()

	for _, p := range batch {
		metadata, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshaling metadata: %w", errs.ErrStore, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.URL, p.ChunkIndex, p.SourceID, p.Content,
			p.ContextSummary, string(metadata), encodeVector(p.Embedding), p.ContentHash,
			time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("%w: inserting chunk %s#%d: %w", errs.ErrStore, p.URL, p.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	return nil
}

// InsertCodeExamples batch-inserts CodeExample rows, batchSize rows per
// transaction. Only called when the agentic-RAG (code-example) flag is on.
func (s *Store) InsertCodeExamples(ctx context.Context, examples []ragmodel.CodeExample) error {
	for start := 0; start < len(examples); start += batchSize {
		end := min(start+batchSize, len(examples))
		if err := s.insertCodeExampleBatch(ctx, examples[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertCodeExampleBatch(ctx context.Context, batch []ragmodel.CodeExample) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO code_examples (id, url, chunk_index, source_id, content, language, summary, metadata, embedding, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url, chunk_index) DO UPDATE SET
			source_id = excluded.source_id, content = excluded.content,
			language = excluded.language, summary = excluded.summary,
			metadata = excluded.metadata, embedding = excluded.embedding,
			content_hash = excluded.content_hash`)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer stmt.Close()

	for _, e := range batch {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshaling metadata: %w", errs.ErrStore, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.URL, e.ChunkIndex, e.SourceID, e.Content,
			e.Language, e.Summary, string(metadata), encodeVector(e.Embedding), e.ContentHash,
			time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("%w: inserting code example %s#%d: %w", errs.ErrStore, e.URL, e.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	return nil
}

// UpsertSource creates or updates the Source row for sourceID. Called
// after all chunks of that source have been written.
func (s *Store) UpsertSource(ctx context.Context, sourceID, summary string, totalWordCount, pageCount int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sources (source_id, summary, total_word_count, page_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			summary = excluded.summary, total_word_count = excluded.total_word_count,
			page_count = excluded.page_count, updated_at = excluded.updated_at`,
		sourceID, summary, totalWordCount, pageCount, now, now)
	if err != nil {
		return fmt.Errorf("%w: upserting source %s: %w", errs.ErrStore, sourceID, err)
	}
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
