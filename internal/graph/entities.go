package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/llmclient"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

// Entity is one named entity extracted from a chunk.
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

type extraction struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

const defaultMaxConcurrentExtractions = 3

const entitySystemPrompt = `Extract named entities and relationships between them from the given text. Entity types: PERSON, ORG, TECHNOLOGY, CONCEPT, LOCATION, EVENT, PRODUCT, OTHER. Respond with only a JSON object: {"entities":[{"name":"","type":""}],"relationships":[{"from":"","to":"","type":"","confidence":0.0}]}`

// Extractor runs the GraphRAG entity extraction pass: per-chunk LLM
// extraction, bounded by a semaphore, with an idempotent
// merge-by-(name,type)/(from,to,type) write.
type Extractor struct {
	Provider      llmclient.Provider
	Store         *Store
	MaxConcurrent int
}

// NewExtractor builds an Extractor with the default extraction
// concurrency.
func NewExtractor(provider llmclient.Provider, store *Store) *Extractor {
	return &Extractor{Provider: provider, Store: store, MaxConcurrent: defaultMaxConcurrentExtractions}
}

// ExtractDocument runs entity extraction over every chunk of a document
// (identified by url) and idempotently merges the results into the graph,
// setting each MENTIONS edge's count to the total occurrences across this
// ingest's chunks.
func (e *Extractor) ExtractDocument(ctx context.Context, url string, chunks []ragmodel.Chunk) error {
	limit := e.MaxConcurrent
	if limit <= 0 {
		limit = defaultMaxConcurrentExtractions
	}

	results := make([]extraction, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			ex, err := e.extractChunk(gctx, chunk.Content)
			if err != nil {
				slog.Warn("entity extraction failed for chunk, skipping", "error", err, "chunk_index", chunk.Index)
				return nil
			}
			results[i] = ex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCancellation, err)
	}

	return e.writeDocument(ctx, url, results)
}

func (e *Extractor) extractChunk(ctx context.Context, content string) (extraction, error) {
	text, err := e.Provider.Complete(ctx, entitySystemPrompt, content)
	if err != nil {
		return extraction{}, err
	}
	var ex extraction
	if err := json.Unmarshal([]byte(text), &ex); err != nil {
		return extraction{}, fmt.Errorf("parsing entity extraction response: %w", err)
	}
	return ex, nil
}

func (e *Extractor) writeDocument(ctx context.Context, url string, results []extraction) error {
	mentionCounts := map[[2]string]int{}
	var relationships []Relationship

	for _, ex := range results {
		for _, ent := range ex.Entities {
			mentionCounts[[2]string{ent.Name, ent.Type}]++
		}
		relationships = append(relationships, ex.Relationships...)
	}

	tx, err := e.Store.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (url, created_at) VALUES (?, ?) ON CONFLICT(url) DO NOTHING`,
		url, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("%w: upserting document %s: %w", errs.ErrStore, url, err)
	}

	for key, count := range mentionCounts {
		name, typ := key[0], key[1]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (name, type) VALUES (?, ?) ON CONFLICT(name, type) DO NOTHING`, name, typ); err != nil {
			return fmt.Errorf("%w: upserting entity %s/%s: %w", errs.ErrStore, name, typ, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO mentions (document_url, entity_name, entity_type, count) VALUES (?, ?, ?, ?)
			ON CONFLICT(document_url, entity_name, entity_type) DO UPDATE SET count = excluded.count`,
			url, name, typ, count); err != nil {
			return fmt.Errorf("%w: upserting mention %s/%s: %w", errs.ErrStore, name, typ, err)
		}
	}

	for _, r := range relationships {
		// Relationship entities aren't guaranteed to have an explicit
		// type from the extraction call; OTHER is the taxonomy default.
		for _, n := range [2]string{r.From, r.To} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO entities (name, type) VALUES (?, 'OTHER') ON CONFLICT(name, type) DO NOTHING`, n); err != nil {
				return fmt.Errorf("%w: upserting relationship entity %s: %w", errs.ErrStore, n, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO relations (from_name, from_type, to_name, to_type, relation_type, confidence)
			VALUES (?, 'OTHER', ?, 'OTHER', ?, ?)
			ON CONFLICT(from_name, from_type, to_name, to_type, relation_type)
			DO UPDATE SET confidence = excluded.confidence`,
			r.From, r.To, r.Type, r.Confidence); err != nil {
			return fmt.Errorf("%w: upserting relation %s->%s: %w", errs.ErrStore, r.From, r.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	return nil
}

// MentionedEntities returns up to limit entities mentioned by the document
// at documentURL, each paired with one of its graph neighbors, for the
// retriever's optional graph-enrichment pass. The retriever passes the
// URL of the result's CrawledPage row.
func (e *Extractor) MentionedEntities(ctx context.Context, documentURL string, limit int) ([]ragmodel.EntityContext, error) {
	rows, err := e.Store.DB.QueryContext(ctx,
		`SELECT entity_name, entity_type FROM mentions WHERE document_url = ? ORDER BY count DESC LIMIT ?`,
		documentURL, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
	}
	defer rows.Close()

	var out []ragmodel.EntityContext
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
		}

		neighbor, neighborType, relType, err := e.Store.firstNeighbor(ctx, name, typ)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
		}
		out = append(out, ragmodel.EntityContext{
			Entity: name, EntityType: typ,
			Neighbor: neighbor, NeighborType: neighborType, RelationType: relType,
		})
	}
	return out, rows.Err()
}

func (s *Store) firstNeighbor(ctx context.Context, name, typ string) (neighbor, neighborType, relType string, err error) {
	row := s.DB.QueryRowContext(ctx,
		// Relations are written with from_type OTHER (see writeDocument), so
		// match that as well as the mention's own type.
		`SELECT to_name, to_type, relation_type FROM relations WHERE from_name = ? AND from_type IN (?, 'OTHER') LIMIT 1`,
		name, typ)
	if err := row.Scan(&neighbor, &neighborType, &relType); err != nil {
		return "", "", "", nil // no neighbor is not an error, just an empty context entry
	}
	return neighbor, neighborType, relType, nil
}
