package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/ragmodel"
)

// ListSources returns every known Source, for the get_available_sources
// operation.
func (s *Store) ListSources(ctx context.Context) ([]ragmodel.Source, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT source_id, summary, total_word_count, page_count, created_at, updated_at FROM sources ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer rows.Close()

	var out []ragmodel.Source
	for rows.Next() {
		var src ragmodel.Source
		var created, updated string
		if err := rows.Scan(&src.SourceID, &src.Summary, &src.TotalWords, &src.PageCount, &created, &updated); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrStore, err)
		}
		src.CreatedAt, _ = time.Parse(time.RFC3339, created)
		src.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, src)
	}
	return out, rows.Err()
}
