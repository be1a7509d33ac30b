// Package ragmodel holds the data shapes shared across the ingestion and
// retrieval pipeline: crawled pages, chunks, code examples, and the search
// result types returned by the vector and full-text strategies.
package ragmodel

import "time"

// Source describes a crawled origin (a domain or a parsed repository) and
// the aggregate stats reported by get_available_sources.
type Source struct {
	SourceID    string    `json:"source_id"`
	Summary     string    `json:"summary"`
	TotalWords  int       `json:"total_words"`
	PageCount   int       `json:"page_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CrawledPage is one chunk of a crawled URL, ready for embedding and storage.
type CrawledPage struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	SourceID       string            `json:"source_id"`
	ChunkIndex     int               `json:"chunk_index"`
	Content        string            `json:"content"`
	ContextSummary string            `json:"context_summary,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Embedding      []float32         `json:"-"`
	ContentHash    string            `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
}

// CodeExample is a fenced code block extracted from a crawled page, stored
// and searched separately from prose chunks.
type CodeExample struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	SourceID    string            `json:"source_id"`
	ChunkIndex  int                `json:"chunk_index"`
	Content     string            `json:"content"`
	Language    string            `json:"language,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Embedding   []float32         `json:"-"`
	ContentHash string            `json:"-"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SearchResult pairs a stored item with the score a strategy gave it.
type SearchResult struct {
	Page         *CrawledPage
	Code         *CodeExample
	Similarity   float64
	Rank         int
	Strategy     string
	GraphContext []EntityContext `json:"graph_context,omitempty"`
}

// EntityContext is one graph-enrichment entry attached to a search result:
// an entity mentioned in the chunk, plus one of its neighbors.
type EntityContext struct {
	Entity       string `json:"entity"`
	EntityType   string `json:"entity_type"`
	Neighbor     string `json:"neighbor"`
	NeighborType string `json:"neighbor_type"`
	RelationType string `json:"relation_type"`
}

// Key returns a stable dedup key, preferring the page/code ID.
func (r SearchResult) Key() string {
	if r.Page != nil {
		return "page:" + r.Page.ID
	}
	if r.Code != nil {
		return "code:" + r.Code.ID
	}
	return ""
}

// Content returns the textual body of whichever item this result wraps.
func (r SearchResult) Content() string {
	if r.Page != nil {
		return r.Page.Content
	}
	if r.Code != nil {
		return r.Code.Content
	}
	return ""
}

// SourcePath returns the origin URL of whichever item this result wraps.
func (r SearchResult) SourcePath() string {
	if r.Page != nil {
		return r.Page.URL
	}
	if r.Code != nil {
		return r.Code.URL
	}
	return ""
}

// Chunk is a boundary-aligned slice of text produced by the chunker, before
// it has been embedded or assigned a stable ID.
type Chunk struct {
	Index    int
	Content  string
	Metadata map[string]string
}

// CrawlResult is one fetched-and-converted page, prior to chunking.
type CrawlResult struct {
	URL        string
	Markdown   string
	StatusCode int
	Depth      int
	Error      error
}
