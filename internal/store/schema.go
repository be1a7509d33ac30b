// Package store implements the vector-store writer: a sqlite-backed
// store for Source/CrawledPage/CodeExample rows with a genuine FTS5
// full-text index alongside the embedding columns, so the retriever's
// hybrid search (internal/retrieve) has real lexical search to fuse
// against. Each row carries a content_hash column; re-ingest is
// delete-then-insert and does not skip unchanged content.
package store

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	source_id TEXT PRIMARY KEY,
	summary TEXT NOT NULL DEFAULT '',
	total_word_count INTEGER NOT NULL DEFAULT 0,
	page_count INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS crawled_pages (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	source_id TEXT NOT NULL,
	content TEXT NOT NULL,
	context_summary TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	embedding BLOB,
	content_hash TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	UNIQUE(url, chunk_index)
);
CREATE INDEX IF NOT EXISTS idx_crawled_pages_url ON crawled_pages(url);
CREATE INDEX IF NOT EXISTS idx_crawled_pages_source ON crawled_pages(source_id);

CREATE VIRTUAL TABLE IF NOT EXISTS crawled_pages_fts USING fts5(
	content,
	content='crawled_pages',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS crawled_pages_ai AFTER INSERT ON crawled_pages BEGIN
	INSERT INTO crawled_pages_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS crawled_pages_ad AFTER DELETE ON crawled_pages BEGIN
	INSERT INTO crawled_pages_fts(crawled_pages_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;
CREATE TRIGGER IF NOT EXISTS crawled_pages_au AFTER UPDATE ON crawled_pages BEGIN
	INSERT INTO crawled_pages_fts(crawled_pages_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	INSERT INTO crawled_pages_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TABLE IF NOT EXISTS code_examples (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	source_id TEXT NOT NULL,
	content TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	embedding BLOB,
	content_hash TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	UNIQUE(url, chunk_index)
);
CREATE INDEX IF NOT EXISTS idx_code_examples_url ON code_examples(url);
CREATE INDEX IF NOT EXISTS idx_code_examples_source ON code_examples(source_id);

CREATE VIRTUAL TABLE IF NOT EXISTS code_examples_fts USING fts5(
	content,
	content='code_examples',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS code_examples_ai AFTER INSERT ON code_examples BEGIN
	INSERT INTO code_examples_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS code_examples_ad AFTER DELETE ON code_examples BEGIN
	INSERT INTO code_examples_fts(code_examples_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;
CREATE TRIGGER IF NOT EXISTS code_examples_au AFTER UPDATE ON code_examples BEGIN
	INSERT INTO code_examples_fts(code_examples_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	INSERT INTO code_examples_fts(rowid, content) VALUES (new.rowid, new.content);
END;
`

// Migrate creates every table, index, FTS5 virtual table, and sync trigger
// this package needs, if not already present.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrating store schema: %w", err)
	}
	return nil
}
