// Package graph implements a property graph (Repository → File →
// Class/Function, Method/Attribute, Document → Entity) as adjacency-list
// tables over sqlite, since no graph-database client exists anywhere in
// the retrieval pack. It also implements the hallucination validator and
// GraphRAG entity extractor, both of which are pure consumers/producers
// of this schema.
package graph

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS repositories (
	name TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	repo_name TEXT NOT NULL REFERENCES repositories(name) ON DELETE CASCADE,
	path TEXT NOT NULL,
	imports TEXT NOT NULL DEFAULT '[]',
	UNIQUE(repo_name, path)
);
CREATE INDEX IF NOT EXISTS idx_files_repo ON files(repo_name);

CREATE TABLE IF NOT EXISTS classes (
	full_name TEXT PRIMARY KEY,
	file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_classes_file ON classes(file_id);

CREATE TABLE IF NOT EXISTS methods (
	full_name TEXT PRIMARY KEY,
	class_full_name TEXT NOT NULL REFERENCES classes(full_name) ON DELETE CASCADE,
	name TEXT NOT NULL,
	params_list TEXT NOT NULL DEFAULT '[]',
	return_type TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_methods_class ON methods(class_full_name);

CREATE TABLE IF NOT EXISTS attributes (
	full_name TEXT PRIMARY KEY,
	class_full_name TEXT NOT NULL REFERENCES classes(full_name) ON DELETE CASCADE,
	name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_attributes_class ON attributes(class_full_name);

CREATE TABLE IF NOT EXISTS functions (
	full_name TEXT PRIMARY KEY,
	file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	params_list TEXT NOT NULL DEFAULT '[]',
	return_type TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_functions_file ON functions(file_id);

CREATE TABLE IF NOT EXISTS documents (
	url TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	PRIMARY KEY (name, type)
);

CREATE TABLE IF NOT EXISTS mentions (
	document_url TEXT NOT NULL REFERENCES documents(url) ON DELETE CASCADE,
	entity_name TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (document_url, entity_name, entity_type)
);

CREATE TABLE IF NOT EXISTS relations (
	from_name TEXT NOT NULL,
	from_type TEXT NOT NULL,
	to_name TEXT NOT NULL,
	to_type TEXT NOT NULL,
	relation_type TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (from_name, from_type, to_name, to_type, relation_type)
);
`

// Migrate creates every graph table if not already present.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrating graph schema: %w", err)
	}
	return nil
}
