package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fgarofalo56/ragengine/internal/errs"
)

// Store is the property-graph writer/reader, an adjacency-list schema over
// sqlite (see schema.go).
type Store struct {
	DB *sql.DB
}

// New wraps an already-migrated *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// File is one parsed source file, ready to be upserted along with its
// classes, functions, methods, and attributes.
type File struct {
	ID        string
	RepoName  string
	Path      string
	Imports   []string
	Classes   []Class
	Functions []Function
}

// Class is a parsed class/type with its methods and attributes.
type Class struct {
	FullName   string
	Name       string
	Methods    []Method
	Attributes []Attribute
}

// Method belongs to exactly one Class.
type Method struct {
	FullName   string
	Name       string
	ParamsList []string
	ReturnType string
}

// Attribute belongs to exactly one Class.
type Attribute struct {
	FullName string
	Name     string
	Type     string
}

// Function is a top-level function, belonging to exactly one File.
type Function struct {
	FullName   string
	Name       string
	ParamsList []string
	ReturnType string
}

// WriteStats tallies what UpsertFile actually wrote.
type WriteStats struct {
	FilesProcessed    int
	ClassesCreated    int
	MethodsCreated    int
	FunctionsCreated  int
	AttributesCreated int
}

// Add accumulates b into s.
func (s *WriteStats) Add(b WriteStats) {
	s.FilesProcessed += b.FilesProcessed
	s.ClassesCreated += b.ClassesCreated
	s.MethodsCreated += b.MethodsCreated
	s.FunctionsCreated += b.FunctionsCreated
	s.AttributesCreated += b.AttributesCreated
}

// UpsertRepository creates the Repository node for repoName if absent.
func (s *Store) UpsertRepository(ctx context.Context, repoName string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO repositories (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		repoName, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: upserting repository %s: %w", errs.ErrStore, repoName, err)
	}
	return nil
}

// UpsertFile writes one File and all of its Classes/Methods/
// Attributes/Functions in a single transaction, upserting by full_name.
func (s *Store) UpsertFile(ctx context.Context, f File) (WriteStats, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return WriteStats{}, fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer tx.Rollback()

	imports, err := json.Marshal(f.Imports)
	if err != nil {
		return WriteStats{}, fmt.Errorf("%w: marshaling imports: %w", errs.ErrStore, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO files (id, repo_name, path, imports) VALUES (?, ?, ?, ?)
		ON CONFLICT(repo_name, path) DO UPDATE SET imports = excluded.imports`,
		f.ID, f.RepoName, f.Path, string(imports)); err != nil {
		return WriteStats{}, fmt.Errorf("%w: upserting file %s: %w", errs.ErrStore, f.Path, err)
	}

	stats := WriteStats{FilesProcessed: 1}

	for _, c := range f.Classes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO classes (full_name, file_id, name) VALUES (?, ?, ?)
			ON CONFLICT(full_name) DO UPDATE SET file_id = excluded.file_id, name = excluded.name`,
			c.FullName, f.ID, c.Name); err != nil {
			return WriteStats{}, fmt.Errorf("%w: upserting class %s: %w", errs.ErrStore, c.FullName, err)
		}
		stats.ClassesCreated++

		for _, m := range c.Methods {
			params, err := json.Marshal(m.ParamsList)
			if err != nil {
				return WriteStats{}, fmt.Errorf("%w: marshaling method params: %w", errs.ErrStore, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO methods (full_name, class_full_name, name, params_list, return_type) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(full_name) DO UPDATE SET
					class_full_name = excluded.class_full_name, name = excluded.name,
					params_list = excluded.params_list, return_type = excluded.return_type`,
				m.FullName, c.FullName, m.Name, string(params), m.ReturnType); err != nil {
				return WriteStats{}, fmt.Errorf("%w: upserting method %s: %w", errs.ErrStore, m.FullName, err)
			}
			stats.MethodsCreated++
		}

		for _, a := range c.Attributes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO attributes (full_name, class_full_name, name, type) VALUES (?, ?, ?, ?)
				ON CONFLICT(full_name) DO UPDATE SET
					class_full_name = excluded.class_full_name, name = excluded.name, type = excluded.type`,
				a.FullName, c.FullName, a.Name, a.Type); err != nil {
				return WriteStats{}, fmt.Errorf("%w: upserting attribute %s: %w", errs.ErrStore, a.FullName, err)
			}
			stats.AttributesCreated++
		}
	}

	for _, fn := range f.Functions {
		params, err := json.Marshal(fn.ParamsList)
		if err != nil {
			return WriteStats{}, fmt.Errorf("%w: marshaling function params: %w", errs.ErrStore, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO functions (full_name, file_id, name, params_list, return_type) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(full_name) DO UPDATE SET
				file_id = excluded.file_id, name = excluded.name,
				params_list = excluded.params_list, return_type = excluded.return_type`,
			fn.FullName, f.ID, fn.Name, string(params), fn.ReturnType); err != nil {
			return WriteStats{}, fmt.Errorf("%w: upserting function %s: %w", errs.ErrStore, fn.FullName, err)
		}
		stats.FunctionsCreated++
	}

	if err := tx.Commit(); err != nil {
		return WriteStats{}, fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	return stats, nil
}

// ClassByName looks up a class by its simple name (not full_name) within a
// repository, for the hallucination validator. An empty repoName matches
// any repository, for validating a script not tied to one indexed repo.
func (s *Store) ClassByName(ctx context.Context, repoName, name string) (*Class, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.full_name, c.name FROM classes c
		JOIN files f ON f.id = c.file_id
		WHERE (? = '' OR f.repo_name = ?) AND c.name = ?`, repoName, repoName, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	var c Class
	if err := rows.Scan(&c.FullName, &c.Name); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStore, err)
	}

	methodRows, err := s.DB.QueryContext(ctx, `SELECT full_name, name, params_list, return_type FROM methods WHERE class_full_name = ?`, c.FullName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer methodRows.Close()
	for methodRows.Next() {
		var m Method
		var params string
		if err := methodRows.Scan(&m.FullName, &m.Name, &params, &m.ReturnType); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrStore, err)
		}
		_ = json.Unmarshal([]byte(params), &m.ParamsList)
		c.Methods = append(c.Methods, m)
	}

	attrRows, err := s.DB.QueryContext(ctx, `SELECT full_name, name, type FROM attributes WHERE class_full_name = ?`, c.FullName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var a Attribute
		if err := attrRows.Scan(&a.FullName, &a.Name, &a.Type); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrStore, err)
		}
		c.Attributes = append(c.Attributes, a)
	}

	return &c, nil
}

// FunctionByName looks up a top-level function by simple name within a
// repository, for the hallucination validator. An empty repoName matches
// any repository.
func (s *Store) FunctionByName(ctx context.Context, repoName, name string) (*Function, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT fn.full_name, fn.name, fn.params_list, fn.return_type FROM functions fn
		JOIN files f ON f.id = fn.file_id
		WHERE (? = '' OR f.repo_name = ?) AND fn.name = ?`, repoName, repoName, name)

	var fn Function
	var params string
	if err := row.Scan(&fn.FullName, &fn.Name, &params, &fn.ReturnType); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrStore, err)
	}
	_ = json.Unmarshal([]byte(params), &fn.ParamsList)
	return &fn, nil
}
