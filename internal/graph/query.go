package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fgarofalo56/ragengine/internal/errs"
)

func unmarshalParams(raw string, out *[]string) {
	_ = json.Unmarshal([]byte(raw), out)
}

// ListRepositories returns every indexed repository name, for the
// query_knowledge_graph "repos" command.
func (s *Store) ListRepositories(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name FROM repositories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListClassesByRepo returns the simple names of every class defined in
// repoName, for the query_knowledge_graph "classes <repo>" command.
func (s *Store) ListClassesByRepo(ctx context.Context, repoName string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.name FROM classes c
		JOIN files f ON f.id = c.file_id
		WHERE f.repo_name = ?
		ORDER BY c.name`, repoName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// NeighborEdge is one outgoing relation from an entity or class, as
// surfaced by the query_knowledge_graph "explore <name>" command.
type NeighborEdge struct {
	Neighbor     string
	RelationType string
}

// ExploreEntity returns every outgoing relation from the named entity
// (across all types), for "explore <name>".
func (s *Store) ExploreEntity(ctx context.Context, name string) ([]NeighborEdge, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT to_name, relation_type FROM relations WHERE from_name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
	}
	defer rows.Close()

	var edges []NeighborEdge
	for rows.Next() {
		var e NeighborEdge
		if err := rows.Scan(&e.Neighbor, &e.RelationType); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// MethodByName finds every method across every repository whose simple
// name matches, for the "method <name>" command.
func (s *Store) MethodByName(ctx context.Context, name string) ([]Method, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT full_name, name, params_list, return_type FROM methods WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
	}
	defer rows.Close()

	var methods []Method
	for rows.Next() {
		var m Method
		var params string
		if err := rows.Scan(&m.FullName, &m.Name, &params, &m.ReturnType); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrGraphUnavailable, err)
		}
		unmarshalParams(params, &m.ParamsList)
		methods = append(methods, m)
	}
	return methods, rows.Err()
}
