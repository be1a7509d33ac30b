// Package codegraph walks a cloned repository, parses its Go source with
// tree-sitter, and writes the resulting symbols into the property graph
// (internal/graph).
package codegraph

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
)

// CloneRepo shallow-clones url into a fresh temp directory under workDir and
// returns the local path. Callers are responsible for cleaning it up.
func CloneRepo(ctx context.Context, url, workDir string) (string, error) {
	dest, err := os.MkdirTemp(workDir, "repo-*")
	if err != nil {
		return "", fmt.Errorf("creating clone destination: %w", err)
	}

	_, err = git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		os.RemoveAll(dest)
		return "", fmt.Errorf("cloning %s: %w", url, err)
	}
	return dest, nil
}
