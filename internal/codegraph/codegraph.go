package codegraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/graph"
	"github.com/fgarofalo56/ragengine/pkg/fsx"
)

const (
	defaultMaxConcurrentRepos = 3
	defaultMaxRetries         = 3
)

// RepoSpec names one repository to index, either a remote URL to clone or
// an already-checked-out local path.
type RepoSpec struct {
	Name      string
	URL       string
	LocalPath string
}

// Indexer walks repositories, parses their Go source, and writes the
// resulting symbols into a graph.Store.
type Indexer struct {
	Store              *graph.Store
	Parser             *Parser
	WorkDir            string
	MaxConcurrentRepos int
	MaxRetries         int
}

// NewIndexer builds an Indexer with default concurrency and retry budget.
func NewIndexer(store *graph.Store, workDir string) *Indexer {
	return &Indexer{
		Store:              store,
		Parser:             NewParser(),
		WorkDir:            workDir,
		MaxConcurrentRepos: defaultMaxConcurrentRepos,
		MaxRetries:         defaultMaxRetries,
	}
}

// IndexRepositories processes every spec, up to MaxConcurrentRepos at a
// time, and returns the aggregate WriteStats across all of them. A single
// repository's failure (clone error, or writes exhausting retries) is
// logged and excluded from the aggregate rather than aborting the rest.
func (idx *Indexer) IndexRepositories(ctx context.Context, specs []RepoSpec) (graph.WriteStats, error) {
	results, err := idx.IndexRepositoriesDetailed(ctx, specs)
	if err != nil {
		return graph.WriteStats{}, err
	}
	var total graph.WriteStats
	for _, r := range results {
		total.Add(r.Stats)
	}
	return total, nil
}

// RepoResult is one repository's outcome from IndexRepositoriesDetailed.
type RepoResult struct {
	Name  string
	Stats graph.WriteStats
	Err   error
}

// IndexRepositoriesDetailed is IndexRepositories but returns a per-repo
// breakdown alongside each failure, for parse_github_repositories_batch's
// "per-repo results + aggregate" result shape.
func (idx *Indexer) IndexRepositoriesDetailed(ctx context.Context, specs []RepoSpec) ([]RepoResult, error) {
	limit := idx.MaxConcurrentRepos
	if limit <= 0 {
		limit = defaultMaxConcurrentRepos
	}

	results := make([]RepoResult, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			stats, err := idx.indexOne(gctx, spec)
			if err != nil {
				slog.Warn("repository indexing failed, skipping", "repo", spec.Name, "error", err)
			}
			results[i] = RepoResult{Name: spec.Name, Stats: stats, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCancellation, err)
	}
	return results, nil
}

func (idx *Indexer) indexOne(ctx context.Context, spec RepoSpec) (graph.WriteStats, error) {
	repoPath := spec.LocalPath
	if repoPath == "" {
		cloned, err := CloneRepo(ctx, spec.URL, idx.WorkDir)
		if err != nil {
			return graph.WriteStats{}, fmt.Errorf("%w: %w", errs.ErrFetch, err)
		}
		defer os.RemoveAll(cloned)
		repoPath = cloned
	}

	if err := idx.Store.UpsertRepository(ctx, spec.Name); err != nil {
		return graph.WriteStats{}, err
	}

	matcher, err := fsx.NewVCSMatcher(repoPath)
	if err != nil {
		slog.Debug("no vcs ignore rules available", "repo", spec.Name, "error", err)
	}

	// WalkFiles skips vendor/venv/node_modules and other heavy directories
	// by name unconditionally, on top of matcher.ShouldIgnore's gitignore
	// rules — a committed, non-gitignored vendor/ tree is still skipped.
	relFiles, err := fsx.WalkFiles(ctx, repoPath, fsx.WalkFilesOptions{ShouldIgnore: matcher.ShouldIgnore})
	if err != nil {
		return graph.WriteStats{}, fmt.Errorf("%w: %w", errs.ErrFetch, err)
	}

	var total graph.WriteStats
	for _, rel := range relFiles {
		if !strings.HasSuffix(rel, ".go") {
			continue
		}
		path := filepath.Join(repoPath, rel)
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}

		f, err := idx.Parser.ParseFile(ctx, fmt.Sprintf("%s/%s", spec.Name, rel), spec.Name, rel, content)
		if err != nil {
			slog.Warn("skipping unparseable file", "path", rel, "error", err)
			continue
		}

		stats, err := idx.upsertWithRetry(ctx, f)
		if err != nil {
			slog.Warn("giving up on file after retries", "path", rel, "error", err)
			continue
		}
		total.Add(stats)
	}

	return total, nil
}

func (idx *Indexer) upsertWithRetry(ctx context.Context, f graph.File) (graph.WriteStats, error) {
	maxRetries := idx.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		stats, err := idx.Store.UpsertFile(ctx, f)
		if err == nil {
			return stats, nil
		}
		if !errors.Is(err, errs.ErrStore) {
			return graph.WriteStats{}, err
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}
		backoff := time.Duration(1<<attempt) * 100 * time.Millisecond
		backoff += time.Duration(rand.IntN(50)) * time.Millisecond
		select {
		case <-ctx.Done():
			return graph.WriteStats{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return graph.WriteStats{}, lastErr
}
