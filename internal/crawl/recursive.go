package crawl

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
)

// crawlRecursive implements the Recursive strategy: BFS from rawURL up
// to opts.MaxDepth, frontier deduplicated by canonical URL,
// following only same-registrable-domain links, fetching each level's
// frontier in parallel under opts.MaxConcurrent.
func (d *Dispatcher) crawlRecursive(ctx context.Context, rawURL string, opts Opts) ([]Document, error) {
	return d.crawlRecursiveWorkers(ctx, rawURL, opts, func() int { return opts.MaxConcurrent })
}

// crawlRecursiveWorkers is crawlRecursive with the per-level worker count
// supplied by workers() instead of fixed at opts.MaxConcurrent, so a
// memorySupervisor can throttle it between frontier levels.
func (d *Dispatcher) crawlRecursiveWorkers(ctx context.Context, rawURL string, opts Opts, workers func() int) ([]Document, error) {
	root, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{}
	canon, err := canonicalize(rawURL)
	if err != nil {
		return nil, err
	}
	visited[canon] = true

	frontier := []string{rawURL}
	var docs []Document

	for depth := 0; depth <= opts.MaxDepth && len(frontier) > 0; depth++ {
		type fetched struct {
			doc   Document
			links []string
		}
		results := make([]fetched, len(frontier))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers())

		for i, u := range frontier {
			i, u := i, u
			g.Go(func() error {
				res, err := d.Fetcher.Fetch(gctx, u, opts.fetchOpts(u))
				if err != nil {
					results[i] = fetched{doc: Document{URL: u, Depth: depth, Error: err}}
					return nil
				}
				results[i] = fetched{
					doc:   Document{URL: u, Markdown: res.Markdown, Depth: depth},
					links: res.Links,
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return docs, err
		}

		var next []string
		var mu sync.Mutex
		for _, r := range results {
			docs = append(docs, r.doc)
			if depth == opts.MaxDepth {
				continue
			}
			for _, link := range r.links {
				linkURL, err := url.Parse(link)
				if err != nil || !sameRegistrableDomain(root, linkURL) {
					continue
				}
				c, err := canonicalize(link)
				if err != nil {
					continue
				}
				mu.Lock()
				if !visited[c] {
					visited[c] = true
					next = append(next, link)
				}
				mu.Unlock()
			}
		}
		frontier = next
	}

	return docs, nil
}
