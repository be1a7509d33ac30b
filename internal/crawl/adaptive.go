package crawl

import (
	"container/heap"
	"context"
	"net/url"
	"strings"
)

// AdaptiveMode selects the frontier discipline for the Adaptive strategy.
type AdaptiveMode string

const (
	BestFirst AdaptiveMode = "best_first"
	BFS       AdaptiveMode = "bfs"
	DFS       AdaptiveMode = "dfs"
)

// candidate is one URL waiting to be fetched, with its pre-fetch score.
type candidate struct {
	url   string
	depth int
	score float64
}

// scoreQueue is a max-heap of candidates ordered by descending score, used
// for the best_first discipline.
type scoreQueue []candidate

func (q scoreQueue) Len() int            { return len(q) }
func (q scoreQueue) Less(i, j int) bool  { return q[i].score > q[j].score }
func (q scoreQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *scoreQueue) Push(x interface{}) { *q = append(*q, x.(candidate)) }
func (q *scoreQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// crawlAdaptive implements the Adaptive strategy: a query-scored frontier
// traversal that keeps only pages whose relevance score meets
// opts.RelevanceThres, terminating on max pages, empty frontier, or max
// depth exceeded.
func (d *Dispatcher) crawlAdaptive(ctx context.Context, rawURL string, opts Opts) ([]Document, error) {
	root, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	// opts.MaxPages == 0 is the explicit "crawl nothing" request, distinct
	// from an unset/unlimited budget, which callers signal with a
	// negative value.
	if opts.MaxPages == 0 {
		return nil, nil
	}

	visited := map[string]bool{}
	var docs []Document

	push, pop, empty := frontierOps(opts.AdaptiveMode)
	push(candidate{url: rawURL, depth: 0, score: 1})
	if c, err := canonicalize(rawURL); err == nil {
		visited[c] = true
	}

	for !empty() {
		if opts.MaxPages > 0 && len(docs) >= opts.MaxPages {
			break
		}
		// opts.MaxPages < 0 means unlimited: never trips the cap above.
		cur, ok := pop()
		if !ok {
			break
		}
		if cur.depth > opts.MaxDepth {
			continue
		}

		res, err := d.Fetcher.Fetch(ctx, cur.url, opts.fetchOpts(cur.url))
		if err != nil {
			continue
		}

		// A page below threshold is not kept as a document, but its links
		// are still worth exploring — relevance is scored per-page, not
		// inherited by descendants.
		pageScore := relevanceScore(opts.Query, cur.url, res.Markdown)
		if pageScore >= opts.RelevanceThres {
			docs = append(docs, Document{URL: cur.url, Markdown: res.Markdown, Depth: cur.depth, Score: pageScore})
		}

		if cur.depth >= opts.MaxDepth {
			continue
		}
		for _, link := range res.Links {
			linkURL, err := url.Parse(link)
			if err != nil || !sameRegistrableDomain(root, linkURL) {
				continue
			}
			c, err := canonicalize(link)
			if err != nil || visited[c] {
				continue
			}
			visited[c] = true
			linkScore := relevanceScore(opts.Query, link, "")
			if linkScore < opts.RelevanceThres {
				continue
			}
			push(candidate{url: link, depth: cur.depth + 1, score: linkScore})
		}
	}

	return docs, nil
}

// frontierOps returns push/pop/empty closures implementing the requested
// traversal discipline over a shared underlying slice or heap.
func frontierOps(mode AdaptiveMode) (push func(candidate), pop func() (candidate, bool), empty func() bool) {
	switch mode {
	case BFS:
		var q []candidate
		return func(c candidate) { q = append(q, c) },
			func() (candidate, bool) {
				if len(q) == 0 {
					return candidate{}, false
				}
				c := q[0]
				q = q[1:]
				return c, true
			},
			func() bool { return len(q) == 0 }
	case DFS:
		var s []candidate
		return func(c candidate) { s = append(s, c) },
			func() (candidate, bool) {
				if len(s) == 0 {
					return candidate{}, false
				}
				c := s[len(s)-1]
				s = s[:len(s)-1]
				return c, true
			},
			func() bool { return len(s) == 0 }
	default: // BestFirst
		q := &scoreQueue{}
		heap.Init(q)
		return func(c candidate) { heap.Push(q, c) },
			func() (candidate, bool) {
				if q.Len() == 0 {
					return candidate{}, false
				}
				return heap.Pop(q).(candidate), true
			},
			func() bool { return q.Len() == 0 }
	}
}

// relevanceScore computes keyword overlap of query against the URL path
// and, when supplied, the page content. Score is in [0,1]: the fraction
// of query terms present in the combined text.
func relevanceScore(query, rawURL, content string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 1
	}

	haystack := strings.ToLower(rawURL)
	if content != "" {
		haystack += " " + strings.ToLower(content)
	}

	matches := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			matches++
		}
	}
	return float64(matches) / float64(len(terms))
}
