// Package crawl implements the crawl dispatcher: it dispatches on the
// classify.Strategy chosen for a URL and returns the crawled Documents as
// a slice, across five concrete strategies; the concurrent ones bound
// their fetches with an errgroup limit.
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/fgarofalo56/ragengine/internal/classify"
	"github.com/fgarofalo56/ragengine/internal/errs"
	"github.com/fgarofalo56/ragengine/internal/fetch"
	"github.com/fgarofalo56/ragengine/internal/sitemap"
)

// Document is one crawled page, ready for chunking.
type Document struct {
	URL      string
	Markdown string
	Depth    int
	Error    error
	// Score is the relevance score the Adaptive strategy computed for this
	// page; zero and unused for every other strategy.
	Score float64
}

// Opts configures a single Crawl call. Zero values fall back to sensible
// per-strategy defaults.
type Opts struct {
	Strategy       classify.Strategy
	Query          string
	MaxDepth       int // Recursive, Adaptive. Default 3.
	MaxConcurrent  int // Sitemap, Recursive. Default 10.
	// MaxPages bounds the Adaptive strategy: a positive value caps the page
	// count, 0 means crawl nothing, and a negative value means unlimited.
	MaxPages       int
	RelevanceThres float64
	AdaptiveMode   AdaptiveMode // best_first (default), bfs, dfs
	// FetchPatterns overrides fetch.Opts per URL, selected by glob match
	// against the URL path; the multi-url-config tool's per-URL config
	// selection by pattern.
	FetchPatterns []fetch.PatternOpts
}

// fetchOpts resolves the fetch.Opts to use for rawURL, applying the first
// matching entry in o.FetchPatterns over the zero-value default.
func (o Opts) fetchOpts(rawURL string) fetch.Opts {
	return fetch.ResolveOpts(o.FetchPatterns, rawURL, fetch.Opts{})
}

const (
	defaultMaxDepth       = 3
	defaultMaxConcurrent  = 10
	defaultRelevanceThres = 0.3
)

func (o Opts) withDefaults() Opts {
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaultMaxDepth
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = defaultMaxConcurrent
	}
	if o.RelevanceThres <= 0 {
		o.RelevanceThres = defaultRelevanceThres
	}
	if o.AdaptiveMode == "" {
		o.AdaptiveMode = BestFirst
	}
	return o
}

// Dispatcher runs one of the five crawl strategies against a Fetcher.
type Dispatcher struct {
	Fetcher fetch.Fetcher
}

// NewDispatcher builds a Dispatcher over f.
func NewDispatcher(f fetch.Fetcher) *Dispatcher {
	return &Dispatcher{Fetcher: f}
}

// Crawl dispatches rawURL to the strategy named in opts (or, if unset,
// the one classify.Classify would choose) and returns the crawled
// Documents. A per-URL fetch failure does not abort the whole crawl: it is
// recorded as a Document with a non-nil Error, except under the Adaptive
// strategy, which leaves a page that fails to fetch out of the result. A
// ValidationError on rawURL itself is returned directly.
func (d *Dispatcher) Crawl(ctx context.Context, rawURL string, opts Opts) ([]Document, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}
	opts = opts.withDefaults()
	if opts.Strategy == "" {
		opts.Strategy = classify.Classify(rawURL, classify.Opts{Query: opts.Query})
	}

	switch opts.Strategy {
	case classify.SinglePage:
		return d.single(ctx, rawURL, opts)
	case classify.TextFile:
		return d.single(ctx, rawURL, opts)
	case classify.Sitemap:
		return d.crawlSitemap(ctx, rawURL, opts)
	case classify.Recursive:
		return d.crawlRecursive(ctx, rawURL, opts)
	case classify.Adaptive:
		return d.crawlAdaptive(ctx, rawURL, opts)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", errs.ErrValidation, opts.Strategy)
	}
}

func (d *Dispatcher) single(ctx context.Context, rawURL string, opts Opts) ([]Document, error) {
	res, err := d.Fetcher.Fetch(ctx, rawURL, opts.fetchOpts(rawURL))
	if err != nil {
		return []Document{{URL: rawURL, Error: err}}, nil
	}
	return []Document{{URL: rawURL, Markdown: res.Markdown}}, nil
}

func (d *Dispatcher) crawlSitemap(ctx context.Context, rawURL string, opts Opts) ([]Document, error) {
	urls := sitemap.Parse(ctx, d.Fetcher, rawURL)

	docs := make([]Document, 0, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxConcurrent)

	for _, u := range urls {
		u := u
		g.Go(func() error {
			res, err := d.Fetcher.Fetch(gctx, u, opts.fetchOpts(u))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				docs = append(docs, Document{URL: u, Error: err})
				return nil
			}
			docs = append(docs, Document{URL: u, Markdown: res.Markdown})
			return nil
		})
	}
	// Sitemap fan-out failures are per-URL and non-fatal; only a
	// cancellation propagates as an error.
	if err := g.Wait(); err != nil {
		return docs, fmt.Errorf("%w: %w", errs.ErrCancellation, err)
	}
	return docs, nil
}

// canonicalize strips the fragment and trailing slash for frontier dedup.
func canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}

// sameRegistrableDomain reports whether a and b share a registrable domain
// (e.g. "docs.example.com" and "www.example.com" both reduce to
// "example.com"), using the public suffix list so multi-label TLDs like
// "co.uk" are handled correctly.
func sameRegistrableDomain(a, b *url.URL) bool {
	da, erra := publicsuffix.EffectiveTLDPlusOne(a.Hostname())
	db, errb := publicsuffix.EffectiveTLDPlusOne(b.Hostname())
	if erra != nil || errb != nil {
		return strings.EqualFold(a.Hostname(), b.Hostname())
	}
	return strings.EqualFold(da, db)
}
