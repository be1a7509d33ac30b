// Package fetch implements the Fetcher capability the crawl dispatcher
// treats as an interface boundary, but which this engine still needs a
// concrete instance of to run end to end: Accept-header-by-format,
// response-size limiting, and html-to-markdown/html2text conversion.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/k3a/html2text"

	"github.com/fgarofalo56/ragengine/internal/errs"
)

const maxBodyBytes = 5 << 20 // 5MB

// Opts configures a single fetch.
type Opts struct {
	Timeout      time.Duration
	ExtraWait    time.Duration // stealth mode: pause before reading the body
	SimulateUser bool          // stealth mode: send a browser-like User-Agent
}

// PatternOpts overrides Opts for URLs whose path matches Pattern, a
// doublestar glob (e.g. "**/docs/**", "**.pdf").
type PatternOpts struct {
	Pattern string
	Opts    Opts
}

// ResolveOpts returns the Opts of the first entry in patterns whose
// Pattern matches rawURL's path, or base when none match or rawURL fails
// to parse. Matching is against the URL path with the leading slash
// trimmed, so a pattern like "docs/**" reads naturally.
func ResolveOpts(patterns []PatternOpts, rawURL string, base Opts) Opts {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return base
	}
	path := strings.TrimPrefix(parsed.Path, "/")
	for _, p := range patterns {
		if ok, err := doublestar.Match(p.Pattern, path); err == nil && ok {
			return p.Opts
		}
	}
	return base
}

// Result is the outcome of fetching and converting one URL to markdown.
type Result struct {
	URL        string
	Markdown   string
	Links      []string
	StatusCode int
}

// Fetcher retrieves a URL and returns it as markdown plus any outgoing
// links discovered in the page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts Opts) (Result, error)
}

// HTTPFetcher is the default Fetcher: a plain HTTP(S) client that requests
// markdown (falling back to converting HTML) and extracts anchor hrefs for
// the recursive/adaptive crawl strategies.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a fetcher with the given default per-request timeout.
func NewHTTPFetcher(defaultTimeout time.Duration) *HTTPFetcher {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: defaultTimeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, opts Opts) (Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("invalid URL %q: %w: %w", rawURL, errs.ErrValidation, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Result{}, fmt.Errorf("%w: unsupported scheme %q", errs.ErrValidation, parsed.Scheme)
	}

	client := f.client
	if opts.Timeout > 0 {
		client = &http.Client{Timeout: opts.Timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return Result{}, fmt.Errorf("%w: building request: %w", errs.ErrFetch, err)
	}

	if opts.SimulateUser {
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ragengine-crawler/1.0)")
	} else {
		req.Header.Set("User-Agent", "ragengine-crawler/1.0")
	}
	req.Header.Set("Accept", "text/markdown;q=1.0, text/html;q=0.9, text/plain;q=0.8, */*;q=0.1")

	if opts.ExtraWait > 0 {
		select {
		case <-time.After(opts.ExtraWait):
		case <-ctx.Done():
			return Result{}, fmt.Errorf("%w: %w", errs.ErrCancellation, ctx.Err())
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("%w: %w", errs.ErrCancellation, ctx.Err())
		}
		return Result{}, fmt.Errorf("%w: %w", errs.ErrFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("%w: reading body: %w", errs.ErrFetch, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: %s returned status %d", errs.ErrFetch, rawURL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	html := strings.Contains(contentType, "text/html")

	markdown := string(body)
	var links []string
	if html {
		links = extractLinks(string(body), parsed)
		markdown = toMarkdown(string(body))
	}

	return Result{
		URL:        rawURL,
		Markdown:   markdown,
		Links:      links,
		StatusCode: resp.StatusCode,
	}, nil
}

func toMarkdown(html string) string {
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return html2text.HTML2Text(html)
	}
	return markdown
}

// extractLinks does a light-weight scan for href="..." attributes and
// resolves them against base, returning only http/https absolute URLs.
func extractLinks(html string, base *url.URL) []string {
	var links []string
	seen := map[string]bool{}

	rest := html
	for {
		idx := strings.Index(rest, "href=")
		if idx < 0 {
			break
		}
		rest = rest[idx+len("href="):]
		if len(rest) == 0 {
			break
		}
		quote := rest[0]
		if quote != '"' && quote != '\'' {
			continue
		}
		rest = rest[1:]
		end := strings.IndexByte(rest, quote)
		if end < 0 {
			break
		}
		href := rest[:end]
		rest = rest[end+1:]

		resolved, err := base.Parse(href)
		if err != nil {
			continue
		}
		resolved.Fragment = ""
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		s := resolved.String()
		if !seen[s] {
			seen[s] = true
			links = append(links, s)
		}
	}

	return links
}
