// Package classify implements the pure URL → crawl-strategy function.
package classify

import (
	"strings"
)

// Strategy is a crawl strategy selected for a URL.
type Strategy string

const (
	SinglePage Strategy = "single_page"
	TextFile   Strategy = "text_file"
	Sitemap    Strategy = "sitemap"
	Recursive  Strategy = "recursive"
	Adaptive   Strategy = "adaptive"
)

// Opts carries the caller's hints that can override the pure URL-shape
// classification: requesting a single fetch, or supplying a query (which
// always selects the adaptive strategy).
type Opts struct {
	Single bool
	Query  string
}

// Classify returns Sitemap if the path ends with sitemap.xml or contains
// "sitemap" and ends with .xml; TextFile if the path ends with .txt;
// SinglePage if the caller requested a single fetch; Adaptive if a query
// was supplied; otherwise Recursive. Ties are broken in that order.
func Classify(rawURL string, opts Opts) Strategy {
	path := strings.ToLower(rawURL)
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}

	switch {
	case strings.HasSuffix(path, "sitemap.xml") || (strings.Contains(path, "sitemap") && strings.HasSuffix(path, ".xml")):
		return Sitemap
	case strings.HasSuffix(path, ".txt"):
		return TextFile
	case opts.Single:
		return SinglePage
	case opts.Query != "":
		return Adaptive
	default:
		return Recursive
	}
}
