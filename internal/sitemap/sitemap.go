// Package sitemap fetches and parses an XML sitemap. It fails soft,
// yielding an empty URL list on malformed input rather than an error,
// since a broken sitemap should not abort a crawl.
package sitemap

import (
	"context"
	"encoding/xml"
	"log/slog"

	"github.com/fgarofalo56/ragengine/internal/fetch"
)

type urlSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// Parse fetches rawURL and returns the list of URLs it names. A sitemap
// index (a sitemap of sitemaps) is expanded one level; entries that fail to
// fetch are skipped. Malformed XML yields an empty, non-error result.
func Parse(ctx context.Context, f fetch.Fetcher, rawURL string) []string {
	body, err := fetchRaw(ctx, f, rawURL)
	if err != nil {
		slog.Warn("sitemap fetch failed, yielding empty list", "url", rawURL, "error", err)
		return nil
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		urls := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			if u.Loc != "" {
				urls = append(urls, u.Loc)
			}
		}
		return urls
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
		var all []string
		for _, s := range index.Sitemaps {
			if s.Loc == "" {
				continue
			}
			// Entries are read as plain urlsets; a nested index is not expanded.
			childBody, err := fetchRaw(ctx, f, s.Loc)
			if err != nil {
				slog.Warn("sitemap entry fetch failed, skipping", "url", s.Loc, "error", err)
				continue
			}
			var child urlSet
			if err := xml.Unmarshal(childBody, &child); err != nil {
				continue
			}
			for _, u := range child.URLs {
				if u.Loc != "" {
					all = append(all, u.Loc)
				}
			}
		}
		return all
	}

	slog.Warn("sitemap did not parse as a urlset or sitemapindex, yielding empty list", "url", rawURL)
	return nil
}

func fetchRaw(ctx context.Context, f fetch.Fetcher, rawURL string) ([]byte, error) {
	res, err := f.Fetch(ctx, rawURL, fetch.Opts{})
	if err != nil {
		return nil, err
	}
	return []byte(res.Markdown), nil
}
