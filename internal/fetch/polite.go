package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/fgarofalo56/ragengine/internal/errs"
)

// PoliteFetcher wraps a Fetcher with per-host robots.txt compliance
// (github.com/temoto/robotstxt) and a per-host rate limiter
// (golang.org/x/time/rate), so the crawl dispatcher's worker pool
// doesn't need to reason about either.
type PoliteFetcher struct {
	inner      Fetcher
	client     *http.Client
	rps        rate.Limit
	burst      int
	userAgent  string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	robots   map[string]*robotstxt.RobotsData
}

// NewPoliteFetcher wraps inner with a per-host rate limit of rps requests
// per second (burst 1) and robots.txt enforcement under userAgent.
func NewPoliteFetcher(inner Fetcher, rps float64, userAgent string) *PoliteFetcher {
	if userAgent == "" {
		userAgent = "ragengine-crawler"
	}
	return &PoliteFetcher{
		inner:     inner,
		client:    &http.Client{Timeout: 10 * time.Second},
		rps:       rate.Limit(rps),
		burst:     1,
		userAgent: userAgent,
		limiters:  make(map[string]*rate.Limiter),
		robots:    make(map[string]*robotstxt.RobotsData),
	}
}

func (p *PoliteFetcher) Fetch(ctx context.Context, rawURL string, opts Opts) (Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}

	allowed, err := p.allowed(ctx, parsed)
	if err != nil {
		// robots.txt being unreachable is not a reason to refuse the crawl.
		allowed = true
	}
	if !allowed {
		return Result{}, fmt.Errorf("%w: %s disallowed by robots.txt", errs.ErrFetch, rawURL)
	}

	limiter := p.limiterFor(parsed.Host)
	if err := limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %w", errs.ErrCancellation, err)
	}

	return p.inner.Fetch(ctx, rawURL, opts)
}

func (p *PoliteFetcher) allowed(ctx context.Context, u *url.URL) (bool, error) {
	p.mu.Lock()
	data, ok := p.robots[u.Host]
	p.mu.Unlock()
	if ok {
		return data.TestAgent(u.Path, p.userAgent), nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if err != nil {
		return true, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// No robots.txt, or it errored: treat as allow-all.
		allowAll, err := robotstxt.FromString("")
		if err != nil {
			return true, nil
		}
		p.mu.Lock()
		p.robots[u.Host] = allowAll
		p.mu.Unlock()
		return true, nil
	}

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return true, err
	}

	p.mu.Lock()
	p.robots[u.Host] = data
	p.mu.Unlock()

	return data.TestAgent(u.Path, p.userAgent), nil
}

func (p *PoliteFetcher) limiterFor(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(p.rps, p.burst)
		p.limiters[host] = l
	}
	return l
}
