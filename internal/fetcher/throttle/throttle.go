// Package throttle limits how fast a harvest.Fetcher hits each host.
package throttle

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/metrics"
)

// Config holds the per-host token bucket settings. A non-positive RequestsPerSecond
// disables throttling.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// Fetcher waits for a per-host token before delegating to the wrapped fetcher.
type Fetcher struct {
	next harvest.Fetcher

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New wraps next.
func New(next harvest.Fetcher, cfg Config) *Fetcher {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Fetcher{
		next:     next,
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Fetch implements harvest.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (harvest.Page, error) {
	if err := f.Wait(ctx, rawURL); err != nil {
		return harvest.Page{}, &harvest.TransportError{URL: rawURL, Err: err}
	}
	return f.next.Fetch(ctx, rawURL)
}

// Wait blocks until a token is available for the URL's host.
func (f *Fetcher) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)
	limiter := f.limiterFor(host)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, waited)
	}
	return nil
}

func (f *Fetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(f.limit, f.burst)
		f.limiters[host] = limiter
	}
	return limiter
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
