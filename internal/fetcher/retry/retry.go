// Package retry decorates a harvest.Fetcher with jittered exponential backoff.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/metrics"
)

// Policy decides which failures are retried and how long to wait between attempts.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 2,
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// ShouldRetry reports whether err on the given zero-based attempt is worth retrying.
// Client errors other than 408 and 429 are permanent.
func (p Policy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxRetries {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var terr *harvest.TransportError
	if errors.As(err, &terr) && terr.StatusCode != 0 {
		switch {
		case terr.StatusCode == http.StatusTooManyRequests, terr.StatusCode == http.StatusRequestTimeout:
			return true
		case terr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

// Backoff returns the wait before retry number attempt (zero-based): half of the capped
// exponential delay plus a random jitter of up to the other half.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	half := time.Duration(delay / 2)
	return half + jitter(half)
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// Fetcher retries the wrapped fetcher according to a Policy.
type Fetcher struct {
	next   harvest.Fetcher
	policy Policy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New wraps next.
func New(next harvest.Fetcher, policy Policy, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		next:   next,
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Fetch implements harvest.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, url string) (harvest.Page, error) {
	for attempt := 0; ; attempt++ {
		page, err := f.next.Fetch(ctx, url)
		if err == nil {
			return page, nil
		}
		if !f.policy.ShouldRetry(err, attempt) {
			return harvest.Page{}, err
		}
		wait := f.policy.Backoff(attempt)
		f.logger.Warn("fetch failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		metrics.ObserveRetry(url)
		if err := f.sleep(ctx, wait); err != nil {
			return harvest.Page{}, &harvest.TransportError{URL: url, Err: err}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
