package retry

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

type countingFetcher struct {
	mu       sync.Mutex
	attempts int
	fails    int
	err      error
}

func (f *countingFetcher) Fetch(_ context.Context, url string) (harvest.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.fails {
		return harvest.Page{}, f.err
	}
	return harvest.Page{URL: url, StatusCode: http.StatusOK, Body: []byte("ok")}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestFetcherRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	next := &countingFetcher{
		fails: 2,
		err:   &harvest.TransportError{URL: "u", StatusCode: http.StatusServiceUnavailable, Err: errors.New("503")},
	}
	f := New(next, Policy{MaxRetries: 3, BaseDelay: time.Millisecond}, zap.NewNop())
	f.sleep = noSleep

	page, err := f.Fetch(context.Background(), "https://stats.test/a.html")
	require.NoError(t, err)
	require.Equal(t, "ok", string(page.Body))
	require.Equal(t, 3, next.attempts)
}

func TestFetcherGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	next := &countingFetcher{
		fails: 10,
		err:   &harvest.TransportError{URL: "u", StatusCode: http.StatusTooManyRequests, Err: errors.New("429")},
	}
	f := New(next, Policy{MaxRetries: 2, BaseDelay: time.Millisecond}, nil)
	f.sleep = noSleep

	_, err := f.Fetch(context.Background(), "https://stats.test/a.html")
	require.ErrorIs(t, err, harvest.ErrTransport)
	require.Equal(t, 3, next.attempts)
}

func TestFetcherDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	next := &countingFetcher{
		fails: 10,
		err:   &harvest.TransportError{URL: "u", StatusCode: http.StatusNotFound, Err: errors.New("404")},
	}
	f := New(next, DefaultPolicy(), nil)
	f.sleep = noSleep

	_, err := f.Fetch(context.Background(), "https://stats.test/a.html")
	require.Error(t, err)
	require.Equal(t, 1, next.attempts)
}

func TestFetcherStopsWhenSleepIsCanceled(t *testing.T) {
	t.Parallel()

	next := &countingFetcher{fails: 10, err: &harvest.TransportError{URL: "u", Err: errors.New("reset")}}
	f := New(next, Policy{MaxRetries: 5, BaseDelay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, "https://stats.test/a.html")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, harvest.ErrTransport)
	require.Equal(t, 1, next.attempts)
}

func TestPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	p := Policy{MaxRetries: 2}
	require.False(t, p.ShouldRetry(nil, 0))
	require.False(t, p.ShouldRetry(context.Canceled, 0))
	require.True(t, p.ShouldRetry(errors.New("connection reset"), 0))
	require.False(t, p.ShouldRetry(errors.New("connection reset"), 2))
	require.True(t, p.ShouldRetry(&harvest.TransportError{StatusCode: http.StatusBadGateway}, 1))
	require.False(t, p.ShouldRetry(&harvest.TransportError{StatusCode: http.StatusForbidden}, 0))
}

func TestPolicyBackoffIsCapped(t *testing.T) {
	t.Parallel()

	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 400 * time.Millisecond}
	for attempt := 0; attempt < 6; attempt++ {
		d := p.Backoff(attempt)
		require.GreaterOrEqual(t, d, time.Duration(0))
		require.LessOrEqual(t, d, 400*time.Millisecond)
	}
	require.GreaterOrEqual(t, p.Backoff(5), 200*time.Millisecond)
}
