package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

type echoFetcher struct{ calls int }

func (e *echoFetcher) Fetch(_ context.Context, url string) (harvest.Page, error) {
	e.calls++
	return harvest.Page{URL: url}, nil
}

func TestFetcherSpacesRequestsToOneHost(t *testing.T) {
	t.Parallel()

	next := &echoFetcher{}
	f := New(next, Config{RequestsPerSecond: 10, Burst: 1})
	ctx := context.Background()

	_, err := f.Fetch(ctx, "https://stats.test/a.html")
	require.NoError(t, err)

	start := time.Now()
	_, err = f.Fetch(ctx, "https://stats.test/b.html")
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	require.Equal(t, 2, next.calls)
}

func TestFetcherHostsAreIndependent(t *testing.T) {
	t.Parallel()

	f := New(&echoFetcher{}, Config{RequestsPerSecond: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, f.Wait(ctx, "https://a.test/1"))
	start := time.Now()
	require.NoError(t, f.Wait(ctx, "https://b.test/1"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestFetcherUnlimited(t *testing.T) {
	t.Parallel()

	f := New(&echoFetcher{}, Config{})
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 20; i++ {
		require.NoError(t, f.Wait(ctx, "https://stats.test/x"))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestFetcherCanceledWait(t *testing.T) {
	t.Parallel()

	next := &echoFetcher{}
	f := New(next, Config{RequestsPerSecond: 0.01, Burst: 1})
	ctx := context.Background()
	_, err := f.Fetch(ctx, "https://stats.test/a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, "https://stats.test/b")
	require.ErrorIs(t, err, harvest.ErrTransport)
	require.Equal(t, 1, next.calls)
}
