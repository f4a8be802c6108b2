package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://www.Basketball-Reference.com/players/a/alpha01.html", "www.basketball-reference.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "127.0.0.1:8080", "127.0.0.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveHelpersInitLazily(t *testing.T) {
	ObserveFetch("https://stats.test/a.html", "ok", 512, 10*time.Millisecond)
	ObserveFetch("https://stats.test/b.html", "ok", 0, 0)
	ObserveRetry("https://stats.test/b.html")

	if got := testutil.ToFloat64(fetchesTotal.WithLabelValues("stats.test", "ok")); got < 2 {
		t.Errorf("expected fetch counter >= 2, got %f", got)
	}
	if got := testutil.ToFloat64(fetchRetriesTotal.WithLabelValues("stats.test")); got < 1 {
		t.Errorf("expected retry counter >= 1, got %f", got)
	}
	if got := testutil.ToFloat64(fetchBytesTotal.WithLabelValues("stats.test")); got < 512 {
		t.Errorf("expected byte counter >= 512, got %f", got)
	}
}

func TestPlayersInFlightGauge(t *testing.T) {
	Init()
	before := testutil.ToFloat64(playersInFlight)
	IncPlayersInFlight()
	if got := testutil.ToFloat64(playersInFlight); got != before+1 {
		t.Errorf("expected gauge %f, got %f", before+1, got)
	}
	DecPlayersInFlight()
	if got := testutil.ToFloat64(playersInFlight); got != before {
		t.Errorf("expected gauge %f, got %f", before, got)
	}
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://www.basketball-reference.com", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
