// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal            *prometheus.CounterVec
	fetchBytesTotal         *prometheus.CounterVec
	fetchDurationSeconds    *prometheus.HistogramVec
	fetchRetriesTotal       *prometheus.CounterVec
	robotsFallbackTotal     *prometheus.CounterVec
	rateLimitDelaysSeconds  *prometheus.HistogramVec
	playersInFlight         prometheus.Gauge
	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDurationSecs *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry. It is safe to call more than
// once; every Observe helper calls it.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetches_total",
				Help: "Total number of page fetches, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_retries_total",
				Help: "Total number of fetch retries, labeled by site.",
			},
			[]string{"site"},
		)

		robotsFallbackTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_robots_fallback_total",
				Help: "Total robots.txt lookups that timed out and fell back to allow-all.",
			},
			[]string{"site"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_rate_limit_delays_seconds",
				Help:    "Histogram of throttle wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)

		playersInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_players_in_flight",
				Help: "Number of players currently being fetched or written.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_http_requests_total",
				Help: "Total number of status API requests, labeled by route and code.",
			},
			[]string{"route", "code"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_http_request_duration_seconds",
				Help:    "Histogram of status API latencies, labeled by route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"route"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from rawURL, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one fetch attempt.
func ObserveFetch(rawURL, outcome string, bytesFetched int, duration time.Duration) {
	Init()
	site := SanitizeSite(rawURL)
	fetchesTotal.WithLabelValues(site, outcome).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
	if duration > 0 {
		fetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
	}
}

// ObserveRetry counts a retried fetch.
func ObserveRetry(rawURL string) {
	Init()
	fetchRetriesTotal.WithLabelValues(SanitizeSite(rawURL)).Inc()
}

// ObserveRobotsFallback counts a robots.txt lookup that fell back to allow-all.
func ObserveRobotsFallback(host string) {
	Init()
	robotsFallbackTotal.WithLabelValues(SanitizeSite(host)).Inc()
}

// ObserveRateLimitDelay records the duration of a throttle wait.
func ObserveRateLimitDelay(site string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// IncPlayersInFlight increments the in-flight players gauge.
func IncPlayersInFlight() {
	Init()
	playersInFlight.Inc()
}

// DecPlayersInFlight decrements the in-flight players gauge.
func DecPlayersInFlight() {
	Init()
	playersInFlight.Dec()
}

// ObserveHTTPRequest records one status API request.
func ObserveHTTPRequest(route string, code string, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(route, code).Inc()
	httpRequestDurationSecs.WithLabelValues(route).Observe(duration.Seconds())
}
