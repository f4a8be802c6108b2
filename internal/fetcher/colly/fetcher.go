// Package collyfetcher implements harvest.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	Headers       http.Header
}

// Fetcher implements harvest.Fetcher using the Colly collector.
type Fetcher struct {
	cfg       Config
	transport http.RoundTripper
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	return &Fetcher{
		cfg:       cfg,
		transport: newHTTPTransport(),
	}
}

// Fetch executes a single HTTP GET. Network failures and non-2xx responses are returned
// as *harvest.TransportError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (harvest.Page, error) {
	var (
		result   harvest.Page
		fetchErr error
		status   int
	)
	start := time.Now()
	collector, robotsState := f.buildCollector(start, &result, &fetchErr, &status)

	if code, err := f.runCollector(ctx, collector, url, &fetchErr, &status); err != nil {
		metrics.ObserveFetch(url, "error", 0, time.Since(start))
		return harvest.Page{}, &harvest.TransportError{URL: url, StatusCode: code, Err: err}
	}
	metrics.ObserveFetch(url, "ok", len(result.Body), result.Duration)
	if robotsState != nil {
		robotsState.apply(&result)
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	start time.Time,
	result *harvest.Page,
	fetchErr *error,
	status *int,
) (*colly.Collector, *robotsProbeState) {
	// Each fetch gets its own collector so robots state and hooks never leak between
	// concurrent fetches; the pooled transport is shared.
	collector := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var robotsState *robotsProbeState
	baseTransport := f.transport
	if baseTransport == nil {
		baseTransport = newHTTPTransport()
	}
	if f.cfg.RespectRobots {
		robotsState = newRobotsProbeState()
		collector.WithTransport(&robotsAwareTransport{
			base:  baseTransport,
			state: robotsState,
		})
	} else {
		collector.WithTransport(baseTransport)
	}

	f.configureCollectorHooks(collector, start, result, fetchErr, status)
	return collector, robotsState
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *harvest.Page,
	fetchErr *error,
	status *int,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = harvest.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			*status = r.StatusCode
		}
		*fetchErr = err
	})
}

// runCollector returns the response status alongside any error. The hook outputs are read
// only once Visit has returned; on cancellation the visit may still be writing them.
func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	url string,
	fetchErr *error,
	status *int,
) (int, error) {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return *status, fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return *status, fmt.Errorf("colly visit failed: %w", err)
		}
		return 0, nil
	}
}

func (f *Fetcher) copyHeaders(r *colly.Request) {
	if f.cfg.Headers == nil {
		return
	}
	for key, values := range f.cfg.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
