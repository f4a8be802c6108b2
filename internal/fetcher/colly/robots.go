package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/metrics"
)

const (
	robotsReasonTimeout = "robots.txt timed out"
	allowAllRobots      = "User-agent: *\nAllow: /"
)

// robotsBackoff is the wait before each robots.txt retry.
var robotsBackoff = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// robotsAwareTransport retries robots.txt lookups that time out and, when they keep
// timing out, answers with an allow-all policy so the page fetch itself can proceed.
// Every other request passes straight through.
type robotsAwareTransport struct {
	base  http.RoundTripper
	state *robotsProbeState
}

func (t *robotsAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("robots transport: nil request")
	}
	if t.state == nil || !strings.EqualFold(req.URL.Path, "/robots.txt") {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("roundtrip %s: %w", req.URL.Host, err)
		}
		return resp, nil
	}
	return t.state.probe(req, t.base)
}

// robotsProbeState remembers whether the robots.txt lookup for one fetch fell back.
type robotsProbeState struct {
	status harvest.RobotsStatus
	reason string
}

func newRobotsProbeState() *robotsProbeState {
	return &robotsProbeState{}
}

func (s *robotsProbeState) apply(page *harvest.Page) {
	if s == nil || page == nil || s.status == harvest.RobotsStatusUnknown {
		return
	}
	page.RobotsStatus = s.status
	page.RobotsReason = s.reason
}

func (s *robotsProbeState) probe(req *http.Request, base http.RoundTripper) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := base.RoundTrip(req.Clone(req.Context()))
		if err == nil {
			return resp, nil
		}
		if !isTimeout(err) {
			return nil, fmt.Errorf("robots lookup %s: %w", req.URL.Host, err)
		}
		if attempt >= len(robotsBackoff) {
			s.status = harvest.RobotsStatusIndeterminate
			s.reason = robotsReasonTimeout
			metrics.ObserveRobotsFallback(req.URL.Hostname())
			return allowAllResponse(req), nil
		}
		if err := wait(req.Context(), robotsBackoff[attempt]); err != nil {
			return nil, err
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("robots backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func allowAllResponse(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Body:          io.NopCloser(strings.NewReader(allowAllRobots)),
		ContentLength: int64(len(allowAllRobots)),
		Header:        make(http.Header),
		Request:       req,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "tls: handshake timeout")
}
