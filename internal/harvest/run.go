package harvest

import (
	"fmt"
	"time"
)

// RunState is the lifecycle position of a sync run.
type RunState string

// Run lifecycle. A run moves forward only: not_started, indexing, iterating, then
// done or failed.
const (
	RunNotStarted RunState = "not_started"
	RunIndexing   RunState = "indexing"
	RunIterating  RunState = "iterating"
	RunDone       RunState = "done"
	RunFailed     RunState = "failed"
)

// Terminal reports whether the run has finished.
func (s RunState) Terminal() bool {
	return s == RunDone || s == RunFailed
}

// ParseRunState validates s.
func ParseRunState(s string) (RunState, error) {
	switch st := RunState(s); st {
	case RunNotStarted, RunIndexing, RunIterating, RunDone, RunFailed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown run state %q", s)
	}
}

// Outcome is a per-player progress result.
type Outcome string

// Per-player outcomes. A synced player reports one player outcome (created or exists)
// and one stats outcome.
const (
	OutcomeCreated      Outcome = "created"
	OutcomeExists       Outcome = "exists"
	OutcomeStatsCreated Outcome = "stats_created"
	OutcomeStatsUpdated Outcome = "stats_updated"
	OutcomeSkipped      Outcome = "skipped"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{
	OutcomeCreated,
	OutcomeExists,
	OutcomeStatsCreated,
	OutcomeStatsUpdated,
	OutcomeSkipped,
}

// RunCounts tallies outcomes for a run.
type RunCounts struct {
	Created      int64 `json:"created"`
	Exists       int64 `json:"exists"`
	StatsCreated int64 `json:"stats_created"`
	StatsUpdated int64 `json:"stats_updated"`
	Skipped      int64 `json:"skipped"`
}

// Add increments the counter for o by n.
func (c *RunCounts) Add(o Outcome, n int64) {
	switch o {
	case OutcomeCreated:
		c.Created += n
	case OutcomeExists:
		c.Exists += n
	case OutcomeStatsCreated:
		c.StatsCreated += n
	case OutcomeStatsUpdated:
		c.StatsUpdated += n
	case OutcomeSkipped:
		c.Skipped += n
	}
}

// Merge adds other into c.
func (c *RunCounts) Merge(other RunCounts) {
	c.Created += other.Created
	c.Exists += other.Exists
	c.StatsCreated += other.StatsCreated
	c.StatsUpdated += other.StatsUpdated
	c.Skipped += other.Skipped
}

// IsZero reports whether no outcome was counted.
func (c RunCounts) IsZero() bool {
	return c == RunCounts{}
}

// Run is the persisted record of one sync run.
type Run struct {
	ID         string     `json:"id"`
	Seasons    []string   `json:"seasons"`
	Resume     bool       `json:"resume"`
	State      RunState   `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Counts     RunCounts  `json:"counts"`
	Error      string     `json:"error,omitempty"`
}
