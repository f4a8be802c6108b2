package progress

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

// RunStatus is the live view of the most recent run.
type RunStatus struct {
	harvest.Run
	// Players is the number of references queued for iteration.
	Players int `json:"players"`
	// Processed counts players that reached a final outcome (stats written or skipped).
	Processed  int       `json:"processed"`
	LastPlayer string    `json:"last_player,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tracker is a Sink that keeps the status of the latest run in memory.
type Tracker struct {
	mu      sync.RWMutex
	current *RunStatus
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Current returns the latest run status, if any run has started.
func (t *Tracker) Current() (RunStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return RunStatus{}, false
	}
	out := *t.current
	out.Seasons = append([]string(nil), t.current.Seasons...)
	return out, true
}

// Consume implements Sink.
func (t *Tracker) Consume(_ context.Context, batch []Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, evt := range batch {
		t.apply(evt)
	}
	return nil
}

// Close implements Sink.
func (t *Tracker) Close(context.Context) error {
	return nil
}

func (t *Tracker) apply(evt Event) {
	if evt.Stage == StageRunStart {
		t.current = &RunStatus{
			Run: harvest.Run{
				ID:        evt.RunID,
				Seasons:   append([]string(nil), evt.Seasons...),
				Resume:    evt.Resume,
				State:     harvest.RunNotStarted,
				StartedAt: evt.TS,
			},
			UpdatedAt: evt.TS,
		}
		return
	}
	cur := t.current
	if cur == nil || cur.ID != evt.RunID {
		return
	}
	cur.UpdatedAt = evt.TS
	switch evt.Stage {
	case StageRunState:
		cur.State = evt.State
		if evt.State == harvest.RunIterating {
			cur.Players = evt.Players
		}
	case StagePlayer:
		cur.Counts.Add(evt.Outcome, 1)
		cur.LastPlayer = evt.Player
		if finalOutcome(evt.Outcome) {
			cur.Processed++
		}
	case StageRunDone, StageRunError:
		cur.State = harvest.RunDone
		if evt.Stage == StageRunError {
			cur.State = harvest.RunFailed
			cur.Error = evt.Note
		}
		finished := evt.TS
		cur.FinishedAt = &finished
	}
}

func finalOutcome(o harvest.Outcome) bool {
	switch o {
	case harvest.OutcomeStatsCreated, harvest.OutcomeStatsUpdated, harvest.OutcomeSkipped:
		return true
	default:
		return false
	}
}
