package store

import (
	"context"
	"time"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

// RunRepository persists sync run history. Lookups that match nothing return
// harvest.ErrNotFound.
type RunRepository interface {
	// StartRun records a new run in the not_started state.
	StartRun(ctx context.Context, run harvest.Run) error
	// UpdateRunState moves a run to state.
	UpdateRunState(ctx context.Context, runID string, state harvest.RunState, at time.Time) error
	// AddRunCounts adds outcome deltas to a run's counters.
	AddRunCounts(ctx context.Context, runID string, delta harvest.RunCounts, at time.Time) error
	// CompleteRun marks the run finished with a terminal state and optional error text.
	CompleteRun(ctx context.Context, runID string, finishedAt time.Time, state harvest.RunState, errMsg string) error
	// GetRun returns one run.
	GetRun(ctx context.Context, runID string) (harvest.Run, error)
	// ListRuns returns runs newest first, optionally filtered by state.
	ListRuns(ctx context.Context, state *harvest.RunState, limit, offset int) ([]harvest.Run, error)
}
