package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

// RunStore implements store.RunRepository in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]harvest.Run
}

// NewRunStore constructs an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]harvest.Run)}
}

// StartRun records run. Starting an existing id is a no-op.
func (s *RunStore) StartRun(_ context.Context, run harvest.Run) error {
	if run.ID == "" {
		return fmt.Errorf("start run: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return nil
	}
	run.Seasons = append([]string(nil), run.Seasons...)
	if run.State == "" {
		run.State = harvest.RunNotStarted
	}
	s.runs[run.ID] = run
	return nil
}

// UpdateRunState moves the run to state.
func (s *RunStore) UpdateRunState(_ context.Context, runID string, state harvest.RunState, _ time.Time) error {
	return s.update(runID, func(r *harvest.Run) {
		r.State = state
	})
}

// AddRunCounts adds delta to the run's counters.
func (s *RunStore) AddRunCounts(_ context.Context, runID string, delta harvest.RunCounts, _ time.Time) error {
	return s.update(runID, func(r *harvest.Run) {
		r.Counts.Merge(delta)
	})
}

// CompleteRun marks the run finished.
func (s *RunStore) CompleteRun(_ context.Context, runID string, finishedAt time.Time, state harvest.RunState, errMsg string) error {
	return s.update(runID, func(r *harvest.Run) {
		r.State = state
		r.FinishedAt = &finishedAt
		r.Error = errMsg
	})
}

// GetRun returns a copy of the run.
func (s *RunStore) GetRun(_ context.Context, runID string) (harvest.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return harvest.Run{}, fmt.Errorf("run %s: %w", runID, harvest.ErrNotFound)
	}
	return copyRun(run), nil
}

// ListRuns returns runs newest first.
func (s *RunStore) ListRuns(_ context.Context, state *harvest.RunState, limit, offset int) ([]harvest.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]harvest.Run, 0, len(s.runs))
	for _, run := range s.runs {
		if state != nil && run.State != *state {
			continue
		}
		out = append(out, copyRun(run))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if offset >= len(out) {
		return []harvest.Run{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *RunStore) update(runID string, fn func(*harvest.Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, harvest.ErrNotFound)
	}
	fn(&run)
	s.runs[runID] = run
	return nil
}

func copyRun(run harvest.Run) harvest.Run {
	run.Seasons = append([]string(nil), run.Seasons...)
	if run.FinishedAt != nil {
		finished := *run.FinishedAt
		run.FinishedAt = &finished
	}
	return run
}
