package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/progress"
	"github.com/JakeFAU/hoops-harvester/internal/store"
)

// StoreSink persists run history via a store.RunRepository. Player outcomes are
// collapsed per run so a batch costs one counter update.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for repo.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

type pendingCounts struct {
	counts harvest.RunCounts
	last   progress.Event
}

// Consume applies batch in order. Counts are flushed before a run completes and at the
// end of the batch. Repository errors are returned verbatim.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	pending := make(map[string]*pendingCounts)
	order := make([]string, 0, 1)

	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			run := harvest.Run{
				ID:        evt.RunID,
				Seasons:   evt.Seasons,
				Resume:    evt.Resume,
				State:     harvest.RunNotStarted,
				StartedAt: evt.TS,
			}
			if err := s.repo.StartRun(ctx, run); err != nil {
				return fmt.Errorf("start run: %w", err)
			}
		case progress.StageRunState:
			if err := s.repo.UpdateRunState(ctx, evt.RunID, evt.State, evt.TS); err != nil {
				return fmt.Errorf("update run state: %w", err)
			}
		case progress.StagePlayer:
			p := pending[evt.RunID]
			if p == nil {
				p = &pendingCounts{}
				pending[evt.RunID] = p
				order = append(order, evt.RunID)
			}
			p.counts.Add(evt.Outcome, 1)
			p.last = evt
		case progress.StageRunDone, progress.StageRunError:
			if err := s.flushRun(ctx, pending, evt.RunID); err != nil {
				return err
			}
			state := harvest.RunDone
			if evt.Stage == progress.StageRunError {
				state = harvest.RunFailed
			}
			if err := s.repo.CompleteRun(ctx, evt.RunID, evt.TS, state, evt.Note); err != nil {
				return fmt.Errorf("complete run: %w", err)
			}
		}
	}
	for _, runID := range order {
		if err := s.flushRun(ctx, pending, runID); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreSink) flushRun(ctx context.Context, pending map[string]*pendingCounts, runID string) error {
	p := pending[runID]
	if p == nil || p.counts.IsZero() {
		return nil
	}
	if err := s.repo.AddRunCounts(ctx, runID, p.counts, p.last.TS); err != nil {
		return fmt.Errorf("add run counts: %w", err)
	}
	s.logger.Debug("run counts persisted", zap.String("run_id", runID), zap.String("last_player", p.last.Player))
	p.counts = harvest.RunCounts{}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
