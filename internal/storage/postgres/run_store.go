package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

const runColumns = `id, seasons, resume, state, started_at, finished_at,
	players_created, players_existing, stats_created, stats_updated, players_skipped,
	COALESCE(error_message, '')`

// RunStore implements store.RunRepository using the sync_runs table.
type RunStore struct {
	db DB
}

// NewRunStore wraps db.
func NewRunStore(db DB) (*RunStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{db: db}, nil
}

// StartRun inserts run. Starting an existing id is a no-op.
func (s *RunStore) StartRun(ctx context.Context, run harvest.Run) error {
	if run.ID == "" {
		return fmt.Errorf("start run: empty id")
	}
	state := run.State
	if state == "" {
		state = harvest.RunNotStarted
	}
	query := `
		INSERT INTO sync_runs (id, seasons, resume, state, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO NOTHING;
	`
	seasons := run.Seasons
	if seasons == nil {
		seasons = []string{}
	}
	if _, err := s.db.Exec(ctx, query, run.ID, seasons, run.Resume, string(state), run.StartedAt); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// UpdateRunState moves the run to state.
func (s *RunStore) UpdateRunState(ctx context.Context, runID string, state harvest.RunState, at time.Time) error {
	query := `
		UPDATE sync_runs
		SET state = $1, updated_at = $2
		WHERE id = $3;
	`
	tag, err := s.db.Exec(ctx, query, string(state), at, runID)
	if err != nil {
		return fmt.Errorf("failed to update run state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", runID, harvest.ErrNotFound)
	}
	return nil
}

// AddRunCounts adds delta to the run's outcome counters.
func (s *RunStore) AddRunCounts(ctx context.Context, runID string, delta harvest.RunCounts, at time.Time) error {
	query := `
		UPDATE sync_runs SET
			players_created = players_created + $1,
			players_existing = players_existing + $2,
			stats_created = stats_created + $3,
			stats_updated = stats_updated + $4,
			players_skipped = players_skipped + $5,
			updated_at = $6
		WHERE id = $7;
	`
	tag, err := s.db.Exec(ctx, query,
		delta.Created,
		delta.Exists,
		delta.StatsCreated,
		delta.StatsUpdated,
		delta.Skipped,
		at,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to add run counts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", runID, harvest.ErrNotFound)
	}
	return nil
}

// CompleteRun marks a run finished with a terminal state and optional error message.
func (s *RunStore) CompleteRun(
	ctx context.Context,
	runID string,
	finishedAt time.Time,
	state harvest.RunState,
	errMsg string,
) error {
	query := `
		UPDATE sync_runs
		SET finished_at = $1, state = $2, error_message = NULLIF($3, ''), updated_at = $1
		WHERE id = $4;
	`
	tag, err := s.db.Exec(ctx, query, finishedAt, string(state), errMsg, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", runID, harvest.ErrNotFound)
	}
	return nil
}

// GetRun retrieves a single run by id.
func (s *RunStore) GetRun(ctx context.Context, runID string) (harvest.Run, error) {
	row := s.db.QueryRow(ctx, "SELECT "+runColumns+" FROM sync_runs WHERE id = $1;", runID)
	run, err := scanRun(row)
	if err != nil {
		return harvest.Run{}, fmt.Errorf("run %s: %w", runID, mapNoRows(err))
	}
	return run, nil
}

// ListRuns retrieves runs newest first, with optional state filtering.
func (s *RunStore) ListRuns(ctx context.Context, state *harvest.RunState, limit, offset int) ([]harvest.Run, error) {
	var filter *string
	if state != nil {
		v := string(*state)
		filter = &v
	}
	query := "SELECT " + runColumns + `
		FROM sync_runs
		WHERE ($1::text IS NULL OR state = $1)
		ORDER BY started_at DESC, id DESC
		LIMIT $2 OFFSET $3;`
	rows, err := s.db.Query(ctx, query, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []harvest.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (harvest.Run, error) {
	var (
		run      harvest.Run
		state    string
		finished *time.Time
	)
	err := row.Scan(
		&run.ID,
		&run.Seasons,
		&run.Resume,
		&state,
		&run.StartedAt,
		&finished,
		&run.Counts.Created,
		&run.Counts.Exists,
		&run.Counts.StatsCreated,
		&run.Counts.StatsUpdated,
		&run.Counts.Skipped,
		&run.Error,
	)
	if err != nil {
		return harvest.Run{}, err
	}
	run.State = harvest.RunState(state)
	run.FinishedAt = finished
	return run, nil
}
