// Package syncer drives a sync run: it builds the roster index, optionally resumes after the
// last persisted player, and creates or updates every remaining player in order.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/metrics"
	"github.com/JakeFAU/hoops-harvester/internal/progress"
)

var tracer = otel.Tracer("github.com/JakeFAU/hoops-harvester/internal/syncer")

// Indexer builds the merged roster index for a list of seasons.
type Indexer interface {
	MergeAll(ctx context.Context, seasons []string) (harvest.RosterIndex, error)
}

// Scraper turns a profile reference into a snapshot.
type Scraper interface {
	Scrape(ctx context.Context, ref harvest.ProfileReference) (harvest.PlayerSnapshot, error)
}

// Resolver narrows an index to the references that still need syncing.
type Resolver interface {
	Resolve(ctx context.Context, index harvest.RosterIndex) ([]harvest.ProfileReference, error)
}

// Config controls Coordinator behavior.
type Config struct {
	// MaxInFlight bounds how many players are synced at once. Values below 1 mean 1.
	MaxInFlight int
}

// RunConfig describes one run.
type RunConfig struct {
	Seasons []string
	Resume  bool
}

// Summary reports how a run ended.
type Summary struct {
	RunID    string            `json:"run_id"`
	State    harvest.RunState  `json:"state"`
	Players  int               `json:"players"`
	Counts   harvest.RunCounts `json:"counts"`
	Duration time.Duration     `json:"duration"`
}

// Coordinator runs syncs.
type Coordinator struct {
	indexer  Indexer
	scraper  Scraper
	resolver Resolver
	store    harvest.Store
	emitter  progress.Emitter
	clock    harvest.Clock
	ids      harvest.IDGenerator
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Coordinator. A nil resolver disables resume; a nil emitter discards events.
func New(
	indexer Indexer,
	scraper Scraper,
	resolver Resolver,
	store harvest.Store,
	emitter progress.Emitter,
	clock harvest.Clock,
	ids harvest.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = progress.Discard{}
	}
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}
	return &Coordinator{
		indexer:  indexer,
		scraper:  scraper,
		resolver: resolver,
		store:    store,
		emitter:  emitter,
		clock:    clock,
		ids:      ids,
		cfg:      cfg,
		logger:   logger.Named("syncer"),
	}
}

// Run executes one sync. The first transport or store error aborts the run and is returned
// alongside a failed Summary; writes committed before the failure are kept.
func (c *Coordinator) Run(ctx context.Context, rc RunConfig) (Summary, error) {
	runID, err := c.ids.NewID()
	if err != nil {
		return Summary{State: harvest.RunFailed}, fmt.Errorf("start run: %w", err)
	}
	ctx, span := tracer.Start(ctx, "sync.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.StringSlice("seasons", rc.Seasons),
		attribute.Bool("resume", rc.Resume),
	))
	defer span.End()

	started := c.clock.Now()
	logger := c.logger.With(zap.String("run_id", runID))
	logger.Info("sync started", zap.Strings("seasons", rc.Seasons), zap.Bool("resume", rc.Resume))
	c.emitter.Emit(progress.Event{
		RunID:   runID,
		TS:      started,
		Stage:   progress.StageRunStart,
		Seasons: append([]string(nil), rc.Seasons...),
		Resume:  rc.Resume,
	})

	t := &tally{}
	sum := Summary{RunID: runID}
	refs, err := c.prepare(ctx, runID, rc, logger)
	if err == nil {
		sum.Players = len(refs)
		c.setState(runID, harvest.RunIterating, len(refs))
		logger.Info("iterating roster", zap.Int("players", len(refs)))
		err = c.iterate(ctx, runID, refs, t, logger)
	}
	sum.Counts = t.snapshot()
	sum.Duration = c.clock.Now().Sub(started)

	span.SetAttributes(attribute.Int("players", sum.Players))
	if err != nil {
		sum.State = harvest.RunFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		c.emitter.Emit(progress.Event{
			RunID: runID,
			TS:    c.clock.Now(),
			Stage: progress.StageRunError,
			State: harvest.RunFailed,
			Dur:   sum.Duration,
			Note:  err.Error(),
		})
		logger.Error("sync failed", zap.Error(err), zap.Duration("duration", sum.Duration))
		return sum, err
	}
	sum.State = harvest.RunDone
	c.emitter.Emit(progress.Event{
		RunID: runID,
		TS:    c.clock.Now(),
		Stage: progress.StageRunDone,
		State: harvest.RunDone,
		Dur:   sum.Duration,
	})
	logger.Info("sync complete",
		zap.Int("players", sum.Players),
		zap.Int64("created", sum.Counts.Created),
		zap.Int64("exists", sum.Counts.Exists),
		zap.Int64("stats_created", sum.Counts.StatsCreated),
		zap.Int64("stats_updated", sum.Counts.StatsUpdated),
		zap.Int64("skipped", sum.Counts.Skipped),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// prepare builds the merged index and, when resuming, cuts it at the resume cursor.
func (c *Coordinator) prepare(ctx context.Context, runID string, rc RunConfig, logger *zap.Logger) ([]harvest.ProfileReference, error) {
	c.setState(runID, harvest.RunIndexing, 0)
	index, err := c.indexer.MergeAll(ctx, rc.Seasons)
	if err != nil {
		return nil, fmt.Errorf("build roster index: %w", err)
	}
	logger.Info("roster index built", zap.Int("players", index.Len()))
	if !rc.Resume || c.resolver == nil {
		return index.Refs(), nil
	}
	refs, err := c.resolver.Resolve(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("resolve resume cursor: %w", err)
	}
	logger.Info("resuming", zap.Int("skipped_ahead", index.Len()-len(refs)))
	return refs, nil
}

// iterate syncs refs with up to MaxInFlight players in flight. Fetching and parsing overlap,
// but store writes are committed in roster order: a player writes only after every earlier
// player has finished, so the newest season_stats row always ends a contiguous synced prefix
// and the resume cursor never jumps over an unfinished player.
func (c *Coordinator) iterate(
	ctx context.Context,
	runID string,
	refs []harvest.ProfileReference,
	t *tally,
	logger *zap.Logger,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxInFlight)
	prev := make(chan struct{})
	close(prev)
	for _, ref := range refs {
		if gctx.Err() != nil {
			break
		}
		turn := commitTurn{prev: prev, done: make(chan struct{})}
		prev = turn.done
		g.Go(func() error {
			return c.syncPlayer(gctx, runID, ref, turn, t, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// commitTurn orders store writes: prev closes when the previous player has finished and done
// is closed once this player has.
type commitTurn struct {
	prev <-chan struct{}
	done chan struct{}
}

func (ct commitTurn) wait(ctx context.Context) error {
	select {
	case <-ct.prev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) syncPlayer(
	ctx context.Context,
	runID string,
	ref harvest.ProfileReference,
	turn commitTurn,
	t *tally,
	logger *zap.Logger,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	metrics.IncPlayersInFlight()
	defer metrics.DecPlayersInFlight()

	ctx, span := tracer.Start(ctx, "sync.player", trace.WithAttributes(attribute.String("player", ref.Name)))
	defer span.End()
	err := c.syncOne(ctx, runID, ref, turn, t, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "player sync failed")
		return err
	}
	close(turn.done)
	return nil
}

func (c *Coordinator) syncOne(
	ctx context.Context,
	runID string,
	ref harvest.ProfileReference,
	turn commitTurn,
	t *tally,
	logger *zap.Logger,
) error {
	started := c.clock.Now()
	logger = logger.With(zap.String("player", ref.Name))

	snap, err := c.scraper.Scrape(ctx, ref)
	empty := errors.Is(err, harvest.ErrEmptyProfile)
	if err != nil && !empty {
		return fmt.Errorf("sync player %q: %w", ref.Name, err)
	}
	if err := turn.wait(ctx); err != nil {
		return err
	}
	if empty {
		logger.Info("profile has no season rows, skipping")
		c.report(runID, ref.Name, harvest.OutcomeSkipped, started, t)
		return nil
	}

	player, err := c.store.FindPlayerByName(ctx, ref.Name)
	found := err == nil
	if err != nil && !errors.Is(err, harvest.ErrNotFound) {
		return fmt.Errorf("find player %q: %w", ref.Name, err)
	}

	if found {
		c.report(runID, ref.Name, harvest.OutcomeExists, time.Time{}, t)
	} else {
		player, err = c.store.CreatePlayer(ctx, harvest.NewPlayerFromSnapshot(ref.Name, snap))
		if err != nil {
			return fmt.Errorf("create player %q: %w", ref.Name, err)
		}
		logger.Debug("player created", zap.Int64("player_id", player.ID))
		c.report(runID, ref.Name, harvest.OutcomeCreated, time.Time{}, t)
	}

	existing, err := c.store.FindSeasonStatsByPlayerID(ctx, player.ID)
	if err != nil && !errors.Is(err, harvest.ErrNotFound) {
		return fmt.Errorf("find season stats for %q: %w", ref.Name, err)
	}
	if len(existing) == 0 {
		if err := c.store.CreateSeasonStats(ctx, player.ID, snap.Stats); err != nil {
			return fmt.Errorf("create season stats for %q: %w", ref.Name, err)
		}
		c.report(runID, ref.Name, harvest.OutcomeStatsCreated, started, t)
		return nil
	}

	latest, _ := snap.Latest()
	if err := c.store.UpdateSeasonStats(ctx, player.ID, latest); err != nil {
		return fmt.Errorf("update season stats for %q: %w", ref.Name, err)
	}
	logger.Debug("season stats updated", zap.String("season", latest.Season), zap.String("team", latest.Team))
	c.report(runID, ref.Name, harvest.OutcomeStatsUpdated, started, t)
	return nil
}

// report records an outcome. A zero started time leaves the event without a duration.
func (c *Coordinator) report(runID, player string, outcome harvest.Outcome, started time.Time, t *tally) {
	t.add(outcome)
	now := c.clock.Now()
	evt := progress.Event{
		RunID:   runID,
		TS:      now,
		Stage:   progress.StagePlayer,
		Player:  player,
		Outcome: outcome,
	}
	if !started.IsZero() {
		evt.Dur = now.Sub(started)
	}
	c.emitter.Emit(evt)
}

func (c *Coordinator) setState(runID string, state harvest.RunState, players int) {
	c.emitter.Emit(progress.Event{
		RunID:   runID,
		TS:      c.clock.Now(),
		Stage:   progress.StageRunState,
		State:   state,
		Players: players,
	})
}

type tally struct {
	mu     sync.Mutex
	counts harvest.RunCounts
}

func (t *tally) add(o harvest.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.Add(o, 1)
}

func (t *tally) snapshot() harvest.RunCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}
