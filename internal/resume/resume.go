// Package resume finds where an interrupted sync should pick up.
//
// The cursor is derived from persisted state: the newest season stats row names the
// last player whose write completed, and iteration resumes with the player after it.
package resume

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

// MissPolicy decides what happens when the last synced player is not in the index.
type MissPolicy string

const (
	// MissFail surfaces harvest.ErrResumeMiss.
	MissFail MissPolicy = "fail"
	// MissRescan logs the miss and resumes from the start of the index.
	MissRescan MissPolicy = "rescan"
)

// ParseMissPolicy validates a configured policy. Empty means MissFail.
func ParseMissPolicy(s string) (MissPolicy, error) {
	switch MissPolicy(s) {
	case "", MissFail:
		return MissFail, nil
	case MissRescan:
		return MissRescan, nil
	default:
		return "", fmt.Errorf("unknown resume miss policy %q", s)
	}
}

// Resolver computes resume points from a harvest.Store.
type Resolver struct {
	store  harvest.Store
	policy MissPolicy
	logger *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(store harvest.Store, policy MissPolicy, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = MissFail
	}
	return &Resolver{store: store, policy: policy, logger: logger.Named("resume")}
}

// Cursor describes a resolved resume point.
type Cursor struct {
	// LastPlayer is the name of the last synced player, empty when nothing was stored.
	LastPlayer string
	// Position is LastPlayer's index in the roster, -1 when absent.
	Position  int
	Remaining []harvest.ProfileReference
}

// Resolve returns the references strictly after the last synced player, in index order.
func (r *Resolver) Resolve(ctx context.Context, index harvest.RosterIndex) ([]harvest.ProfileReference, error) {
	cur, err := r.Cursor(ctx, index)
	if err != nil {
		return nil, err
	}
	return cur.Remaining, nil
}

// Cursor resolves the resume point and reports how it was found.
func (r *Resolver) Cursor(ctx context.Context, index harvest.RosterIndex) (Cursor, error) {
	refs := index.Refs()
	last, err := r.store.FindMostRecentSeasonStats(ctx)
	if errors.Is(err, harvest.ErrNotFound) {
		r.logger.Info("no synced season stats, resuming from the start", zap.Int("players", len(refs)))
		return Cursor{Position: -1, Remaining: refs}, nil
	}
	if err != nil {
		return Cursor{}, fmt.Errorf("find most recent season stats: %w", err)
	}

	owner, err := r.store.FindPlayerByID(ctx, last.PlayerID)
	if err != nil {
		return Cursor{}, fmt.Errorf("find owner of season stats %d: %w", last.ID, err)
	}

	pos := index.IndexOf(owner.Name)
	if pos < 0 {
		if r.policy != MissRescan {
			return Cursor{LastPlayer: owner.Name, Position: -1},
				fmt.Errorf("resume after %q: %w", owner.Name, harvest.ErrResumeMiss)
		}
		r.logger.Warn("last synced player not in roster index, rescanning",
			zap.String("player", owner.Name),
			zap.Int("players", len(refs)),
		)
		return Cursor{LastPlayer: owner.Name, Position: -1, Remaining: refs}, nil
	}

	remaining := refs[pos+1:]
	r.logger.Info("resuming after last synced player",
		zap.String("player", owner.Name),
		zap.Int("position", pos),
		zap.Int("remaining", len(remaining)),
	)
	return Cursor{LastPlayer: owner.Name, Position: pos, Remaining: remaining}, nil
}
