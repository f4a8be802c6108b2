// Package memory holds players, season stats and archived blobs in process memory. It
// backs tests and dry runs that should not touch a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

type seasonKey struct {
	playerID int64
	season   string
	team     string
}

// Store implements harvest.Store.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	players  map[int64]harvest.Player
	byName   map[string]int64
	stats    map[int64]harvest.SeasonStats
	bySeason map[seasonKey]int64
	nextPID  int64
	nextSID  int64
}

// NewStore constructs a Store. A nil clock uses the wall clock.
func NewStore(clock harvest.Clock) *Store {
	now := func() time.Time { return time.Now().UTC() }
	if clock != nil {
		now = clock.Now
	}
	return &Store{
		now:      now,
		players:  make(map[int64]harvest.Player),
		byName:   make(map[string]int64),
		stats:    make(map[int64]harvest.SeasonStats),
		bySeason: make(map[seasonKey]int64),
	}
}

// FindPlayerByName returns the player named name.
func (s *Store) FindPlayerByName(_ context.Context, name string) (harvest.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return harvest.Player{}, fmt.Errorf("player %q: %w", name, harvest.ErrNotFound)
	}
	return s.players[id], nil
}

// FindPlayerByID returns the player with id.
func (s *Store) FindPlayerByID(_ context.Context, id int64) (harvest.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return harvest.Player{}, fmt.Errorf("player %d: %w", id, harvest.ErrNotFound)
	}
	return p, nil
}

// CreatePlayer inserts a player. Creating a name that already exists returns the stored
// player unchanged.
func (s *Store) CreatePlayer(_ context.Context, np harvest.NewPlayer) (harvest.Player, error) {
	if np.Name == "" {
		return harvest.Player{}, fmt.Errorf("create player: empty name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byName[np.Name]; ok {
		return s.players[id], nil
	}
	s.nextPID++
	now := s.now()
	p := harvest.Player{
		ID:        s.nextPID,
		Name:      np.Name,
		Age:       np.Age,
		Position:  np.Position,
		ImageURL:  np.ImageURL,
		Team:      np.Team,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.players[p.ID] = p
	s.byName[p.Name] = p.ID
	return p, nil
}

// FindSeasonStatsByPlayerID returns the player's rows in insertion order.
func (s *Store) FindSeasonStatsByPlayerID(_ context.Context, playerID int64) ([]harvest.SeasonStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []harvest.SeasonStats
	for _, row := range s.stats {
		if row.PlayerID == playerID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateSeasonStats stores every record for playerID.
func (s *Store) CreateSeasonStats(_ context.Context, playerID int64, records []harvest.SeasonStatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[playerID]; !ok {
		return fmt.Errorf("create season stats: player %d: %w", playerID, harvest.ErrNotFound)
	}
	for _, rec := range records {
		if err := s.upsertLocked(playerID, rec); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSeasonStats overwrites the row for (playerID, season, team), inserting it when absent.
func (s *Store) UpdateSeasonStats(_ context.Context, playerID int64, rec harvest.SeasonStatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[playerID]; !ok {
		return fmt.Errorf("update season stats: player %d: %w", playerID, harvest.ErrNotFound)
	}
	return s.upsertLocked(playerID, rec)
}

// FindMostRecentSeasonStats returns the row with the highest id.
func (s *Store) FindMostRecentSeasonStats(_ context.Context) (harvest.SeasonStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.stats[s.nextSID]
	if !ok {
		return harvest.SeasonStats{}, fmt.Errorf("most recent season stats: %w", harvest.ErrNotFound)
	}
	return row, nil
}

// Counts reports the number of stored players and season rows.
func (s *Store) Counts() (players, seasons int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players), len(s.stats)
}

func (s *Store) upsertLocked(playerID int64, rec harvest.SeasonStatRecord) error {
	rec, err := harvest.NewSeasonStatRecord(rec)
	if err != nil {
		return err
	}
	key := seasonKey{playerID: playerID, season: rec.Season, team: rec.Team}
	now := s.now()
	if id, ok := s.bySeason[key]; ok {
		row := s.stats[id]
		row.SeasonStatRecord = rec
		row.UpdatedAt = now
		s.stats[id] = row
		return nil
	}
	s.nextSID++
	s.stats[s.nextSID] = harvest.SeasonStats{
		ID:               s.nextSID,
		PlayerID:         playerID,
		SeasonStatRecord: rec,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.bySeason[key] = s.nextSID
	return nil
}
