package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

const playerColumns = "id, name, age, position, image_url, team, created_at, updated_at"

// statColumns lists the season_stats record columns in SeasonStatRecord field order.
var statColumns = []string{
	"season",
	"position",
	"team",
	"games_played",
	"games_started",
	"minutes_played",
	"field_goals",
	"field_goal_attempts",
	"field_goal_pct",
	"three_point_field_goals",
	"three_point_field_goal_attempts",
	"three_point_field_goal_pct",
	"two_point_field_goals",
	"two_point_field_goal_attempts",
	"two_point_field_goal_pct",
	"effective_field_goal_pct",
	"free_throws",
	"free_throw_attempts",
	"free_throw_pct",
	"offensive_rebounds",
	"defensive_rebounds",
	"total_rebounds",
	"assists",
	"steals",
	"blocks",
	"turnovers",
	"fouls",
	"points",
}

var (
	selectStatsSQL = "SELECT id, player_id, " + strings.Join(statColumns, ", ") +
		", created_at, updated_at FROM season_stats"
	upsertStatsSQL = buildUpsertStats()
)

func buildUpsertStats() string {
	cols := append([]string{"player_id"}, statColumns...)
	cols = append(cols, "created_at", "updated_at")
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	var sets []string
	for _, c := range statColumns {
		if c == "season" || c == "team" {
			continue
		}
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	sets = append(sets, "updated_at = EXCLUDED.updated_at")
	return fmt.Sprintf(
		"INSERT INTO season_stats (%s) VALUES (%s) ON CONFLICT (player_id, season, team) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(sets, ", "),
	)
}

// Store implements harvest.Store on Postgres.
type Store struct {
	db  DB
	now func() time.Time
}

// NewStore wraps db. A nil clock uses the wall clock.
func NewStore(db DB, clock harvest.Clock) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	now := func() time.Time { return time.Now().UTC() }
	if clock != nil {
		now = clock.Now
	}
	return &Store{db: db, now: now}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// FindPlayerByName returns the player named name.
func (s *Store) FindPlayerByName(ctx context.Context, name string) (harvest.Player, error) {
	row := s.db.QueryRow(ctx, "SELECT "+playerColumns+" FROM players WHERE name = $1", name)
	p, err := scanPlayer(row)
	if err != nil {
		return harvest.Player{}, fmt.Errorf("find player %q: %w", name, mapNoRows(err))
	}
	return p, nil
}

// FindPlayerByID returns the player with id.
func (s *Store) FindPlayerByID(ctx context.Context, id int64) (harvest.Player, error) {
	row := s.db.QueryRow(ctx, "SELECT "+playerColumns+" FROM players WHERE id = $1", id)
	p, err := scanPlayer(row)
	if err != nil {
		return harvest.Player{}, fmt.Errorf("find player %d: %w", id, mapNoRows(err))
	}
	return p, nil
}

// CreatePlayer inserts np. Creating a name that already exists returns the stored player.
func (s *Store) CreatePlayer(ctx context.Context, np harvest.NewPlayer) (harvest.Player, error) {
	if np.Name == "" {
		return harvest.Player{}, fmt.Errorf("create player: empty name")
	}
	now := s.now()
	row := s.db.QueryRow(ctx, `
INSERT INTO players (name, age, position, image_url, team, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING `+playerColumns,
		np.Name, np.Age, np.Position, np.ImageURL, np.Team, now, now,
	)
	p, err := scanPlayer(row)
	if err != nil {
		return harvest.Player{}, fmt.Errorf("create player %q: %w", np.Name, err)
	}
	return p, nil
}

// FindSeasonStatsByPlayerID returns the player's rows ordered by id.
func (s *Store) FindSeasonStatsByPlayerID(ctx context.Context, playerID int64) ([]harvest.SeasonStats, error) {
	rows, err := s.db.Query(ctx, selectStatsSQL+" WHERE player_id = $1 ORDER BY id", playerID)
	if err != nil {
		return nil, fmt.Errorf("find season stats for player %d: %w", playerID, err)
	}
	defer rows.Close()

	out := []harvest.SeasonStats{}
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scan season stats row: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate season stats: %w", err)
	}
	return out, nil
}

// CreateSeasonStats writes every record for playerID in one transaction.
func (s *Store) CreateSeasonStats(ctx context.Context, playerID int64, records []harvest.SeasonStatRecord) error {
	for _, rec := range records {
		if _, err := harvest.NewSeasonStatRecord(rec); err != nil {
			return fmt.Errorf("create season stats: %w", err)
		}
	}
	now := s.now()
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, rec := range records {
			if _, err := tx.Exec(ctx, upsertStatsSQL, statArgs(playerID, rec, now)...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create season stats for player %d: %w", playerID, mapForeignKey(err))
	}
	return nil
}

// UpdateSeasonStats upserts the row for (playerID, season, team).
func (s *Store) UpdateSeasonStats(ctx context.Context, playerID int64, rec harvest.SeasonStatRecord) error {
	if _, err := harvest.NewSeasonStatRecord(rec); err != nil {
		return fmt.Errorf("update season stats: %w", err)
	}
	if _, err := s.db.Exec(ctx, upsertStatsSQL, statArgs(playerID, rec, s.now())...); err != nil {
		return fmt.Errorf("update season stats for player %d: %w", playerID, mapForeignKey(err))
	}
	return nil
}

// FindMostRecentSeasonStats returns the row with the highest id.
func (s *Store) FindMostRecentSeasonStats(ctx context.Context) (harvest.SeasonStats, error) {
	row := s.db.QueryRow(ctx, selectStatsSQL+" ORDER BY id DESC LIMIT 1")
	st, err := scanStats(row)
	if err != nil {
		return harvest.SeasonStats{}, fmt.Errorf("most recent season stats: %w", mapNoRows(err))
	}
	return st, nil
}

func scanPlayer(row pgx.Row) (harvest.Player, error) {
	var p harvest.Player
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Age,
		&p.Position,
		&p.ImageURL,
		&p.Team,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func scanStats(row pgx.Row) (harvest.SeasonStats, error) {
	var st harvest.SeasonStats
	r := &st.SeasonStatRecord
	err := row.Scan(
		&st.ID,
		&st.PlayerID,
		&r.Season,
		&r.Position,
		&r.Team,
		&r.GamesPlayed,
		&r.GamesStarted,
		&r.MinutesPlayed,
		&r.FieldGoals,
		&r.FieldGoalAttempts,
		&r.FieldGoalPct,
		&r.ThreePointFieldGoals,
		&r.ThreePointFieldGoalAttempts,
		&r.ThreePointFieldGoalPct,
		&r.TwoPointFieldGoals,
		&r.TwoPointFieldGoalAttempts,
		&r.TwoPointFieldGoalPct,
		&r.EffectiveFieldGoalPct,
		&r.FreeThrows,
		&r.FreeThrowAttempts,
		&r.FreeThrowPct,
		&r.OffensiveRebounds,
		&r.DefensiveRebounds,
		&r.TotalRebounds,
		&r.Assists,
		&r.Steals,
		&r.Blocks,
		&r.Turnovers,
		&r.Fouls,
		&r.Points,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	return st, err
}

// statArgs returns the upsert arguments: player_id, the record columns, then timestamps.
func statArgs(playerID int64, r harvest.SeasonStatRecord, now time.Time) []any {
	return []any{
		playerID,
		r.Season,
		r.Position,
		r.Team,
		r.GamesPlayed,
		r.GamesStarted,
		r.MinutesPlayed,
		r.FieldGoals,
		r.FieldGoalAttempts,
		r.FieldGoalPct,
		r.ThreePointFieldGoals,
		r.ThreePointFieldGoalAttempts,
		r.ThreePointFieldGoalPct,
		r.TwoPointFieldGoals,
		r.TwoPointFieldGoalAttempts,
		r.TwoPointFieldGoalPct,
		r.EffectiveFieldGoalPct,
		r.FreeThrows,
		r.FreeThrowAttempts,
		r.FreeThrowPct,
		r.OffensiveRebounds,
		r.DefensiveRebounds,
		r.TotalRebounds,
		r.Assists,
		r.Steals,
		r.Blocks,
		r.Turnovers,
		r.Fouls,
		r.Points,
		now,
		now,
	}
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return harvest.ErrNotFound
	}
	return err
}

func mapForeignKey(err error) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %w", harvest.ErrNotFound, err)
	}
	return err
}
