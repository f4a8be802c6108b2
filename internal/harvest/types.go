// Package harvest defines the domain types and collaborator interfaces shared by the
// roster, profile, resume and sync subsystems.
package harvest

import (
	"fmt"
	"time"
)

// ProfileReference points at one player's profile page.
type ProfileReference struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SeasonStatRecord is one player-season row of per-game statistics.
//
// Records are built with NewSeasonStatRecord so that a row without a team is never
// constructed.
type SeasonStatRecord struct {
	Season   string `json:"season"`
	Position string `json:"position"`
	Team     string `json:"team"`

	GamesPlayed  int `json:"games_played"`
	GamesStarted int `json:"games_started"`

	MinutesPlayed               float64 `json:"minutes_played"`
	FieldGoals                  float64 `json:"field_goals"`
	FieldGoalAttempts           float64 `json:"field_goal_attempts"`
	FieldGoalPct                float64 `json:"field_goal_pct"`
	ThreePointFieldGoals        float64 `json:"three_point_field_goals"`
	ThreePointFieldGoalAttempts float64 `json:"three_point_field_goal_attempts"`
	ThreePointFieldGoalPct      float64 `json:"three_point_field_goal_pct"`
	TwoPointFieldGoals          float64 `json:"two_point_field_goals"`
	TwoPointFieldGoalAttempts   float64 `json:"two_point_field_goal_attempts"`
	TwoPointFieldGoalPct        float64 `json:"two_point_field_goal_pct"`
	EffectiveFieldGoalPct       float64 `json:"effective_field_goal_pct"`
	FreeThrows                  float64 `json:"free_throws"`
	FreeThrowAttempts           float64 `json:"free_throw_attempts"`
	FreeThrowPct                float64 `json:"free_throw_pct"`
	OffensiveRebounds           float64 `json:"offensive_rebounds"`
	DefensiveRebounds           float64 `json:"defensive_rebounds"`
	TotalRebounds               float64 `json:"total_rebounds"`
	Assists                     float64 `json:"assists"`
	Steals                      float64 `json:"steals"`
	Blocks                      float64 `json:"blocks"`
	Turnovers                   float64 `json:"turnovers"`
	Fouls                       float64 `json:"fouls"`
	Points                      float64 `json:"points"`
}

// NewSeasonStatRecord validates r and returns it. A record must carry a team: rows for
// seasons the player did not play are dropped before they get here.
func NewSeasonStatRecord(r SeasonStatRecord) (SeasonStatRecord, error) {
	if r.Team == "" {
		return SeasonStatRecord{}, fmt.Errorf("season %q: %w", r.Season, ErrMissingTeam)
	}
	return r, nil
}

// PlayerSnapshot is the scraped view of one player. Age, Position and CurrentTeam come from
// the last retained season row.
type PlayerSnapshot struct {
	Age         int                `json:"age"`
	Position    string             `json:"position"`
	CurrentTeam string             `json:"current_team"`
	ImageURL    string             `json:"image_url"`
	Stats       []SeasonStatRecord `json:"stats"`
}

// Latest returns the last season record and whether one exists.
func (s PlayerSnapshot) Latest() (SeasonStatRecord, bool) {
	if len(s.Stats) == 0 {
		return SeasonStatRecord{}, false
	}
	return s.Stats[len(s.Stats)-1], true
}

// Player is the persisted player identity record.
type Player struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Position  string    `json:"position"`
	ImageURL  string    `json:"image_url"`
	Team      string    `json:"team"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlayer carries the attributes needed to create a Player.
type NewPlayer struct {
	Name     string
	Age      int
	Position string
	ImageURL string
	Team     string
}

// NewPlayerFromSnapshot builds the create request for name from a scraped snapshot.
func NewPlayerFromSnapshot(name string, snap PlayerSnapshot) NewPlayer {
	return NewPlayer{
		Name:     name,
		Age:      snap.Age,
		Position: snap.Position,
		ImageURL: snap.ImageURL,
		Team:     snap.CurrentTeam,
	}
}

// SeasonStats is a persisted season row owned by a player.
type SeasonStats struct {
	ID       int64 `json:"id"`
	PlayerID int64 `json:"player_id"`
	SeasonStatRecord
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is a fetched document.
type Page struct {
	URL          string
	StatusCode   int
	Body         []byte
	Duration     time.Duration
	RobotsStatus RobotsStatus
	RobotsReason string
}

// RobotsStatus records how robots.txt was evaluated for a fetch.
type RobotsStatus string

// Robots evaluation outcomes.
const (
	RobotsStatusUnknown       RobotsStatus = ""
	RobotsStatusIndeterminate RobotsStatus = "indeterminate"
)
