package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

// Stage denotes the kind of milestone an Event records.
type Stage string

// Supported stages.
const (
	StageRunStart Stage = "RUN_START"
	StageRunState Stage = "RUN_STATE"
	StagePlayer   Stage = "PLAYER"
	StageRunDone  Stage = "RUN_DONE"
	StageRunError Stage = "RUN_ERROR"
)

// Event is one progress record.
type Event struct {
	RunID string    `json:"run_id"`
	TS    time.Time `json:"ts"`
	Stage Stage     `json:"stage"`
	// State is set on RUN_STATE and on terminal events.
	State harvest.RunState `json:"state,omitempty"`
	// Seasons and Resume describe the run on RUN_START.
	Seasons []string `json:"seasons,omitempty"`
	Resume  bool     `json:"resume,omitempty"`
	// Players is the number of references queued when iteration starts.
	Players int `json:"players,omitempty"`
	// Player and Outcome are set on PLAYER events.
	Player  string          `json:"player,omitempty"`
	Outcome harvest.Outcome `json:"outcome,omitempty"`
	// Dur is the player's processing time, or the run's wall time on terminal events.
	Dur  time.Duration `json:"dur,omitempty"`
	Note string        `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageRunState:
		if e.State == "" {
			return errors.New("run state event requires state")
		}
	case StagePlayer:
		if e.Player == "" || e.Outcome == "" {
			return errors.New("player event requires player and outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// Terminal reports whether the event ends its run.
func (e Event) Terminal() bool {
	return e.Stage == StageRunDone || e.Stage == StageRunError
}
