package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
)

func TestTrackerFollowsLatestRun(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	_, ok := tracker.Current()
	require.False(t, ok)

	t0 := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	batch := []Event{
		{RunID: "run-1", TS: t0, Stage: StageRunStart, Seasons: []string{"2021", "2020"}, Resume: true},
		{RunID: "run-1", TS: t0.Add(time.Second), Stage: StageRunState, State: harvest.RunIndexing},
		{RunID: "run-1", TS: t0.Add(2 * time.Second), Stage: StageRunState, State: harvest.RunIterating, Players: 3},
		{RunID: "run-1", TS: t0.Add(3 * time.Second), Stage: StagePlayer, Player: "A", Outcome: harvest.OutcomeCreated},
		{RunID: "run-1", TS: t0.Add(3 * time.Second), Stage: StagePlayer, Player: "A", Outcome: harvest.OutcomeStatsCreated},
		{RunID: "stale", TS: t0.Add(4 * time.Second), Stage: StagePlayer, Player: "Z", Outcome: harvest.OutcomeSkipped},
		{RunID: "run-1", TS: t0.Add(5 * time.Second), Stage: StagePlayer, Player: "B", Outcome: harvest.OutcomeSkipped},
	}
	require.NoError(t, tracker.Consume(context.Background(), batch))

	cur, ok := tracker.Current()
	require.True(t, ok)
	require.Equal(t, "run-1", cur.ID)
	require.Equal(t, harvest.RunIterating, cur.State)
	require.Equal(t, 3, cur.Players)
	require.Equal(t, 2, cur.Processed)
	require.Equal(t, "B", cur.LastPlayer)
	require.Equal(t, harvest.RunCounts{Created: 1, StatsCreated: 1, Skipped: 1}, cur.Counts)
	require.Nil(t, cur.FinishedAt)

	cur.Seasons[0] = "mutated"
	again, _ := tracker.Current()
	require.Equal(t, []string{"2021", "2020"}, again.Seasons)

	require.NoError(t, tracker.Consume(context.Background(), []Event{
		{RunID: "run-1", TS: t0.Add(time.Minute), Stage: StageRunError, Note: "fetch failed"},
	}))
	final, _ := tracker.Current()
	require.Equal(t, harvest.RunFailed, final.State)
	require.Equal(t, "fetch failed", final.Error)
	require.NotNil(t, final.FinishedAt)
	require.Equal(t, t0.Add(time.Minute), *final.FinishedAt)
}
