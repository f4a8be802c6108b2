package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/progress"
)

// PrometheusSink exports run and player progress. It owns its collectors.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runsActive    prometheus.Gauge
	runDuration   *prometheus.HistogramVec
	runState      *prometheus.GaugeVec

	players        *prometheus.CounterVec
	playerDuration prometheus.Histogram
	queued         prometheus.Gauge

	active *activeRuns
}

// NewPrometheusSink registers the collectors against reg, or the default registerer.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvester_sync_runs_started_total",
			Help: "Sync runs started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_sync_runs_completed_total",
			Help: "Sync runs completed partitioned by result.",
		}, []string{"result"}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvester_sync_runs_active",
			Help: "Sync runs currently in progress.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_sync_run_duration_seconds",
			Help:    "Wall time per completed sync run.",
			Buckets: []float64{10, 60, 300, 900, 1800, 3600, 7200, 14400},
		}, []string{"result"}),
		runState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harvester_sync_run_state",
			Help: "1 for the state the latest run is in, 0 otherwise.",
		}, []string{"state"}),
		players: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_sync_player_outcomes_total",
			Help: "Per-player sync outcomes.",
		}, []string{"outcome"}),
		playerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "harvester_sync_player_duration_seconds",
			Help:    "Time to scrape and write one player.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harvester_sync_players_queued",
			Help: "Players queued by the latest run when iteration began.",
		}),
		active: &activeRuns{ids: make(map[string]struct{})},
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runsActive,
		s.runDuration,
		s.runState,
		s.players,
		s.playerDuration,
		s.queued,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
			if s.active.start(evt.RunID) {
				s.runsActive.Inc()
			}
			s.setState(harvest.RunNotStarted)
		case progress.StageRunState:
			s.setState(evt.State)
			if evt.State == harvest.RunIterating {
				s.queued.Set(float64(evt.Players))
			}
		case progress.StagePlayer:
			s.players.WithLabelValues(string(evt.Outcome)).Inc()
			if evt.Dur > 0 && evt.Outcome != harvest.OutcomeCreated && evt.Outcome != harvest.OutcomeExists {
				s.playerDuration.Observe(evt.Dur.Seconds())
			}
		case progress.StageRunDone, progress.StageRunError:
			result, state := "success", harvest.RunDone
			if evt.Stage == progress.StageRunError {
				result, state = "error", harvest.RunFailed
			}
			s.runsCompleted.WithLabelValues(result).Inc()
			if evt.Dur > 0 {
				s.runDuration.WithLabelValues(result).Observe(evt.Dur.Seconds())
			}
			s.setState(state)
			if s.active.complete(evt.RunID) {
				s.runsActive.Dec()
			}
		}
	}
	return nil
}

func (s *PrometheusSink) setState(state harvest.RunState) {
	for _, st := range []harvest.RunState{
		harvest.RunNotStarted,
		harvest.RunIndexing,
		harvest.RunIterating,
		harvest.RunDone,
		harvest.RunFailed,
	} {
		v := 0.0
		if st == state {
			v = 1
		}
		s.runState.WithLabelValues(string(st)).Set(v)
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type activeRuns struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func (a *activeRuns) start(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.ids[id]; ok {
		return false
	}
	a.ids[id] = struct{}{}
	return true
}

func (a *activeRuns) complete(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.ids[id]; !ok {
		return false
	}
	delete(a.ids, id)
	return true
}
