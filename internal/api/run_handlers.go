package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/hoops-harvester/internal/harvest"
	"github.com/JakeFAU/hoops-harvester/internal/progress"
	"github.com/JakeFAU/hoops-harvester/internal/store"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
	runTimeout      = 3 * time.Second
)

// StatusSource reports the live state of the latest run. progress.Tracker implements it.
type StatusSource interface {
	Current() (progress.RunStatus, bool)
}

// RunHandler exposes read-only run history and live status endpoints.
type RunHandler struct {
	repo    store.RunRepository
	status  StatusSource
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunHandler wires the repository, the live status source and logger. Either source may
// be nil; the matching endpoints then answer 503.
func NewRunHandler(repo store.RunRepository, status StatusSource, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{
		repo:    repo,
		status:  status,
		timeout: runTimeout,
		logger:  logger,
	}
}

// Current handles GET /v1/runs/current. It returns {"run": {...}} for the latest run seen
// by this process, 404 before any run started, or 503 without a status source.
func (h *RunHandler) Current(w http.ResponseWriter, _ *http.Request) {
	if h.status == nil {
		writeError(w, http.StatusServiceUnavailable, "run status unavailable")
		return
	}
	cur, ok := h.status.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no run has started")
		return
	}
	dto := toRunDTO(cur.Run)
	dto.Players = &cur.Players
	dto.Processed = &cur.Processed
	dto.LastPlayer = cur.LastPlayer
	updated := cur.UpdatedAt
	dto.UpdatedAt = &updated
	writeJSON(w, http.StatusOK, map[string]any{"run": dto})
}

// ListRuns handles GET /v1/runs?state=&limit=&offset=. It returns {"runs": [...]} on
// success, 400 for invalid filters, 503 when the repo is unavailable, or 500 if the
// repository call fails.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "run repository unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultRunLimit, maxRunLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var state *harvest.RunState
	if raw := strings.TrimSpace(r.URL.Query().Get("state")); raw != "" {
		parsed, parseErr := harvest.ParseRunState(strings.ToLower(raw))
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid state")
			return
		}
		state = &parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	runs, err := h.repo.ListRuns(ctx, state, limit, offset)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	out := make([]runDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// GetRun handles GET /v1/runs/{run_id}. It returns {"run": {...}} on success, 404 when
// the repository reports harvest.ErrNotFound, 503 if the repo is not initialized, or
// 500 otherwise.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "run repository unavailable")
		return
	}
	runID := strings.TrimSpace(chi.URLParam(r, "run_id"))
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	run, err := h.repo.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, harvest.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("get run failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": toRunDTO(run)})
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = min(val, maxLimit)
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func toRunDTO(run harvest.Run) runDTO {
	return runDTO{
		ID:         run.ID,
		Seasons:    append([]string{}, run.Seasons...),
		Resume:     run.Resume,
		State:      string(run.State),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Counts:     run.Counts,
		Error:      run.Error,
	}
}

type runDTO struct {
	ID         string            `json:"id"`
	Seasons    []string          `json:"seasons"`
	Resume     bool              `json:"resume"`
	State      string            `json:"state"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Counts     harvest.RunCounts `json:"counts"`
	Error      string            `json:"error,omitempty"`
	Players    *int              `json:"players,omitempty"`
	Processed  *int              `json:"processed,omitempty"`
	LastPlayer string            `json:"last_player,omitempty"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
}
