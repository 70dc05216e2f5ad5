package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jhango/pricesync/internal/pricing"
	"github.com/jhango/pricesync/internal/rates"
	"github.com/jhango/pricesync/internal/updater"
	"github.com/jhango/pricesync/pkg/logger"
)

// RunRunner executes one price update run on behalf of a request.
type RunRunner func(r *http.Request, params updater.Params) (*updater.RunReport, error)

// RunsHandler serves run history and accepts manual run triggers.
type RunsHandler struct {
	repository *updater.Repository
	runner     RunRunner
	logger     *logger.Logger
}

// NewRunsHandler creates the runs handler. The repository may be nil when
// no database is configured; history endpoints then return 503.
func NewRunsHandler(repo *updater.Repository, runner RunRunner, log *logger.Logger) *RunsHandler {
	return &RunsHandler{repository: repo, runner: runner, logger: log}
}

// List returns recent runs, newest first. ?limit= caps the page size.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repository == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.repository.List(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Run list failed")
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// Latest returns the most recent run with its outcomes.
func (h *RunsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.repository == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	run, err := h.repository.Latest(r.Context())
	if errors.Is(err, updater.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Latest run lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Get returns one run by id with its outcomes.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.repository == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}

	id := mux.Vars(r)["id"]
	run, err := h.repository.Get(r.Context(), id)
	if errors.Is(err, updater.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Run lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// triggerRequest is the POST /api/runs payload.
type triggerRequest struct {
	Mode       string  `json:"mode"`
	GoldRate   float64 `json:"gold_rate"`
	SilverRate float64 `json:"silver_rate"`
	Include    string  `json:"include_handles"`
	Exclude    string  `json:"exclude_handles"`
	Overrides  string  `json:"stone_overrides"`
}

// Trigger starts a run synchronously and returns its report.
func (h *RunsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "run trigger not configured")
		return
	}

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode := updater.Mode(req.Mode)
	if mode == "" {
		mode = updater.ModeManual
	}
	if mode != updater.ModeAuto && mode != updater.ModeManual {
		writeError(w, http.StatusBadRequest, "mode must be auto or manual")
		return
	}

	overrides, err := pricing.ParseOverrides(req.Overrides)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stone overrides")
		return
	}

	params := updater.Params{
		Mode:       mode,
		GoldRate:   req.GoldRate,
		SilverRate: req.SilverRate,
		Overrides:  overrides,
		Selection: updater.Selection{
			Include: updater.ParseHandles(req.Include),
			Exclude: updater.ParseHandles(req.Exclude),
		},
	}

	report, err := h.runner(r, params)
	if errors.Is(err, rates.ErrRateUnavailable) {
		// A manual trigger without a usable rate is a caller problem,
		// not a server one.
		writeError(w, http.StatusBadRequest, "no usable metal rate for this run")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Triggered run failed")
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
