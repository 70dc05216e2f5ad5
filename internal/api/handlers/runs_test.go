package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhango/pricesync/internal/rates"
	"github.com/jhango/pricesync/internal/updater"
	"github.com/jhango/pricesync/pkg/logger"
)

func newTestRouter(h *RunsHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/runs", h.List).Methods("GET")
	r.HandleFunc("/api/runs/latest", h.Latest).Methods("GET")
	r.HandleFunc("/api/runs/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/runs", h.Trigger).Methods("POST")
	return r
}

func TestTriggerRun(t *testing.T) {
	var gotParams updater.Params
	runner := func(_ *http.Request, params updater.Params) (*updater.RunReport, error) {
		gotParams = params
		return &updater.RunReport{ID: "run-1", Mode: params.Mode, Updated: 3}, nil
	}
	h := NewRunsHandler(nil, runner, logger.NewNop())

	body := `{
		"mode": "manual",
		"gold_rate": 7000,
		"include_handles": "ring-a, ring-b",
		"exclude_handles": "ring-b",
		"stone_overrides": "Lab Grown:15000"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, updater.ModeManual, gotParams.Mode)
	assert.Equal(t, 7000.0, gotParams.GoldRate)
	assert.Equal(t, []string{"ring-a", "ring-b"}, gotParams.Selection.Include)
	assert.Equal(t, []string{"ring-b"}, gotParams.Selection.Exclude)
	assert.Equal(t, 15000.0, gotParams.Overrides["lab grown"])

	var report updater.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "run-1", report.ID)
	assert.Equal(t, 3, report.Updated)
}

func TestTriggerDefaultsToManual(t *testing.T) {
	runner := func(_ *http.Request, params updater.Params) (*updater.RunReport, error) {
		return &updater.RunReport{Mode: params.Mode}, nil
	}
	h := NewRunsHandler(nil, runner, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode":"manual"`)
}

func TestTriggerRejectsBadMode(t *testing.T) {
	h := NewRunsHandler(nil, func(*http.Request, updater.Params) (*updater.RunReport, error) {
		t.Fatal("runner should not be called")
		return nil, nil
	}, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"mode":"diamond"}`))
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerWithoutRateIsBadRequest(t *testing.T) {
	runner := func(*http.Request, updater.Params) (*updater.RunReport, error) {
		return nil, fmt.Errorf("abort run: %w", rates.ErrRateUnavailable)
	}
	h := NewRunsHandler(nil, runner, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"mode":"manual"}`))
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no usable metal rate")
}

func TestTriggerRejectsBadBody(t *testing.T) {
	h := NewRunsHandler(nil, func(*http.Request, updater.Params) (*updater.RunReport, error) {
		return nil, nil
	}, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpointsWithoutDatabase(t *testing.T) {
	h := NewRunsHandler(nil, nil, logger.NewNop())
	router := newTestRouter(h)

	for _, path := range []string{"/api/runs", "/api/runs/latest", "/api/runs/abc"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}
