package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/E4Saber/stock-analyzer-sub000/internal/composite"
	"github.com/E4Saber/stock-analyzer-sub000/internal/lifecycle"
	"github.com/E4Saber/stock-analyzer-sub000/internal/pipeline"
	"github.com/E4Saber/stock-analyzer-sub000/internal/policy"
	"github.com/E4Saber/stock-analyzer-sub000/internal/reliability"
)

func testCycle() *pipeline.CycleResult {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	plan := policy.Plan{Symbol: "600000.SH", Tier: "actionable", Stage: "growth", MainForce: "institutional", BuildAllowed: true}
	return &pipeline.CycleResult{
		RunID:  "run-42",
		Date:   date,
		Regime: "oscillating",
		Results: []pipeline.SymbolResult{
			{
				Symbol: "600000.SH",
				Signal: composite.Signal{Symbol: "600000.SH", Score: 84.6, Tier: composite.TierActionable, TierTag: "actionable"},
				Verdict: reliability.Verdict{
					Symbol: "600000.SH", FinalTier: composite.TierActionable, FinalTierTag: "actionable", Passes: true,
				},
				Campaign: &lifecycle.State{ID: "600000.SH", Stage: lifecycle.Growth, StageTag: "growth"},
				Plan:     &plan,
			},
			{
				Symbol:  "000001.SZ",
				Signal:  composite.Signal{Symbol: "000001.SZ", Score: 20, Tier: composite.TierReject, TierTag: "reject"},
				Verdict: reliability.Verdict{Symbol: "000001.SZ", FinalTier: composite.TierReject, FinalTierTag: "reject"},
			},
		},
		Themes: []*lifecycle.State{
			{ID: "theme-ai", Stage: lifecycle.Growth, StageTag: "growth"},
		},
	}
}

func newTestServer() *Server {
	return New(prometheus.NewRegistry(), 100, 100)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := newTestServer()

	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "last_run_id")

	s.SetLatest(testCycle())
	rec = get(t, s, "/health")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-42", body["last_run_id"])
	assert.Equal(t, float64(2), body["symbols_scored"])
}

func TestServer_LatestSignals(t *testing.T) {
	s := newTestServer()

	rec := get(t, s, "/v1/signals/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.SetLatest(testCycle())
	rec = get(t, s, "/v1/signals/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-42", body["run_id"])
}

func TestServer_SymbolSignal(t *testing.T) {
	s := newTestServer()
	s.SetLatest(testCycle())

	rec := get(t, s, "/v1/signals/600000.SH")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "600000.SH", body["symbol"])

	rec = get(t, s, "/v1/signals/999999.XX")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Lifecycle(t *testing.T) {
	s := newTestServer()
	s.SetLatest(testCycle())

	// Theme id resolves first.
	rec := get(t, s, "/v1/lifecycle/theme-ai")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "theme-ai", body["id"])

	// Then per-symbol campaign states.
	rec = get(t, s, "/v1/lifecycle/600000.SH")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "growth", body["stage"])

	rec = get(t, s, "/v1/lifecycle/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_LatestPlans(t *testing.T) {
	s := newTestServer()
	s.SetLatest(testCycle())

	rec := get(t, s, "/v1/plans/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RunID string                   `json:"run_id"`
		Plans []map[string]interface{} `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-42", body.RunID)
	// Only symbols with a derived plan appear; rejects are filtered.
	require.Len(t, body.Plans, 1)
	assert.Equal(t, "600000.SH", body.Plans[0]["symbol"])
}

func TestServer_RateLimit(t *testing.T) {
	s := New(prometheus.NewRegistry(), 1, 1)
	s.SetLatest(testCycle())

	first := get(t, s, "/v1/signals/latest")
	assert.Equal(t, http.StatusOK, first.Code)
	second := get(t, s, "/v1/signals/latest")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Unversioned endpoints are never rate limited.
	health := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestServer_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "ambush_test_total"})
	registry.MustRegister(counter)
	counter.Inc()

	s := New(registry, 10, 10)
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ambush_test_total 1")
}
