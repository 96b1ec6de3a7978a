package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctraderhq/ctrader/internal/metrics"
	"github.com/ctraderhq/ctrader/internal/risk"
)

func testServer(t *testing.T) (*Server, *StatusStore) {
	t.Helper()
	store := NewStatusStore()
	store.Update(PoolStatus{
		Pool:      "conservative",
		UpdatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Equity:    []float64{10000, 10100, 10050},
		Risk: risk.Report{
			Pool:        "conservative",
			MaxDrawdown: 0.00495,
			DailyVol:    0.007,
		},
	})
	return NewServer("127.0.0.1:0", store, metrics.New()), store
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string   `json:"status"`
		Pools  []string `json:"pools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, []string{"conservative"}, body.Pools)
}

func TestRiskEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/risk/conservative")
	require.Equal(t, http.StatusOK, rec.Code)

	var report risk.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "conservative", report.Pool)
	assert.InDelta(t, 0.00495, report.MaxDrawdown, 1e-9)
}

func TestRiskUnknownPool(t *testing.T) {
	s, _ := testServer(t)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/risk/nope").Code)
}

func TestEquityEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/equity/conservative")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Pool   string    `json:"pool"`
		Equity []float64 `json:"equity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []float64{10000, 10100, 10050}, body.Equity)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStoreUpdateReplaces(t *testing.T) {
	s, store := testServer(t)
	store.Update(PoolStatus{Pool: "conservative", Equity: []float64{1}})

	rec := get(t, s, "/equity/conservative")
	var body struct {
		Equity []float64 `json:"equity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []float64{1}, body.Equity)
}
