package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestCountersAndGauges(t *testing.T) {
	m := New()
	m.CyclesTotal.WithLabelValues("conservative", "ok").Inc()
	m.CyclesTotal.WithLabelValues("conservative", "ok").Inc()
	m.OrdersPlanned.WithLabelValues("conservative", "BUY").Inc()
	m.FillsTotal.WithLabelValues("conservative", "skipped").Inc()
	m.PoolEquity.WithLabelValues("conservative").Set(10123.45)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	cycles := findFamily(t, families, "ctrader_cycles_total")
	require.Len(t, cycles.GetMetric(), 1)
	assert.InDelta(t, 2, cycles.GetMetric()[0].GetCounter().GetValue(), 1e-9)

	equity := findFamily(t, families, "ctrader_pool_equity")
	assert.InDelta(t, 10123.45, equity.GetMetric()[0].GetGauge().GetValue(), 1e-9)
}

func TestHandlerServesExposition(t *testing.T) {
	m := New()
	m.PoolEquity.WithLabelValues("conservative").Set(1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ctrader_pool_equity")
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.PoolEquity.WithLabelValues("x").Set(1)
	b.PoolEquity.WithLabelValues("x").Set(2)

	families, err := a.Registry().Gather()
	require.NoError(t, err)
	equity := findFamily(t, families, "ctrader_pool_equity")
	assert.InDelta(t, 1, equity.GetMetric()[0].GetGauge().GetValue(), 1e-9)
}
