// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and embedded uses never collide
// with the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal   *prometheus.CounterVec
	OrdersPlanned *prometheus.CounterVec
	FillsTotal    *prometheus.CounterVec
	PoolEquity    *prometheus.GaugeVec
	CycleDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctrader_cycles_total",
			Help: "Rebalance cycles completed, by pool and outcome.",
		}, []string{"pool", "status"}),
		OrdersPlanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctrader_orders_planned_total",
			Help: "Orders emitted by the planner, by pool and side.",
		}, []string{"pool", "side"}),
		FillsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctrader_fills_total",
			Help: "Execution outcomes, by pool and fill status.",
		}, []string{"pool", "status"}),
		PoolEquity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ctrader_pool_equity",
			Help: "Latest pool equity in quote currency.",
		}, []string{"pool"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ctrader_cycle_duration_seconds",
			Help:    "Wall time of one rebalance cycle.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pool"}),
	}
	m.registry.MustRegister(m.CyclesTotal, m.OrdersPlanned, m.FillsTotal, m.PoolEquity, m.CycleDuration)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry for tests and embedded scrapes.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
