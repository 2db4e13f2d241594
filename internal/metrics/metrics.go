// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "evenly"

// Metrics owns a dedicated registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests     *prometheus.CounterVec
	rpcDuration     *prometheus.HistogramVec
	settlementRuns  prometheus.Counter
	settlementsLast prometheus.Gauge
	ledgerReceipts  prometheus.Gauge
}

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC requests by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		settlementRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_runs_total",
			Help:      "Settlement calculations performed.",
		}),
		settlementsLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "settlements_last",
			Help:      "Number of transfers produced by the last settlement calculation.",
		}),
		ledgerReceipts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_receipts",
			Help:      "Receipts currently held by the ledger.",
		}),
	}

	m.registry.MustRegister(
		m.rpcRequests,
		m.rpcDuration,
		m.settlementRuns,
		m.settlementsLast,
		m.ledgerReceipts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, elapsed time.Duration) {
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// ObserveSettlements records one settlement calculation.
func (m *Metrics) ObserveSettlements(transfers int) {
	m.settlementRuns.Inc()
	m.settlementsLast.Set(float64(transfers))
}

// SetReceipts sets the current receipt count.
func (m *Metrics) SetReceipts(n int) {
	m.ledgerReceipts.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
