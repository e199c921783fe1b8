package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot load outcomes.
const (
	LoadRestored = "restored"
	LoadEmpty    = "empty"
	LoadCorrupt  = "corrupt"
	LoadError    = "error"
)

type MetricsManager struct {
	Registry                  *prometheus.Registry
	CartMutationsTotal        *prometheus.CounterVec
	SnapshotSaveFailuresTotal prometheus.Counter
	SnapshotLoadsTotal        *prometheus.CounterVec
	ActiveCarts               prometheus.Gauge
	HTTPRequestLatency        *prometheus.HistogramVec
}

func NewMetricsManager(namespace string) *MetricsManager {
	registry := prometheus.NewRegistry()

	m := &MetricsManager{
		Registry: registry,
		CartMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations applied, by operation.",
		}, []string{"operation"}),
		SnapshotSaveFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_snapshot_save_failures_total",
			Help:      "Cart snapshots that could not be persisted.",
		}),
		SnapshotLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_snapshot_loads_total",
			Help:      "Cart snapshot restores, by outcome.",
		}, []string{"result"}),
		ActiveCarts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_carts",
			Help:      "Carts currently held in memory.",
		}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_latency_seconds",
			Help:      "Latency of HTTP requests by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}

	registry.MustRegister(
		m.CartMutationsTotal,
		m.SnapshotSaveFailuresTotal,
		m.SnapshotLoadsTotal,
		m.ActiveCarts,
		m.HTTPRequestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
