// Package metrics registers the Prometheus collectors respd exposes
// on a dedicated Registry rather than the global default one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "respd"

// Metrics bundles every collector the server and executor packages
// report into.
type Metrics struct {
	Registry *prometheus.Registry

	Connections    prometheus.Gauge
	Commands       *prometheus.CounterVec
	ApplyDuration  prometheus.Histogram
	BlockedWaiters prometheus.Gauge
}

// New constructs and registers every collector on a fresh Registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_open",
			Help:      "Number of currently open client connections.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed, labeled by command name and outcome.",
		}, []string{"command", "outcome"}),
		ApplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_duration_seconds",
			Help:      "Time spent inside Request.Apply on the executor goroutine.",
			Buckets:   prometheus.DefBuckets,
		}),
		BlockedWaiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blpop_waiters_blocked",
			Help:      "Number of BLPOP callers currently registered as waiters.",
		}),
	}

	reg.MustRegister(m.Connections, m.Commands, m.ApplyDuration, m.BlockedWaiters)
	return m
}

// Handler returns the HTTP handler serving this registry's metrics in
// the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
