// Package metrics exposes the scheduler state to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warpdl/warpsched/pkg/schedule"
)

const namespace = "warpsched"

// StatusFunc returns the current engine status.
type StatusFunc func() schedule.Status

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
}

var _ schedule.Recorder = (*Metrics)(nil)

// New registers the scheduler collectors. status is polled at scrape time;
// paused reports the session run state and may be nil.
func New(status StatusFunc, paused func() bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Count of level transitions applied to the session.",
			},
			[]string{"from", "to", "trigger"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "level",
			Help:      "Level currently applied: 0 normal, 1 slow, 2 stopped.",
		}, func() float64 { return float64(status().Level) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "next_tick_timestamp_seconds",
			Help:      "Unix time of the next scheduled evaluation, 0 when none is armed.",
		}, func() float64 { return unixSeconds(status().NextTick) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reconcile_failed",
			Help:      "1 if the last reconcile could not update the session.",
		}, func() float64 {
			if status().LastError != "" {
				return 1
			}
			return 0
		}),
	)
	if paused != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_paused",
			Help:      "1 while the session is paused.",
		}, func() float64 {
			if paused() {
				return 1
			}
			return 0
		}))
	}
	return m
}

// Record counts a transition.
func (m *Metrics) Record(t schedule.Transition) {
	m.transitions.WithLabelValues(t.From.String(), t.To.String(), t.Trigger).Inc()
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
