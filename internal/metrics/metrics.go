// Package metrics exposes the Prometheus instruments of a compile process.
//
//   - eventsearch_compile_total{dataset, outcome}
//   - eventsearch_compile_duration_seconds{dataset}
//   - eventsearch_cache_operations_total{operation, result}
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	OutcomeOK        = "ok"
	OutcomeUserError = "user_error"
	OutcomeError     = "error"
)

// Metrics owns its registry so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	compileTotal    *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	cacheOperations *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		compileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventsearch_compile_total",
				Help: "Total number of compile passes",
			},
			[]string{"dataset", "outcome"},
		),
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eventsearch_compile_duration_seconds",
				Help:    "Compile pass duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"dataset"},
		),
		cacheOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventsearch_cache_operations_total",
				Help: "Total number of project cache operations",
			},
			[]string{"operation", "result"},
		),
	}
	m.Registry.MustRegister(m.compileTotal, m.compileDuration, m.cacheOperations)
	return m
}

// RecordCompile counts one compile pass; a nil receiver is a no-op.
func (m *Metrics) RecordCompile(dataset, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.compileTotal.WithLabelValues(dataset, outcome).Inc()
	m.compileDuration.WithLabelValues(dataset).Observe(d.Seconds())
}

// CacheResult records a project cache operation, e.g. ("get", "hit").
func (m *Metrics) CacheResult(op, result string) {
	if m == nil {
		return
	}
	m.cacheOperations.WithLabelValues(op, result).Inc()
}

// WriteText dumps every metric in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
