// Package metrics exposes the service counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Compilations      *prometheus.CounterVec
	Executions        *prometheus.CounterVec
	CMakeCompilations *prometheus.CounterVec
	CMakeExecutions   *prometheus.CounterVec
}

func counter(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{"language"})
}

// New creates the counters. withRuntime adds the Go and process collectors.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry:          prometheus.NewRegistry(),
		Compilations:      counter("ce_compilations_total", "Number of compilations"),
		Executions:        counter("ce_executions_total", "Number of executions"),
		CMakeCompilations: counter("ce_cmake_compilations_total", "Number of CMake compilations"),
		CMakeExecutions:   counter("ce_cmake_executions_total", "Number of executions after CMake"),
	}
	m.registry.MustRegister(m.Compilations, m.Executions, m.CMakeCompilations, m.CMakeExecutions)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// CountCompile is called before every local compilation, failed or not.
func (m *Metrics) CountCompile(language string) {
	if m != nil {
		m.Compilations.WithLabelValues(language).Inc()
	}
}

// CountExecute is called when a compiled program actually ran.
func (m *Metrics) CountExecute(language string) {
	if m != nil {
		m.Executions.WithLabelValues(language).Inc()
	}
}

func (m *Metrics) CountCMake(language string) {
	if m != nil {
		m.CMakeCompilations.WithLabelValues(language).Inc()
	}
}

func (m *Metrics) CountCMakeExecute(language string) {
	if m != nil {
		m.CMakeExecutions.WithLabelValues(language).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
