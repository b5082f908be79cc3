// Package metrics counts scrape and parse progress in a prometheus registry.
package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webexdocs"

// Metrics holds the collectors of one process
type Metrics struct {
	registry *prometheus.Registry

	pagesFetched     prometheus.Counter
	sections         *prometheus.CounterVec
	methods          *prometheus.CounterVec
	parametersParsed prometheus.Counter
	parseMisses      *prometheus.CounterVec
	classes          prometheus.Gauge
	inferred         prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages loaded from the documentation source.",
		}),
		sections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_total",
			Help:      "Menu sections by outcome.",
		}, []string{"status"}),
		methods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "methods_total",
			Help:      "Method pages by outcome.",
		}, []string{"status"}),
		parametersParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parameters_parsed_total",
			Help:      "Parameters extracted from parameter groups.",
		}),
		parseMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_misses_total",
			Help:      "Markup blocks that could not be parsed, by reason.",
		}, []string{"reason"}),
		classes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "classes_registered",
			Help:      "Classes in the class registry.",
		}),
		inferred: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inferred_subclasses",
			Help:      "Classes rebased onto a common base class.",
		}),
	}
	m.registry.MustRegister(m.pagesFetched, m.sections, m.methods, m.parametersParsed, m.parseMisses, m.classes, m.inferred)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PageFetched() { m.pagesFetched.Inc() }

func (m *Metrics) SectionDone(status string) { m.sections.WithLabelValues(status).Inc() }

func (m *Metrics) MethodDone(status string) { m.methods.WithLabelValues(status).Inc() }

func (m *Metrics) ParameterParsed() { m.parametersParsed.Inc() }

func (m *Metrics) ParseMiss(reason string) { m.parseMisses.WithLabelValues(reason).Inc() }

// SetClasses records the class phase result
func (m *Metrics) SetClasses(registered, inferred int) {
	m.classes.Set(float64(registered))
	m.inferred.Set(float64(inferred))
}

// WriteTextfile writes the current values in text format, e.g. for the node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
