// internal/server/metrics.go
package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mcp-food-log/internal/foodlog"
)

const metricsNamespace = "food_log"

// Metrics holds the server's collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	parses       *prometheus.CounterVec
	mutations    *prometheus.CounterVec
}

func NewMetrics(manager *foodlog.Manager) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool name and outcome.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "parse_results_total",
			Help:      "Meal description parses by outcome.",
		}, []string{"outcome"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mutations_total",
			Help:      "Food log mutations by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.toolCalls,
		m.toolDuration,
		m.parses,
		m.mutations,
	)

	if manager != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "entries_today",
			Help:      "Entries currently in today's log.",
		}, func() float64 {
			return float64(len(manager.Entries()))
		}))
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "calories_today",
			Help:      "Calories logged today.",
		}, func() float64 {
			return manager.Totals().Calories
		}))
	}

	return m
}

func (m *Metrics) ObserveTool(tool, status string, d time.Duration) {
	m.toolCalls.WithLabelValues(tool, status).Inc()
	if status != "not_found" {
		m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveParse(outcome string) {
	m.parses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveMutation(kind, outcome string) {
	m.mutations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
