// Package observability provides Prometheus metrics for generation runs.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generator labels for TradesGenerated.
const (
	GeneratorLegitimate = "legitimate"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Generation metrics
	TradesGenerated   *prometheus.CounterVec
	TradesCancelled   *prometheus.CounterVec
	ScenarioRuns      *prometheus.CounterVec
	ScenarioWarnings  *prometheus.CounterVec
	AccountsProcessed prometheus.Counter

	// Aggregation metrics
	HoldingsComputed prometheus.Counter
	IntegrityFaults  *prometheus.CounterVec

	// Output metrics
	RecordsWritten *prometheus.CounterVec

	// Run metrics
	RunsTotal     *prometheus.CounterVec
	PhaseDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tradegen"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		TradesGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "trades_generated_total",
			Help:      "Total number of trades generated by generator",
		}, []string{"generator"}),
		TradesCancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "trades_cancelled_total",
			Help:      "Total number of cancelled trades by generator",
		}, []string{"generator"}),
		ScenarioRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "scenario_runs_total",
			Help:      "Total number of fraud scenario runs by type",
		}, []string{"scenario_type"}),
		ScenarioWarnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "scenario_warnings_total",
			Help:      "Total number of scenario warnings by type",
		}, []string{"scenario_type"}),
		AccountsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "accounts_processed_total",
			Help:      "Total number of accounts given legitimate activity",
		}),

		HoldingsComputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "holdings_computed_total",
			Help:      "Total number of holdings computed",
		}),
		IntegrityFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "integrity_faults_total",
			Help:      "Total number of trades excluded from aggregation by reason",
		}, []string{"reason"}),

		RecordsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "records_written_total",
			Help:      "Total number of records handed to the sink by kind",
		}, []string{"kind"}),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of runs by phase and status",
		}, []string{"phase", "status"}),
		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "phase_duration_seconds",
			Help:      "Run phase duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"phase"}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful run",
		}),

		registry: reg,
	}
}

// Registry exposes the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTrades counts generated and cancelled trades for a generator.
func (m *Metrics) RecordTrades(generator string, total, cancelled int) {
	m.TradesGenerated.WithLabelValues(generator).Add(float64(total))
	m.TradesCancelled.WithLabelValues(generator).Add(float64(cancelled))
}

// RecordScenario counts a scenario run and its warnings.
func (m *Metrics) RecordScenario(scenarioType string, warnings int) {
	m.ScenarioRuns.WithLabelValues(scenarioType).Inc()
	if warnings > 0 {
		m.ScenarioWarnings.WithLabelValues(scenarioType).Add(float64(warnings))
	}
}

// RecordFault increments the integrity fault counter.
func (m *Metrics) RecordFault(reason string) {
	m.IntegrityFaults.WithLabelValues(reason).Inc()
}

// RecordPhase records a run phase outcome.
func (m *Metrics) RecordPhase(phase, status string, durationSeconds float64) {
	m.RunsTotal.WithLabelValues(phase, status).Inc()
	m.PhaseDuration.WithLabelValues(phase).Observe(durationSeconds)
}
