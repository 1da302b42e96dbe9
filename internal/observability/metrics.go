// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Engine metrics
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	BarsProcessed    prometheus.Counter
	OrdersSubmitted  prometheus.Counter
	OrdersDropped    *prometheus.CounterVec
	FillsTotal       *prometheus.CounterVec
	TradesTotal      *prometheus.CounterVec
	StrategyFailures prometheus.Counter

	// Sweep metrics
	SweepJobsInFlight prometheus.Gauge
	SweepJobsTotal    *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "backtest_lab"
	}
	f := promauto.With(reg)

	return &Metrics{
		// Engine metrics
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of backtest runs in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		BarsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "bars_processed_total",
			Help:      "Total number of bars replayed",
		}),
		OrdersSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "orders_submitted_total",
			Help:      "Total number of orders proposed by strategies",
		}),
		OrdersDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "orders_dropped_total",
			Help:      "Total number of orders dropped before matching by reason",
		}, []string{"reason"}),
		FillsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "fills_total",
			Help:      "Total number of simulated fills by liquidity side",
		}, []string{"liquidity"}),
		TradesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_total",
			Help:      "Total number of trade records by kind and reason",
		}, []string{"kind", "reason"}),
		StrategyFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "strategy_failures_total",
			Help:      "Total number of runs aborted by a strategy error",
		}),

		// Sweep metrics
		SweepJobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "jobs_in_flight",
			Help:      "Number of sweep jobs currently running",
		}),
		SweepJobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "jobs_total",
			Help:      "Total number of sweep jobs by outcome",
		}, []string{"outcome"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler serving metrics gathered from g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(durationSeconds)
}

// RecordBar records one replayed bar.
func (m *Metrics) RecordBar() {
	if m == nil {
		return
	}
	m.BarsProcessed.Inc()
}

// RecordOrder records one submitted order.
func (m *Metrics) RecordOrder() {
	if m == nil {
		return
	}
	m.OrdersSubmitted.Inc()
}

// RecordDroppedOrder records an order dropped before matching.
func (m *Metrics) RecordDroppedOrder(reason string) {
	if m == nil {
		return
	}
	m.OrdersDropped.WithLabelValues(reason).Inc()
}

// RecordFill records one fill.
func (m *Metrics) RecordFill(liquidity string) {
	if m == nil {
		return
	}
	m.FillsTotal.WithLabelValues(liquidity).Inc()
}

// RecordTrade records one trade record.
func (m *Metrics) RecordTrade(kind, reason string) {
	if m == nil {
		return
	}
	m.TradesTotal.WithLabelValues(kind, reason).Inc()
}

// RecordStrategyFailure records a run aborted by its strategy.
func (m *Metrics) RecordStrategyFailure() {
	if m == nil {
		return
	}
	m.StrategyFailures.Inc()
}

// SweepJobStarted marks a sweep job as running.
func (m *Metrics) SweepJobStarted() {
	if m == nil {
		return
	}
	m.SweepJobsInFlight.Inc()
}

// SweepJobFinished marks a sweep job as done with outcome.
func (m *Metrics) SweepJobFinished(outcome string) {
	if m == nil {
		return
	}
	m.SweepJobsInFlight.Dec()
	m.SweepJobsTotal.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
