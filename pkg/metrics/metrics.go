package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus gauges/counters mirror the internal monitoring ring (see
// collector.go) for external scraping. The ring, not these variables, is
// the source of truth for alerting and the /health rollup.
var (
	ContainersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orchestrator_containers_total",
			Help: "Total number of managed containers by state",
		},
		[]string{"state"},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_sessions_active",
			Help: "Number of sessions currently running",
		},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_errors_total",
			Help: "Total number of errors observed, by taxonomy kind",
		},
		[]string{"kind"},
	)

	SecurityViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_security_violations_total",
			Help: "Total number of recorded security violations by severity",
		},
		[]string{"severity"},
	)

	SessionCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orchestrator_session_create_duration_seconds",
			Help:    "Time taken to create a session, end to end",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecoveryActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_recovery_actions_total",
			Help: "Total number of recovery actions by strategy and outcome",
		},
		[]string{"strategy", "status"},
	)

	MemoryUsagePercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_memory_usage_percent",
			Help: "Process host memory usage percent as last sampled by monitoring",
		},
	)

	CPUUsagePercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orchestrator_cpu_usage_percent",
			Help: "Process host CPU usage percent as last sampled by monitoring",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ContainersTotal,
		SessionsActive,
		ErrorsTotal,
		SecurityViolationsTotal,
		SessionCreateDuration,
		RecoveryActionsTotal,
		MemoryUsagePercent,
		CPUUsagePercent,
	)
}

// Timer measures elapsed time for recording into a Prometheus histogram,
// distinct from log.Timer which logs rather than exposes metrics.
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed duration to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed duration to a labeled histogram
// vec.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
