// Package metrics exposes Prometheus collectors for interview sessions.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the service collectors.
type Metrics struct {
	PhaseTransitions   *prometheus.CounterVec
	FocusViolations    *prometheus.CounterVec
	CommandRejections  *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec
	HistoryAppends     prometheus.Counter
	ActiveSessions     prometheus.Gauge
}

// Default returns the process-wide collectors, registering them on first use.
//
// Metrics:
//   - interviewer_phase_transitions_total{from,to}
//   - interviewer_focus_violations_total{outcome}
//   - interviewer_command_rejections_total{command,reason}
//   - interviewer_remote_call_duration_seconds{service,operation,result}
//   - interviewer_history_appends_total
//   - interviewer_active_sessions
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			PhaseTransitions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "interviewer_phase_transitions_total",
					Help: "Total number of interview phase transitions",
				},
				[]string{"from", "to"},
			),
			FocusViolations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "interviewer_focus_violations_total",
					Help: "Focus-loss violations by resulting outcome",
				},
				[]string{"outcome"}, // "warned" or "locked"
			),
			CommandRejections: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "interviewer_command_rejections_total",
					Help: "Commands rejected by the session orchestrator",
				},
				[]string{"command", "reason"},
			),
			RemoteCallDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "interviewer_remote_call_duration_seconds",
					Help:    "Latency of dialogue and runner calls",
					Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
				},
				[]string{"service", "operation", "result"},
			),
			HistoryAppends: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "interviewer_history_appends_total",
					Help: "Completed interviews appended to history",
				},
			),
			ActiveSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "interviewer_active_sessions",
					Help: "Live interview sessions held in memory",
				},
			),
		}
	})
	return globalMetrics
}

// ObserveRemoteCall records the latency of a remote call started at start.
func (m *Metrics) ObserveRemoteCall(service, operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RemoteCallDuration.WithLabelValues(service, operation, result).Observe(time.Since(start).Seconds())
}
