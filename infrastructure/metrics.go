package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CommandMetrics counts command outcomes and latencies
type CommandMetrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// NewCommandMetrics registers the command metrics with reg
func NewCommandMetrics(reg prometheus.Registerer) *CommandMetrics {
	return &CommandMetrics{
		commandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lottery",
				Name:      "commands_total",
				Help:      "Tracks the number of lottery commands by operation and result code.",
			}, []string{"op", "code"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lottery",
				Name:      "command_duration_seconds",
				Help:      "Tracks the latencies of lottery commands.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"},
		),
	}
}

// Observe records one finished command. code is empty for successful commands.
func (m *CommandMetrics) Observe(op, code string, elapsed time.Duration) {
	if code == "" {
		code = "OK"
	}
	m.commandsTotal.WithLabelValues(op, code).Inc()
	m.commandDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
