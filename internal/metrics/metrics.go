// Package metrics exposes Prometheus instrumentation for the dispatch
// pipeline. Labels are chosen with bounded cardinality: chat type, message
// outcome, and command name only (never user or chat IDs).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// UpdatesTotal counts polled updates by the dispatch outcome.
	// Outcomes: handled, command, dropped_banned, dropped_limited,
	// dropped_disabled, dropped_unaddressed, skipped.
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of processed updates by outcome.",
		},
		[]string{"chat_type", "outcome"},
	)

	// CommandsTotal counts command invocations by command name.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of command invocations.",
		},
		[]string{"command"},
	)

	// InferenceDuration records wall time of model calls in seconds.
	// Buckets stretch to minutes because local models can be slow.
	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_inference_duration_seconds",
			Help:    "Duration of model inference calls in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
	)

	// InferenceErrors counts failed model calls.
	InferenceErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_inference_errors_total",
			Help: "Total number of failed model inference calls.",
		},
	)

	// RepliesTotal counts outbound reply chunks.
	RepliesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_reply_chunks_total",
			Help: "Total number of reply chunks sent.",
		},
	)

	// InflightHandlers gauges updates currently being handled by workers.
	InflightHandlers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_handlers_inflight",
			Help: "Current number of updates being handled.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		UpdatesTotal,
		CommandsTotal,
		InferenceDuration,
		InferenceErrors,
		RepliesTotal,
		InflightHandlers,
	)
}

// ObserveInference records one model call.
func ObserveInference(start time.Time, err error) {
	InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		InferenceErrors.Inc()
	}
}
