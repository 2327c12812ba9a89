// Package metrics declares the Prometheus collectors shared by the pipeline,
// the HTTP layer and the fan-out worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label used for delivered events.
const OutcomeDelivered = "delivered"

var (
	// Outcomes counts pipeline decisions, labelled "delivered" or the rejection reason.
	Outcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_pipeline_outcomes_total",
			Help: "Pipeline decisions by outcome.",
		},
		[]string{"outcome"},
	)
	// Escalations counts escalation decisions by status (recorded, suppressed).
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_escalations_total",
			Help: "Escalation decisions by status.",
		},
		[]string{"status"},
	)
	// OutboxErrors counts failed outbox publishes.
	OutboxErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_outbox_errors_total",
			Help: "Outbox publish failures by message kind.",
		},
		[]string{"kind"},
	)
	// ChannelSends counts fan-out sends by channel and status.
	ChannelSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_channel_sends_total",
			Help: "Fan-out channel send attempts by channel and status.",
		},
		[]string{"channel", "status"},
	)
	// ChannelSendDuration observes fan-out send latency.
	ChannelSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notify_channel_send_duration_seconds",
			Help:    "Duration of fan-out channel sends.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)
	// SweepEvictions counts entries removed by the background sweep.
	SweepEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_sweep_evictions_total",
			Help: "Entries evicted by the background sweep, by state kind.",
		},
		[]string{"kind"},
	)
)
