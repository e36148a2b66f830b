// Package metrics exposes Prometheus collectors for the bot.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesRecorded counts inbound messages appended to a chat corpus.
	MessagesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatter_messages_recorded_total",
			Help: "Total number of chat messages appended to the corpus",
		},
	)

	// TriggerDecisions counts trigger policy outcomes.
	TriggerDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatter_trigger_decisions_total",
			Help: "Trigger policy decisions by outcome",
		},
		[]string{"outcome"}, // suppressed, skipped, proceed
	)

	// RepliesSent counts generated replies delivered to chats.
	RepliesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatter_replies_sent_total",
			Help: "Generated replies delivered to chats",
		},
		[]string{"kind"}, // text, meme
	)

	GenerationEmpty = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatter_generation_empty_total",
			Help: "Generation attempts that produced no text",
		},
	)

	FlushedRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatter_flushed_records_total",
			Help: "Chat records written to storage",
		},
	)

	FlushErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatter_flush_errors_total",
			Help: "Chat records that failed to persist",
		},
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatter_flush_duration_seconds",
			Help:    "Duration of a persistence flush cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	Chats = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatter_chats",
			Help: "Number of chats held in memory",
		},
	)

	registered atomic.Bool
)

// Register registers all collectors with the default registry. Safe to call multiple times.
func Register() {
	if !registered.CompareAndSwap(false, true) {
		return
	}
	prometheus.MustRegister(
		MessagesRecorded,
		TriggerDecisions,
		RepliesSent,
		GenerationEmpty,
		FlushedRecords,
		FlushErrors,
		FlushDuration,
		Chats,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
