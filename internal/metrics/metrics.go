package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SummarizeLatency tracks summarization endpoint latency in milliseconds.
	SummarizeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postclip_summarize_latency_ms",
			Help:    "Summarization endpoint latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~50s
		},
		[]string{"status"}, // 2xx, 4xx, 5xx, transport_error
	)

	// CaptureOutcomes counts capture attempts by outcome.
	CaptureOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postclip_capture_outcomes_total",
			Help: "Capture attempts by outcome",
		},
		[]string{"outcome"}, // saved, saved_without_summary, duplicate, refused, failed
	)

	// StoreWrites counts whole-list writes to the session store.
	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postclip_store_writes_total",
			Help: "Whole-list writes to the session store",
		},
		[]string{"op", "status"}, // op: set_all, clear
	)
)

// RecordSummarizeLatency records one summarization call.
func RecordSummarizeLatency(status string, d time.Duration) {
	SummarizeLatency.WithLabelValues(status).Observe(float64(d.Milliseconds()))
}

// IncrementCaptureOutcome counts one capture attempt.
func IncrementCaptureOutcome(outcome string) {
	CaptureOutcomes.WithLabelValues(outcome).Inc()
}

// IncrementStoreWrite counts one session store write.
func IncrementStoreWrite(op, status string) {
	StoreWrites.WithLabelValues(op, status).Inc()
}
