package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RendersTotal counts render jobs by terminal status.
	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renderd_renders_total",
			Help: "Total number of render jobs by terminal status",
		},
		[]string{"status"},
	)

	// RenderDuration tracks wall-clock render time by encoder path.
	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renderd_render_duration_seconds",
			Help:    "Render duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"encoder"},
	)

	// FallbackRendersTotal counts payloads compiled to the fallback
	// pipeline instead of a real graph.
	FallbackRendersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "renderd_fallback_renders_total",
			Help: "Total number of renders that used the fallback pipeline",
		},
	)

	// JobsQueued counts jobs accepted by the API.
	JobsQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "renderd_jobs_queued_total",
			Help: "Total number of render jobs accepted and queued",
		},
	)
)

// EncoderLabel names the encoder path for the duration histogram.
func EncoderLabel(hardware bool) string {
	if hardware {
		return "hardware"
	}
	return "software"
}
