package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	SourceClient  = "client"
	SourceSilence = "silence"

	KindPartial = "partial"
	KindFinal   = "final"

	ResultOK    = "ok"
	ResultError = "error"
)

var (
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_connections",
			Help: "Number of open relay connections",
		},
	)

	AudioFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_audio_frames_total",
			Help: "Audio frames queued for transcription by source",
		},
		[]string{"source"},
	)

	TranscriptEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_transcript_events_total",
			Help: "Transcript events delivered to clients",
		},
		[]string{"kind"},
	)

	Completions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_completions_total",
			Help: "Completion requests by result",
		},
		[]string{"result"},
	)

	CompletionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_completion_latency_seconds",
			Help:    "Completion latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)

	Teardowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_teardowns_total",
			Help: "Connection teardowns by reason",
		},
		[]string{"reason"},
	)

	ConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_connection_duration_seconds",
			Help:    "Connection lifetime in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

func TranscriptKind(final bool) string {
	if final {
		return KindFinal
	}
	return KindPartial
}

func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
