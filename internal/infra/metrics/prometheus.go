package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronophoto_extractions_total",
		Help: "Total number of frame extractions, by status",
	}, []string{"status"})

	CompositesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronophoto_composites_total",
		Help: "Total number of composite attempts, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chronophoto_stage_duration_seconds",
		Help:    "Duration of editing pipeline stages",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronophoto_frames_extracted_total",
		Help: "Total number of frames sampled across all sessions",
	})

	StrokesCommittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronophoto_strokes_committed_total",
		Help: "Total number of mask strokes committed, by tool",
	}, []string{"tool"})

	StaleCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronophoto_stale_completions_total",
		Help: "Extractions discarded because the session was reset meanwhile",
	})
)
