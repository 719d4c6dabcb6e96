package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipsai_jobs_processed_total",
		Help: "Total number of jobs processed, by terminal status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipsai_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ClipsProducedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipsai_clips_produced_total",
		Help: "Total number of clips rendered across all jobs",
	})

	ClipExtractionFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipsai_clip_extraction_failed_total",
		Help: "Total number of per-clip extraction failures (non-fatal)",
	})

	JobsFailedByStage = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipsai_jobs_failed_by_stage_total",
		Help: "Total number of job failures, by pipeline stage",
	}, []string{"stage"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clipsai_active_workers",
		Help: "Number of workers currently running a pipeline",
	})
)
