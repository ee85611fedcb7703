// Package metrics holds the Prometheus instruments for the ingestion
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsEnqueued tracks jobs accepted by the coordinator.
	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_jobs_enqueued_total",
		Help: "The total number of ingestion jobs accepted and enqueued.",
	})
	// JobsRejected tracks enqueue requests refused for an unsupported domain.
	JobsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_jobs_rejected_total",
		Help: "The total number of ingestion requests rejected at enqueue time.",
	})
	// JobsCompleted tracks jobs that reached the done state.
	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_jobs_completed_total",
		Help: "The total number of ingestion jobs finished successfully.",
	})
	// JobsFailed tracks jobs that ended in the error state.
	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_jobs_failed_total",
		Help: "The total number of ingestion jobs that ended in error.",
	})
	// ChaptersIngested tracks chapters persisted across all jobs.
	ChaptersIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_chapters_total",
		Help: "The total number of chapters fetched, normalized, and saved.",
	})
	// ChaptersSkipped tracks chapters dropped after a content fetch failure.
	ChaptersSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_chapters_skipped_total",
		Help: "The total number of chapters skipped because their content could not be fetched.",
	})
	// JobDuration observes end-to-end job execution time.
	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_job_duration_seconds",
		Help:    "End-to-end ingestion job duration.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)
