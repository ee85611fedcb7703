// Package coordinator accepts ingestion requests, guards them, and
// hands accepted jobs to the work queue.
package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quillhaven/novelingest/internal/ingest"
	"github.com/quillhaven/novelingest/internal/metrics"
	"github.com/quillhaven/novelingest/internal/router"
)

// Config wires a Coordinator.
type Config struct {
	Router  *router.Router
	Jobs    ingest.JobStore
	Queue   ingest.Queue
	Library ingest.LibraryStore
	Logger  *zap.Logger
	Clock   ingest.Clock
	NewID   func() string
}

// Coordinator validates and enqueues ingestion jobs. Unsupported
// domains are rejected before any row is written, and the job row is
// durable before the queue entry exists, so a dequeued pointer always
// has a row behind it.
type Coordinator struct {
	router  *router.Router
	jobs    ingest.JobStore
	queue   ingest.Queue
	library ingest.LibraryStore
	logger  *zap.Logger
	clock   ingest.Clock
	newID   func() string
}

// New builds a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Router == nil || cfg.Jobs == nil || cfg.Queue == nil || cfg.Library == nil {
		return nil, fmt.Errorf("router, jobs, queue, and library are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = ingest.SystemClock{}
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Coordinator{
		router:  cfg.Router,
		jobs:    cfg.Jobs,
		queue:   cfg.Queue,
		library: cfg.Library,
		logger:  cfg.Logger,
		clock:   cfg.Clock,
		newID:   cfg.NewID,
	}, nil
}

// CreateJobRequest is one ingestion request. Force re-ingests a source
// URL that already has a novel.
type CreateJobRequest struct {
	SourceURL string
	Force     bool
}

// CreateJobResult reports either the accepted job or the existing
// novel that made enqueueing unnecessary.
type CreateJobResult struct {
	Job             ingest.Job
	AlreadyIngested bool
	NovelSlug       string
}

// CreateJob validates the source URL, skips sources that are already
// ingested unless forced, writes the job row, and enqueues the job
// pointer. An unsupported domain returns *ingest.UnsupportedSourceError
// and leaves no trace.
func (c *Coordinator) CreateJob(ctx context.Context, req CreateJobRequest) (CreateJobResult, error) {
	extractorName, err := c.router.Resolve(req.SourceURL)
	if err != nil {
		metrics.JobsRejected.Inc()
		c.logger.Info("ingestion request rejected",
			zap.String("source_url", req.SourceURL), zap.Error(err))
		return CreateJobResult{}, err
	}

	if !req.Force {
		novel, found, err := c.library.FindNovelBySourceURL(ctx, req.SourceURL)
		if err != nil {
			return CreateJobResult{}, fmt.Errorf("check existing novel: %w", err)
		}
		if found {
			c.logger.Info("source already ingested",
				zap.String("source_url", req.SourceURL), zap.String("slug", novel.Slug))
			return CreateJobResult{AlreadyIngested: true, NovelSlug: novel.Slug}, nil
		}
	}

	now := c.clock.Now()
	job := ingest.Job{
		ID:        c.newID(),
		SourceURL: req.SourceURL,
		Extractor: extractorName,
		Status:    ingest.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.jobs.CreateJob(ctx, job); err != nil {
		return CreateJobResult{}, fmt.Errorf("create job row: %w", err)
	}
	item := ingest.QueueItem{
		JobID:      job.ID,
		SourceURL:  job.SourceURL,
		Extractor:  job.Extractor,
		EnqueuedAt: now,
	}
	if err := c.queue.Enqueue(ctx, item); err != nil {
		// The row stays queued and can be re-enqueued later.
		// Surfacing the error lets the caller know the job is not
		// yet in flight.
		return CreateJobResult{}, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	metrics.JobsEnqueued.Inc()
	c.logger.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("source_url", job.SourceURL),
		zap.String("extractor", job.Extractor))
	return CreateJobResult{Job: job}, nil
}

// GetJob fetches a job row for status reporting.
func (c *Coordinator) GetJob(ctx context.Context, jobID string) (ingest.Job, error) {
	return c.jobs.GetJob(ctx, jobID)
}
