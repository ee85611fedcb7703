// Package executor runs one ingestion job end to end: claim, crawl,
// normalize, save.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quillhaven/novelingest/internal/ingest"
	"github.com/quillhaven/novelingest/internal/metrics"
	"github.com/quillhaven/novelingest/internal/normalize"
)

// DefaultJobTimeout bounds a single job execution.
const DefaultJobTimeout = time.Hour

// ExtractorResolver resolves an extractor by registry name.
type ExtractorResolver interface {
	Get(name string) (ingest.Extractor, error)
}

// Config wires an Executor.
type Config struct {
	Jobs       ingest.JobStore
	Library    ingest.LibraryStore
	Extractors ExtractorResolver
	Normalizer *normalize.Normalizer
	Logger     *zap.Logger
	Clock      ingest.Clock
	JobTimeout time.Duration
}

// Executor drives a claimed job through the crawl, parse, and save
// stages. A failure in any stage moves the job to error; a failed
// chapter fetch only skips that chapter.
type Executor struct {
	jobs       ingest.JobStore
	library    ingest.LibraryStore
	extractors ExtractorResolver
	normalizer *normalize.Normalizer
	logger     *zap.Logger
	clock      ingest.Clock
	jobTimeout time.Duration
}

// New builds an Executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Jobs == nil || cfg.Library == nil || cfg.Extractors == nil {
		return nil, fmt.Errorf("jobs, library, and extractors are required")
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = normalize.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = ingest.SystemClock{}
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	return &Executor{
		jobs:       cfg.Jobs,
		library:    cfg.Library,
		extractors: cfg.Extractors,
		normalizer: cfg.Normalizer,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
		jobTimeout: cfg.JobTimeout,
	}, nil
}

// Execute runs one dequeued job. It never lets a job failure escape as
// an error: failures are recorded on the job row and logged, and the
// returned error is reserved for infrastructure problems the caller
// may want to surface.
func (e *Executor) Execute(ctx context.Context, item ingest.QueueItem) (err error) {
	log := e.logger.With(zap.String("job_id", item.JobID), zap.String("source_url", item.SourceURL))

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.Any("panic", r))
			e.failJob(ctx, log, item.JobID, fmt.Sprintf("internal error: %v", r))
			err = nil
		}
	}()

	job, claimed, err := e.jobs.ClaimJob(ctx, item.JobID)
	if err != nil {
		if errors.Is(err, ingest.ErrJobNotFound) {
			// Dangling queue entry; drop it.
			log.Warn("dequeued job has no row, discarding")
			return nil
		}
		return fmt.Errorf("claim job %s: %w", item.JobID, err)
	}
	if !claimed {
		log.Info("duplicate delivery, job already claimed",
			zap.String("status", string(job.Status)))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.jobTimeout)
	defer cancel()

	start := time.Now()
	result, runErr := e.run(ctx, log, job)
	if runErr != nil {
		metrics.JobsFailed.Inc()
		e.failJob(ctx, log, job.ID, e.failureMessage(ctx, runErr))
		return nil
	}

	metrics.JobsCompleted.Inc()
	metrics.ChaptersIngested.Add(float64(result.ChaptersSaved))
	metrics.JobDuration.Observe(time.Since(start).Seconds())
	log.Info("job done",
		zap.Int64("novel_id", result.NovelID),
		zap.Int("chapters_saved", result.ChaptersSaved),
		zap.Int("chapters_skipped", result.ChaptersSkipped),
		zap.Int("word_count", result.WordCount),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (e *Executor) run(ctx context.Context, log *zap.Logger, job ingest.Job) (ingest.IngestionResult, error) {
	ex, err := e.extractors.Get(job.Extractor)
	if err != nil {
		return ingest.IngestionResult{}, fmt.Errorf("resolve extractor: %w", err)
	}

	meta, err := ex.FetchNovelMetadata(ctx, job.SourceURL)
	if err != nil {
		return ingest.IngestionResult{}, &ingest.ExtractionError{Stage: "metadata", Err: err}
	}
	refs, err := ex.FetchChapterList(ctx, job.SourceURL)
	if err != nil {
		return ingest.IngestionResult{}, &ingest.ExtractionError{Stage: "chapter_list", Err: err}
	}
	log.Info("crawl started",
		zap.String("title", meta.Title),
		zap.Int("chapters", len(refs)))

	raw := make([]ingest.RawChapter, 0, len(refs))
	skipped := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			return ingest.IngestionResult{}, ingest.ErrJobTimeout
		}
		html, err := ex.FetchChapterContent(ctx, ref.URL)
		if err != nil {
			skipped++
			metrics.ChaptersSkipped.Inc()
			chErr := &ingest.ChapterError{Number: ref.Number, URL: ref.URL, Err: err}
			log.Warn("chapter skipped", zap.Int("chapter", ref.Number), zap.Error(chErr))
			continue
		}
		raw = append(raw, ingest.RawChapter{Number: ref.Number, Title: ref.Title, HTML: html})
	}

	if err := e.jobs.TransitionJob(ctx, job.ID, ingest.StatusParsing, ""); err != nil {
		return ingest.IngestionResult{}, fmt.Errorf("enter parsing: %w", err)
	}
	normalized := e.normalizer.Normalize(job.SourceURL, meta, raw)

	if err := e.jobs.TransitionJob(ctx, job.ID, ingest.StatusSaving, ""); err != nil {
		return ingest.IngestionResult{}, fmt.Errorf("enter saving: %w", err)
	}
	saved, err := e.library.SaveIngestion(ctx, normalized.Novel, normalized.Chapters, normalized.GenreSlugs)
	if err != nil {
		return ingest.IngestionResult{}, &ingest.PersistenceError{Err: err}
	}

	if err := e.jobs.TransitionJob(ctx, job.ID, ingest.StatusDone, ""); err != nil {
		return ingest.IngestionResult{}, fmt.Errorf("enter done: %w", err)
	}
	return ingest.IngestionResult{
		NovelID:         saved.ID,
		ChaptersSaved:   len(normalized.Chapters),
		ChaptersSkipped: skipped,
		WordCount:       saved.WordCount,
	}, nil
}

func (e *Executor) failureMessage(ctx context.Context, runErr error) string {
	if errors.Is(runErr, ingest.ErrJobTimeout) ||
		(ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Sprintf("%v after %s", ingest.ErrJobTimeout, e.jobTimeout)
	}
	return runErr.Error()
}

// failJob records the failure on the job row. The write uses a fresh
// deadline so a timed-out job context cannot block its own error
// transition.
func (e *Executor) failJob(ctx context.Context, log *zap.Logger, jobID, msg string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := e.jobs.TransitionJob(writeCtx, jobID, ingest.StatusError, msg); err != nil {
		log.Error("could not record job failure", zap.String("failure", msg), zap.Error(err))
		return
	}
	log.Error("job failed", zap.String("failure", msg))
}
