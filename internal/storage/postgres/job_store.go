package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quillhaven/novelingest/internal/ingest"
)

// JobStore persists ingestion job rows in Postgres.
type JobStore struct {
	pool  Pool
	clock ingest.Clock
}

// NewJobStore constructs a JobStore over an existing pool.
func NewJobStore(pool Pool, clock ingest.Clock) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if clock == nil {
		clock = ingest.SystemClock{}
	}
	return &JobStore{pool: pool, clock: clock}, nil
}

// CreateJob inserts a new job row.
func (s *JobStore) CreateJob(ctx context.Context, job ingest.Job) error {
	const query = `
INSERT INTO ingestion_jobs (id, source_url, extractor, status, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`
	_, err := s.pool.Exec(ctx, query,
		job.ID, job.SourceURL, job.Extractor, string(job.Status), job.ErrorMessage, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (ingest.Job, error) {
	const query = `
SELECT id, source_url, extractor, status, COALESCE(error_message, ''), created_at, updated_at
FROM ingestion_jobs WHERE id = $1`
	var job ingest.Job
	var status string
	err := s.pool.QueryRow(ctx, query, jobID).Scan(
		&job.ID, &job.SourceURL, &job.Extractor, &status, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Job{}, ingest.ErrJobNotFound
	}
	if err != nil {
		return ingest.Job{}, fmt.Errorf("select job: %w", err)
	}
	job.Status = ingest.JobStatus(status)
	return job, nil
}

// ClaimJob atomically moves a queued job to crawling. The conditional
// UPDATE is the duplicate-delivery guard: it claims the row only while
// its stored status is still queued.
func (s *JobStore) ClaimJob(ctx context.Context, jobID string) (ingest.Job, bool, error) {
	const query = `
UPDATE ingestion_jobs SET status = $2, updated_at = $3
WHERE id = $1 AND status = $4
RETURNING source_url, extractor, created_at`
	now := s.clock.Now()
	job := ingest.Job{
		ID:        jobID,
		Status:    ingest.StatusCrawling,
		UpdatedAt: now,
	}
	err := s.pool.QueryRow(ctx, query,
		jobID, string(ingest.StatusCrawling), now, string(ingest.StatusQueued)).
		Scan(&job.SourceURL, &job.Extractor, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Not claimable: either missing or already past queued.
		existing, getErr := s.GetJob(ctx, jobID)
		if getErr != nil {
			return ingest.Job{}, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return ingest.Job{}, false, fmt.Errorf("claim job: %w", err)
	}
	return job, true, nil
}

// TransitionJob advances a job, refusing backward moves and transitions
// out of a terminal state. The guarded UPDATE keeps the check atomic
// against concurrent writers.
func (s *JobStore) TransitionJob(ctx context.Context, jobID string, status ingest.JobStatus, errMsg string) error {
	current, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(status) {
		return fmt.Errorf("illegal transition %s -> %s for job %s", current.Status, status, jobID)
	}
	const query = `
UPDATE ingestion_jobs SET status = $2, error_message = NULLIF($3, ''), updated_at = $4
WHERE id = $1 AND status = $5`
	msg := ""
	if status == ingest.StatusError {
		msg = errMsg
	}
	tag, err := s.pool.Exec(ctx, query,
		jobID, string(status), msg, s.clock.Now(), string(current.Status))
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s changed concurrently during %s -> %s", jobID, current.Status, status)
	}
	return nil
}
