// Package memory provides in-memory store implementations for
// development and testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/quillhaven/novelingest/internal/ingest"
)

// JobStore keeps ingestion job rows in process memory.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]ingest.Job
	clock ingest.Clock
}

// NewJobStore constructs a JobStore.
func NewJobStore(clock ingest.Clock) *JobStore {
	if clock == nil {
		clock = ingest.SystemClock{}
	}
	return &JobStore{
		jobs:  make(map[string]ingest.Job),
		clock: clock,
	}
}

// CreateJob stores a new job row.
func (s *JobStore) CreateJob(_ context.Context, job ingest.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (ingest.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ingest.Job{}, ingest.ErrJobNotFound
	}
	return job, nil
}

// ClaimJob atomically moves a queued job to crawling. A job in any other
// status is returned unclaimed, which is how duplicate queue deliveries
// are rejected.
func (s *JobStore) ClaimJob(_ context.Context, jobID string) (ingest.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ingest.Job{}, false, ingest.ErrJobNotFound
	}
	if job.Status != ingest.StatusQueued {
		return job, false, nil
	}
	job.Status = ingest.StatusCrawling
	job.UpdatedAt = s.clock.Now()
	s.jobs[jobID] = job
	return job, true, nil
}

// TransitionJob advances a job to the given status, refusing backward
// moves and transitions out of a terminal state.
func (s *JobStore) TransitionJob(_ context.Context, jobID string, status ingest.JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ingest.ErrJobNotFound
	}
	if !job.Status.CanTransition(status) {
		return fmt.Errorf("illegal transition %s -> %s for job %s", job.Status, status, jobID)
	}
	job.Status = status
	if status == ingest.StatusError {
		job.ErrorMessage = errMsg
	}
	job.UpdatedAt = s.clock.Now()
	s.jobs[jobID] = job
	return nil
}
