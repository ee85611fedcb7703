package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhaven/novelingest/internal/ingest"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newQueuedJob(id string) ingest.Job {
	return ingest.Job{
		ID:        id,
		SourceURL: "https://example.com/novel/1",
		Extractor: "example-site",
		Status:    ingest.StatusQueued,
		CreatedAt: time.Unix(100, 0).UTC(),
		UpdatedAt: time.Unix(100, 0).UTC(),
	}
}

func TestJobStoreCreateAndGet(t *testing.T) {
	t.Parallel()

	s := NewJobStore(nil)
	ctx := context.Background()
	require.NoError(t, s.CreateJob(ctx, newQueuedJob("job-1")))
	require.Error(t, s.CreateJob(ctx, newQueuedJob("job-1")), "duplicate id rejected")

	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusQueued, job.Status)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, ingest.ErrJobNotFound)
}

func TestJobStoreClaimJob(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(200, 0).UTC()}
	s := NewJobStore(clock)
	ctx := context.Background()
	require.NoError(t, s.CreateJob(ctx, newQueuedJob("job-1")))

	job, claimed, err := s.ClaimJob(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, claimed)
	assert.Equal(t, ingest.StatusCrawling, job.Status)
	assert.Equal(t, clock.now, job.UpdatedAt)

	// Duplicate delivery: the job is no longer queued, so the claim fails.
	_, claimed, err = s.ClaimJob(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, claimed)

	_, _, err = s.ClaimJob(ctx, "missing")
	assert.ErrorIs(t, err, ingest.ErrJobNotFound)
}

func TestJobStoreTransitionForwardOnly(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(300, 0).UTC()}
	s := NewJobStore(clock)
	ctx := context.Background()
	require.NoError(t, s.CreateJob(ctx, newQueuedJob("job-1")))

	_, claimed, err := s.ClaimJob(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, s.TransitionJob(ctx, "job-1", ingest.StatusParsing, ""))
	require.NoError(t, s.TransitionJob(ctx, "job-1", ingest.StatusSaving, ""))

	// Backward and skipping transitions are refused.
	assert.Error(t, s.TransitionJob(ctx, "job-1", ingest.StatusCrawling, ""))
	assert.Error(t, s.TransitionJob(ctx, "job-1", ingest.StatusQueued, ""))

	require.NoError(t, s.TransitionJob(ctx, "job-1", ingest.StatusDone, ""))

	// Terminal states never transition again.
	assert.Error(t, s.TransitionJob(ctx, "job-1", ingest.StatusError, "late failure"))
	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusDone, job.Status)
	assert.Empty(t, job.ErrorMessage)
}

func TestJobStoreErrorFromAnyWorkingState(t *testing.T) {
	t.Parallel()

	s := NewJobStore(nil)
	ctx := context.Background()
	require.NoError(t, s.CreateJob(ctx, newQueuedJob("job-1")))
	_, _, err := s.ClaimJob(ctx, "job-1")
	require.NoError(t, err)

	require.NoError(t, s.TransitionJob(ctx, "job-1", ingest.StatusError, "chapter list unreachable"))
	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, ingest.StatusError, job.Status)
	assert.Equal(t, "chapter list unreachable", job.ErrorMessage)
}
