package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhaven/novelingest/internal/ingest"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newJobStore(t *testing.T) (*JobStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewJobStore(mock, fakeClock{now: testNow})
	require.NoError(t, err)
	return store, mock
}

func TestJobStoreCreateJob(t *testing.T) {
	t.Parallel()
	store, mock := newJobStore(t)

	job := ingest.Job{
		ID:        "job-1",
		SourceURL: "https://www.royalroad.com/fiction/1234",
		Extractor: "royalroad",
		Status:    ingest.StatusQueued,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	mock.ExpectExec("INSERT INTO ingestion_jobs").
		WithArgs(job.ID, job.SourceURL, job.Extractor, "queued", "", testNow, testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateJob(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreGetJobNotFound(t *testing.T) {
	t.Parallel()
	store, mock := newJobStore(t)

	mock.ExpectQuery("SELECT id, source_url, extractor").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ingest.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreClaimJob(t *testing.T) {
	t.Parallel()
	store, mock := newJobStore(t)

	created := testNow.Add(-time.Minute)
	mock.ExpectQuery("UPDATE ingestion_jobs SET status").
		WithArgs("job-1", "crawling", testNow, "queued").
		WillReturnRows(pgxmock.NewRows([]string{"source_url", "extractor", "created_at"}).
			AddRow("https://www.royalroad.com/fiction/1234", "royalroad", created))

	job, claimed, err := store.ClaimJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, ingest.StatusCrawling, job.Status)
	assert.Equal(t, "royalroad", job.Extractor)
	assert.Equal(t, created, job.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreClaimJobAlreadyClaimed(t *testing.T) {
	t.Parallel()
	store, mock := newJobStore(t)

	mock.ExpectQuery("UPDATE ingestion_jobs SET status").
		WithArgs("job-1", "crawling", testNow, "queued").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT id, source_url, extractor").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source_url", "extractor", "status", "error_message", "created_at", "updated_at",
		}).AddRow("job-1", "https://www.royalroad.com/fiction/1234", "royalroad", "done", "", testNow, testNow))

	job, claimed, err := store.ClaimJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, ingest.StatusDone, job.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreTransitionJob(t *testing.T) {
	t.Parallel()
	store, mock := newJobStore(t)

	mock.ExpectQuery("SELECT id, source_url, extractor").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source_url", "extractor", "status", "error_message", "created_at", "updated_at",
		}).AddRow("job-1", "https://www.royalroad.com/fiction/1234", "royalroad", "crawling", "", testNow, testNow))
	mock.ExpectExec("UPDATE ingestion_jobs SET status").
		WithArgs("job-1", "parsing", "", testNow, "crawling").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.TransitionJob(context.Background(), "job-1", ingest.StatusParsing, ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreTransitionJobBackwardRefused(t *testing.T) {
	t.Parallel()
	store, mock := newJobStore(t)

	mock.ExpectQuery("SELECT id, source_url, extractor").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source_url", "extractor", "status", "error_message", "created_at", "updated_at",
		}).AddRow("job-1", "https://www.royalroad.com/fiction/1234", "royalroad", "saving", "", testNow, testNow))

	err := store.TransitionJob(context.Background(), "job-1", ingest.StatusCrawling, "")
	assert.ErrorContains(t, err, "illegal transition")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStoreTransitionJobToError(t *testing.T) {
	t.Parallel()
	store, mock := newJobStore(t)

	mock.ExpectQuery("SELECT id, source_url, extractor").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source_url", "extractor", "status", "error_message", "created_at", "updated_at",
		}).AddRow("job-1", "https://www.royalroad.com/fiction/1234", "royalroad", "crawling", "", testNow, testNow))
	mock.ExpectExec("UPDATE ingestion_jobs SET status").
		WithArgs("job-1", "error", "chapter list unavailable", testNow, "crawling").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.TransitionJob(context.Background(), "job-1", ingest.StatusError, "chapter list unavailable")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
