package ingest

import (
	"context"
	"time"
)

// JobStore persists ingestion job rows.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)

	// ClaimJob atomically moves a queued job to crawling and returns it.
	// The second return is false when the stored status is not queued,
	// which is how duplicate queue deliveries are rejected.
	ClaimJob(ctx context.Context, jobID string) (Job, bool, error)

	// TransitionJob advances a claimed job to the given status. errMsg is
	// stored only for error transitions. Implementations must refuse
	// backward transitions and transitions out of a terminal state.
	TransitionJob(ctx context.Context, jobID string, status JobStatus, errMsg string) error
}

// LibraryStore is the storage gateway for canonical novel records.
// SaveIngestion commits the whole attempt as one logical unit: novel
// upsert, chapter replacement keyed by (novel_id, number), genre upserts
// by slug, and novel-genre relinking either all land or none do.
type LibraryStore interface {
	SaveIngestion(ctx context.Context, novel Novel, chapters []Chapter, genreSlugs []string) (Novel, error)
	FindNovelBySourceURL(ctx context.Context, sourceURL string) (Novel, bool, error)

	GetNovelBySlug(ctx context.Context, slug string) (Novel, error)
	ListNovels(ctx context.Context, opts NovelListOptions) ([]Novel, int, error)
	ListChapters(ctx context.Context, novelID int64) ([]Chapter, error)
	GetChapter(ctx context.Context, novelID int64, number int) (Chapter, error)
	ListGenres(ctx context.Context) ([]Genre, error)
	GetGenreBySlug(ctx context.Context, slug string) (Genre, error)
}

// NovelListOptions filters and pages the read-only novel listing.
type NovelListOptions struct {
	Search    string
	GenreSlug string
	Offset    int
	Limit     int
}

// Queue provides at-least-once enqueue/dequeue of job pointers.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	// Dequeue blocks until an item is available or the context ends.
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Extractor is the per-site capability interface. Each call may fail
// independently; chapter content failures are tolerated per chapter.
type Extractor interface {
	Name() string
	FetchNovelMetadata(ctx context.Context, url string) (NovelMetadata, error)
	FetchChapterList(ctx context.Context, url string) ([]ChapterRef, error)
	FetchChapterContent(ctx context.Context, url string) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
