// Package ingest defines core types shared across the ingestion subsystems.
package ingest

import (
	"time"
)

// JobStatus represents the lifecycle state of an ingestion job.
type JobStatus string

// Job status values persisted in the job store. A job moves strictly
// forward through queued -> crawling -> parsing -> saving -> done;
// error is reachable from any non-terminal working state.
const (
	StatusQueued   JobStatus = "queued"
	StatusCrawling JobStatus = "crawling"
	StatusParsing  JobStatus = "parsing"
	StatusSaving   JobStatus = "saving"
	StatusDone     JobStatus = "done"
	StatusError    JobStatus = "error"
)

// Terminal reports whether a job in this status will never transition again.
func (s JobStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// rank orders the forward path of the state machine.
func (s JobStatus) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusCrawling:
		return 1
	case StatusParsing:
		return 2
	case StatusSaving:
		return 3
	case StatusDone:
		return 4
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next is a legal step:
// the immediate next forward state, or error from any non-terminal state.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusError {
		return true
	}
	return next.rank() == s.rank()+1
}

// Job is one attempt to ingest a single source URL. Jobs are created in
// queued status by the coordinator and mutated only by the executor
// afterwards; they are never deleted by the core.
type Job struct {
	ID           string    `json:"id"`
	SourceURL    string    `json:"source_url"`
	Extractor    string    `json:"extractor"`
	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QueueItem is the persisted queue entry: a job pointer plus enough
// metadata to route it. The job store remains the source of truth.
type QueueItem struct {
	JobID      string    `json:"job_id"`
	SourceURL  string    `json:"source_url"`
	Extractor  string    `json:"extractor"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NovelMetadata is the raw novel-level output of an extractor.
type NovelMetadata struct {
	Title     string
	Synopsis  string
	Status    string
	RawGenres []string
}

// ChapterRef is one entry of an extractor's chapter list.
type ChapterRef struct {
	Number int
	Title  string
	URL    string
}

// RawChapter pairs a chapter reference with its fetched markup.
type RawChapter struct {
	Number int
	Title  string
	HTML   string
}

// Novel is the canonical stored identity for a work.
type Novel struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Synopsis  string    `json:"synopsis"`
	SourceURL string    `json:"source_url"`
	Status    string    `json:"status"`
	WordCount int       `json:"word_count"`
	Genres    []Genre   `json:"genres,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chapter belongs to exactly one novel, keyed by (novel_id, number).
type Chapter struct {
	ID        int64  `json:"id"`
	NovelID   int64  `json:"novel_id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// Genre is global and deduplicated by canonical slug.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// IngestionResult summarizes one completed executor run.
type IngestionResult struct {
	NovelID         int64
	ChaptersSaved   int
	ChaptersSkipped int
	WordCount       int
}
