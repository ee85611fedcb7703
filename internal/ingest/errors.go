package ingest

import (
	"errors"
	"fmt"
)

// Sentinel lookup errors shared by store implementations.
var (
	ErrJobNotFound     = errors.New("job not found")
	ErrNovelNotFound   = errors.New("novel not found")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrGenreNotFound   = errors.New("genre not found")
)

// UnsupportedSourceError is returned when no extractor is registered for
// a URL's domain. It is raised at job-creation time so the job is never
// enqueued.
type UnsupportedSourceError struct {
	Domain string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("no extractor registered for domain %q", e.Domain)
}

// ExtractionError wraps a novel-level extractor failure (metadata or
// chapter list unreachable). It fails the whole job.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed at %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ChapterError records a single chapter fetch/parse failure. It does not
// fail the job; the executor skips the chapter and continues.
type ChapterError struct {
	Number int
	URL    string
	Err    error
}

func (e *ChapterError) Error() string {
	return fmt.Sprintf("chapter %d (%s): %v", e.Number, e.URL, e.Err)
}

func (e *ChapterError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage gateway failure during SAVING.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrJobTimeout marks a job that exceeded its execution bound.
var ErrJobTimeout = errors.New("job execution timed out")
