package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from JobStatus
		to   JobStatus
		ok   bool
	}{
		{StatusQueued, StatusCrawling, true},
		{StatusCrawling, StatusParsing, true},
		{StatusParsing, StatusSaving, true},
		{StatusSaving, StatusDone, true},

		// No skipping ahead.
		{StatusQueued, StatusParsing, false},
		{StatusCrawling, StatusDone, false},

		// No moving backward.
		{StatusParsing, StatusCrawling, false},
		{StatusSaving, StatusQueued, false},

		// Error is reachable from every working state.
		{StatusQueued, StatusError, true},
		{StatusCrawling, StatusError, true},
		{StatusParsing, StatusError, true},
		{StatusSaving, StatusError, true},

		// Terminal states are frozen.
		{StatusDone, StatusError, false},
		{StatusDone, StatusCrawling, false},
		{StatusError, StatusQueued, false},
		{StatusError, StatusError, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestQueueItemRoundTrip(t *testing.T) {
	t.Parallel()

	item := QueueItem{
		JobID:      "job-1",
		SourceURL:  "https://www.royalroad.com/fiction/1234",
		Extractor:  "royalroad",
		EnqueuedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"enqueued_at":"2025-03-14T09:30:00Z"`)

	var got QueueItem
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, item, got)
}

func TestJobStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusError.Terminal())
	for _, s := range []JobStatus{StatusQueued, StatusCrawling, StatusParsing, StatusSaving} {
		assert.False(t, s.Terminal(), string(s))
	}
}
