package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhaven/novelingest/internal/ingest"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	t.Cleanup(q.Close)
	ctx := context.Background()

	first := ingest.QueueItem{JobID: "job-1", SourceURL: "https://www.royalroad.com/fiction/1", Extractor: "royalroad"}
	second := ingest.QueueItem{JobID: "job-2", SourceURL: "https://www.royalroad.com/fiction/2", Extractor: "royalroad"}
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-2", got.JobID)
}

func TestQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	t.Cleanup(q.Close)

	result := make(chan ingest.QueueItem, 1)
	go func() {
		item, err := q.Dequeue(context.Background())
		if err == nil {
			result <- item
		}
	}()

	item := ingest.QueueItem{JobID: "job-1", SourceURL: "https://www.royalroad.com/fiction/1"}
	require.NoError(t, q.Enqueue(context.Background(), item))

	select {
	case got := <-result:
		assert.Equal(t, "job-1", got.JobID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return item")
	}
}

func TestQueueCancelationErrors(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	t.Cleanup(q.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Dequeue(ctx)
	assert.EqualError(t, err, "dequeue canceled: context canceled")

	// Fill the queue so the canceled enqueue cannot complete instantly.
	require.NoError(t, q.Enqueue(context.Background(), ingest.QueueItem{JobID: "primed"}))
	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	err = q.Enqueue(ctx, ingest.QueueItem{})
	assert.EqualError(t, err, "enqueue canceled: context canceled")
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()

	_, err := q.Dequeue(context.Background())
	assert.EqualError(t, err, "queue closed")

	// Closing twice must be safe.
	q.Close()
}
