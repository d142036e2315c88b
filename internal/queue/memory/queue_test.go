package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventlens/crawler/internal/ingest"
)

func TestQueue_EnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, ingest.QueueItem{JobID: "job-1"}))
	require.NoError(t, q.Enqueue(ctx, ingest.QueueItem{JobID: "job-2"}))

	item, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "job-1", item.JobID)

	item, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "job-2", item.JobID)
}

func TestQueue_DequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_EnqueueBlocksWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, ingest.QueueItem{JobID: "job-1"}))

	blockedCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(blockedCtx, ingest.QueueItem{JobID: "job-2"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()
	q.Close()

	_, err := q.Dequeue(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "queue closed")
}
