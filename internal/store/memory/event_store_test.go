package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventlens/crawler/internal/ingest"
)

func seedEvent(t *testing.T, s *EventStore, id, jobID, websiteID string, confidence float64, createdAt time.Time) {
	t.Helper()
	require.NoError(t, s.CreateEvent(context.Background(), ingest.Event{
		ID:                id,
		CrawlJobID:        jobID,
		WebsiteID:         websiteID,
		EventData:         map[string]any{"title": "Old", "venue": "Hall A"},
		OverallConfidence: confidence,
		CreatedAt:         createdAt,
	}))
}

func TestEventStore_CreateForcesPending(t *testing.T) {
	t.Parallel()

	s := NewEventStore()
	require.NoError(t, s.CreateEvent(context.Background(), ingest.Event{
		ID:           "ev-1",
		CrawlJobID:   "job-1",
		ReviewStatus: ingest.ReviewStatusApproved,
	}))

	event, err := s.GetEvent(context.Background(), "ev-1")
	require.NoError(t, err)
	require.Equal(t, ingest.ReviewStatusPending, event.ReviewStatus)
}

func TestEventStore_AtMostOneEventPerJob(t *testing.T) {
	t.Parallel()

	s := NewEventStore()
	seedEvent(t, s, "ev-1", "job-1", "site-1", 80, time.Unix(1, 0))

	err := s.CreateEvent(context.Background(), ingest.Event{ID: "ev-2", CrawlJobID: "job-1"})
	var valErr *ingest.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestEventStore_ListFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewEventStore()
	seedEvent(t, s, "ev-1", "job-1", "site-1", 90, time.Unix(1, 0))
	seedEvent(t, s, "ev-2", "job-2", "site-1", 40, time.Unix(2, 0))
	seedEvent(t, s, "ev-3", "job-3", "site-2", 95, time.Unix(3, 0))

	bySite, err := s.ListEvents(ctx, ingest.EventFilter{WebsiteID: "site-1"})
	require.NoError(t, err)
	require.Len(t, bySite, 2)
	// Newest first.
	require.Equal(t, "ev-2", bySite[0].ID)

	confident, err := s.ListEvents(ctx, ingest.EventFilter{MinConfidence: 85})
	require.NoError(t, err)
	require.Len(t, confident, 2)

	limited, err := s.ListEvents(ctx, ingest.EventFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "ev-3", limited[0].ID)
}

func TestEventStore_ApplyReviewApproved(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewEventStore()
	seedEvent(t, s, "ev-1", "job-1", "site-1", 80, time.Unix(1, 0))

	reviewedAt := time.Unix(100, 0)
	publishedAt := reviewedAt
	event, err := s.ApplyReview(ctx, "ev-1", ingest.Disposition{
		Status:     ingest.ReviewStatusApproved,
		ReviewedBy: "reviewer-1",
		Notes:      "looks right",
	}, reviewedAt, &publishedAt)

	require.NoError(t, err)
	require.Equal(t, ingest.ReviewStatusApproved, event.ReviewStatus)
	require.Equal(t, "reviewer-1", event.ReviewedBy)
	require.NotNil(t, event.PublishedAt)
	require.Equal(t, publishedAt, *event.PublishedAt)
}

func TestEventStore_SecondReviewConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewEventStore()
	seedEvent(t, s, "ev-1", "job-1", "site-1", 80, time.Unix(1, 0))

	reviewedAt := time.Unix(100, 0)
	_, err := s.ApplyReview(ctx, "ev-1", ingest.Disposition{
		Status:     ingest.ReviewStatusRejected,
		ReviewedBy: "reviewer-1",
	}, reviewedAt, nil)
	require.NoError(t, err)

	_, err = s.ApplyReview(ctx, "ev-1", ingest.Disposition{
		Status:     ingest.ReviewStatusApproved,
		ReviewedBy: "reviewer-2",
	}, time.Unix(200, 0), nil)

	var conflict *ingest.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, ingest.ReviewStatusRejected, conflict.Status)

	// Original disposition untouched.
	event, err := s.GetEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Equal(t, ingest.ReviewStatusRejected, event.ReviewStatus)
	require.Equal(t, "reviewer-1", event.ReviewedBy)
	require.Equal(t, reviewedAt, *event.ReviewedAt)
	require.Nil(t, event.PublishedAt)
}

func TestEventStore_UpdateEventDataShallowMerge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewEventStore()
	seedEvent(t, s, "ev-1", "job-1", "site-1", 80, time.Unix(1, 0))

	event, err := s.UpdateEventData(ctx, "ev-1", map[string]any{"title": "New Title"})
	require.NoError(t, err)
	require.Equal(t, "New Title", event.EventData["title"])
	require.Equal(t, "Hall A", event.EventData["venue"])
}

func TestEventStore_DeleteEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewEventStore()
	seedEvent(t, s, "ev-1", "job-1", "site-1", 80, time.Unix(1, 0))

	require.NoError(t, s.DeleteEvent(ctx, "ev-1"))
	_, err := s.GetEvent(ctx, "ev-1")
	require.ErrorIs(t, err, ingest.ErrNotFound)
	require.ErrorIs(t, s.DeleteEvent(ctx, "ev-1"), ingest.ErrNotFound)

	// Job slot is released once the event is gone.
	require.NoError(t, s.CreateEvent(ctx, ingest.Event{ID: "ev-2", CrawlJobID: "job-1"}))
}
