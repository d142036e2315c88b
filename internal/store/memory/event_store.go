package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eventlens/crawler/internal/ingest"
)

// EventStore keeps extracted events in memory.
type EventStore struct {
	mu     sync.RWMutex
	events map[string]ingest.Event
	// byJob enforces at most one event per crawl job.
	byJob map[string]string
}

// NewEventStore constructs an EventStore.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[string]ingest.Event),
		byJob:  make(map[string]string),
	}
}

// CreateEvent stores a new event in pending review status.
func (s *EventStore) CreateEvent(_ context.Context, event ingest.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byJob[event.CrawlJobID]; exists {
		return &ingest.ValidationError{Msg: "event already exists for job " + event.CrawlJobID}
	}
	event.ReviewStatus = ingest.ReviewStatusPending
	s.events[event.ID] = event
	s.byJob[event.CrawlJobID] = event.ID
	return nil
}

// GetEvent fetches an event by ID.
func (s *EventStore) GetEvent(_ context.Context, id string) (ingest.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return ingest.Event{}, ingest.ErrNotFound
	}
	return event, nil
}

// ListEvents returns events newest first, filtered by website and minimum
// confidence, bounded by the filter limit.
func (s *EventStore) ListEvents(_ context.Context, filter ingest.EventFilter) ([]ingest.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ingest.Event, 0, len(s.events))
	for _, event := range s.events {
		if filter.WebsiteID != "" && event.WebsiteID != filter.WebsiteID {
			continue
		}
		if filter.MinConfidence > 0 && event.OverallConfidence < filter.MinConfidence {
			continue
		}
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// DeleteEvent removes an event by ID.
func (s *EventStore) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return ingest.ErrNotFound
	}
	delete(s.byJob, event.CrawlJobID)
	delete(s.events, id)
	return nil
}

// UpdateEventData shallow-merges the patch into the event's data tree:
// incoming top-level keys overwrite, unspecified keys are preserved. Review
// fields are never touched, whatever the review status.
func (s *EventStore) UpdateEventData(_ context.Context, id string, data map[string]any) (ingest.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return ingest.Event{}, ingest.ErrNotFound
	}
	merged := make(map[string]any, len(event.EventData)+len(data))
	for k, v := range event.EventData {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	event.EventData = merged
	s.events[id] = event
	return event, nil
}

// ApplyReview resolves a pending event. A non-pending event is rejected
// with a ConflictError carrying its current status.
func (s *EventStore) ApplyReview(_ context.Context, id string, d ingest.Disposition, reviewedAt time.Time, publishedAt *time.Time) (ingest.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return ingest.Event{}, ingest.ErrNotFound
	}
	if event.ReviewStatus != ingest.ReviewStatusPending {
		return ingest.Event{}, &ingest.ConflictError{Status: event.ReviewStatus}
	}
	event.ReviewStatus = d.Status
	event.ReviewedBy = d.ReviewedBy
	event.ReviewNotes = d.Notes
	event.ReviewedAt = &reviewedAt
	event.PublishedAt = publishedAt
	s.events[id] = event
	return event, nil
}
