// Package review implements the human-review workflow for extracted events.
package review

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eventlens/crawler/internal/ingest"
	"github.com/eventlens/crawler/internal/metrics"
)

// Service applies review decisions and data edits to extracted events.
// Approval implies publication: an approved event gets its publishedAt
// timestamp set in the same operation, and a notification is sent to the
// configured publisher when one is present.
type Service struct {
	events    ingest.EventStore
	publisher ingest.Publisher
	topic     string
	clock     ingest.Clock
	logger    *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher attaches a publisher notified on approvals. Publish failures
// are logged and never fail the review.
func WithPublisher(p ingest.Publisher, topic string) Option {
	return func(s *Service) {
		s.publisher = p
		s.topic = topic
	}
}

// New creates a review Service.
func New(events ingest.EventStore, clock ingest.Clock, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		events: events,
		clock:  clock,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Review resolves a pending event. The disposition must be approved or
// rejected; reviewer identity is required. An already-resolved event yields
// a ConflictError and keeps its original disposition.
func (s *Service) Review(ctx context.Context, eventID string, d ingest.Disposition) (ingest.Event, error) {
	if d.Status != ingest.ReviewStatusApproved && d.Status != ingest.ReviewStatusRejected {
		return ingest.Event{}, ingest.NewValidationError("review status must be approved or rejected, got %q", d.Status)
	}
	if d.ReviewedBy == "" {
		return ingest.Event{}, ingest.NewValidationError("reviewedBy is required")
	}

	now := s.clock.Now()
	var publishedAt *time.Time
	if d.Status == ingest.ReviewStatusApproved {
		publishedAt = &now
	}

	event, err := s.events.ApplyReview(ctx, eventID, d, now, publishedAt)
	if err != nil {
		return ingest.Event{}, err
	}
	metrics.ObserveReview(string(d.Status))

	if event.ReviewStatus == ingest.ReviewStatusApproved {
		s.notify(ctx, event)
	}
	return event, nil
}

// Edit applies a shallow merge of patch onto the event's data. Edits are
// allowed at any review status so reviewers can fix records before or after
// resolution.
func (s *Service) Edit(ctx context.Context, eventID string, patch map[string]any) (ingest.Event, error) {
	if len(patch) == 0 {
		return ingest.Event{}, ingest.NewValidationError("eventData patch must not be empty")
	}
	return s.events.UpdateEventData(ctx, eventID, patch)
}

// notify publishes an approval notification. Failures are logged only; the
// review itself has already committed.
func (s *Service) notify(ctx context.Context, event ingest.Event) {
	if s.publisher == nil {
		return
	}
	msgID, err := s.publisher.Publish(ctx, s.topic, approvedNotification{
		EventID:     event.ID,
		WebsiteID:   event.WebsiteID,
		SourceURL:   event.SourceURL,
		PublishedAt: event.PublishedAt,
	})
	if err != nil {
		s.logger.Warn("approval notification failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}
	s.logger.Info("approval notification published",
		zap.String("event_id", event.ID),
		zap.String("message_id", msgID))
}

type approvedNotification struct {
	EventID     string     `json:"eventId"`
	WebsiteID   string     `json:"websiteId"`
	SourceURL   string     `json:"sourceUrl"`
	PublishedAt *time.Time `json:"publishedAt"`
}
