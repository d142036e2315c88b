package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eventlens/crawler/internal/ingest"
)

const eventColumns = `
id, crawl_job_id, website_id, event_data, overall_confidence, field_confidences,
COALESCE(ai_notes, ''), source_url, review_status, COALESCE(reviewed_by, ''),
COALESCE(review_notes, ''), reviewed_at, published_at, created_at`

// EventStore persists extracted events in Postgres. The review transition is
// guarded in SQL: only a pending row can be resolved, so the first
// disposition always wins.
type EventStore struct {
	db DB
}

// NewEventStore constructs an EventStore on the given pool.
func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db}
}

// CreateEvent inserts an event row in pending review status. A UNIQUE
// constraint on crawl_job_id enforces at most one event per job.
func (s *EventStore) CreateEvent(ctx context.Context, event ingest.Event) error {
	dataJSON, err := json.Marshal(event.EventData)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	confJSON, err := json.Marshal(event.FieldConfidences)
	if err != nil {
		return fmt.Errorf("marshal field confidences: %w", err)
	}
	const query = `
INSERT INTO extracted_events (
	id, crawl_job_id, website_id, event_data, overall_confidence,
	field_confidences, ai_notes, source_url, review_status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9)`
	if _, err := s.db.Exec(ctx, query,
		event.ID, event.CrawlJobID, event.WebsiteID, dataJSON, event.OverallConfidence,
		confJSON, event.AINotes, event.SourceURL, event.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent fetches an event by ID.
func (s *EventStore) GetEvent(ctx context.Context, id string) (ingest.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM extracted_events WHERE id = $1`
	event, err := scanEvent(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Event{}, ingest.ErrNotFound
	}
	return event, err
}

// ListEvents returns events newest first, filtered by website and minimum
// confidence, bounded by the filter limit.
func (s *EventStore) ListEvents(ctx context.Context, filter ingest.EventFilter) ([]ingest.Event, error) {
	var (
		conds []string
		args  []any
	)
	if filter.WebsiteID != "" {
		args = append(args, filter.WebsiteID)
		conds = append(conds, fmt.Sprintf("website_id = $%d", len(args)))
	}
	if filter.MinConfidence > 0 {
		args = append(args, filter.MinConfidence)
		conds = append(conds, fmt.Sprintf("overall_confidence >= $%d", len(args)))
	}
	query := `SELECT ` + eventColumns + ` FROM extracted_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	out := make([]ingest.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// DeleteEvent removes an event by ID.
func (s *EventStore) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM extracted_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ingest.ErrNotFound
	}
	return nil
}

// UpdateEventData shallow-merges the patch into the event's data tree using
// jsonb concatenation: incoming top-level keys overwrite, the rest are
// preserved. Review fields are untouched.
func (s *EventStore) UpdateEventData(ctx context.Context, id string, data map[string]any) (ingest.Event, error) {
	patchJSON, err := json.Marshal(data)
	if err != nil {
		return ingest.Event{}, fmt.Errorf("marshal event data patch: %w", err)
	}
	query := `
UPDATE extracted_events SET event_data = event_data || $2::jsonb
WHERE id = $1
RETURNING ` + eventColumns
	event, err := scanEvent(s.db.QueryRow(ctx, query, id, patchJSON))
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Event{}, ingest.ErrNotFound
	}
	return event, err
}

// ApplyReview resolves a pending event. The WHERE clause pins pending status
// so a second reviewer loses the race; the current status is read back to
// build the ConflictError.
func (s *EventStore) ApplyReview(ctx context.Context, id string, d ingest.Disposition, reviewedAt time.Time, publishedAt *time.Time) (ingest.Event, error) {
	query := `
UPDATE extracted_events
SET review_status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = $5, published_at = $6
WHERE id = $1 AND review_status = 'pending'
RETURNING ` + eventColumns
	event, err := scanEvent(s.db.QueryRow(ctx, query,
		id, string(d.Status), d.ReviewedBy, d.Notes, reviewedAt, publishedAt,
	))
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ingest.Event{}, err
	}

	var current ingest.ReviewStatus
	err = s.db.QueryRow(ctx, `SELECT review_status FROM extracted_events WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Event{}, ingest.ErrNotFound
	}
	if err != nil {
		return ingest.Event{}, fmt.Errorf("select review status: %w", err)
	}
	return ingest.Event{}, &ingest.ConflictError{Status: current}
}

func scanEvent(row pgx.Row) (ingest.Event, error) {
	var (
		event    ingest.Event
		dataJSON []byte
		confJSON []byte
	)
	err := row.Scan(
		&event.ID, &event.CrawlJobID, &event.WebsiteID, &dataJSON, &event.OverallConfidence,
		&confJSON, &event.AINotes, &event.SourceURL, &event.ReviewStatus, &event.ReviewedBy,
		&event.ReviewNotes, &event.ReviewedAt, &event.PublishedAt, &event.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Event{}, err
	}
	if err != nil {
		return ingest.Event{}, fmt.Errorf("scan event: %w", err)
	}
	if err := json.Unmarshal(dataJSON, &event.EventData); err != nil {
		return ingest.Event{}, fmt.Errorf("unmarshal event data: %w", err)
	}
	if err := json.Unmarshal(confJSON, &event.FieldConfidences); err != nil {
		return ingest.Event{}, fmt.Errorf("unmarshal field confidences: %w", err)
	}
	return event, nil
}
