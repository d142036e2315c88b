package ingest

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// WebsiteStore persists registered crawl targets.
type WebsiteStore interface {
	CreateWebsite(ctx context.Context, site Website) error
	GetWebsite(ctx context.Context, id string) (Website, error)
	ListWebsites(ctx context.Context, activeOnly bool) ([]Website, error)
	DeleteWebsite(ctx context.Context, id string) error
}

// StructureStore persists schema versions. CreateStructure must apply the
// deactivate-all-then-activate-one step as a single atomic unit.
type StructureStore interface {
	CreateStructure(ctx context.Context, id string, fields map[string]any, now time.Time) (Structure, error)
	GetActiveStructure(ctx context.Context) (Structure, error)
	ListStructures(ctx context.Context) ([]Structure, error)
}

// JobStore persists crawl jobs. Implementations reject transitions that
// would move a job backwards or out of a terminal state.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, id string) (Job, error)
	MarkProcessing(ctx context.Context, id string) error
	SaveRawContent(ctx context.Context, id string, content string) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, errText string, at time.Time) error
}

// EventStore persists extracted events and their review fields.
type EventStore interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
	UpdateEventData(ctx context.Context, id string, data map[string]any) (Event, error)
	ApplyReview(ctx context.Context, id string, d Disposition, reviewedAt time.Time, publishedAt *time.Time) (Event, error)
}

// Fetcher fetches a URL and returns the page content plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResult, error)
}

// Extractor is the boundary to the external AI model. It receives the
// (already truncated) page content, the target schema and free-text hints,
// and returns the raw model reply for the adapter to validate.
type Extractor interface {
	Extract(ctx context.Context, content string, schema map[string]any, hints string) (json.RawMessage, error)
}

// Queue provides enqueue/dequeue semantics for crawl jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes publication notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
