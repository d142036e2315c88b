// Package ingest defines core types shared across subsystems.
package ingest

import "time"

// JobStatus represents the lifecycle state of a crawl job.
type JobStatus string

// Job status values persisted in the job store. Transitions only move
// forward: pending -> processing -> completed|failed.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ReviewStatus represents the human-review state of an extracted event.
type ReviewStatus string

// Review status values. A non-pending event is resolved and can never be
// re-reviewed.
const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// RenderMode selects how a page is fetched.
type RenderMode string

const (
	// RenderModeStatic fetches the page without executing scripts.
	RenderModeStatic RenderMode = "static"
	// RenderModeRendered fetches via a full browser with script execution.
	RenderModeRendered RenderMode = "rendered"
)

// Website is a registered crawl target. Notes are free-text hints fed to
// the extraction model.
type Website struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BaseURL   string    `json:"baseUrl"`
	Notes     string    `json:"notes,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Structure is one immutable version of the target extraction schema.
// Exactly one version is active at any moment (zero before the first
// creation); versions start at 1 and increase by exactly 1.
type Structure struct {
	ID        string         `json:"id"`
	Version   int            `json:"version"`
	IsActive  bool           `json:"isActive"`
	Fields    map[string]any `json:"structure"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Job is one attempt to fetch and extract one URL for one website.
type Job struct {
	ID          string     `json:"id"`
	WebsiteID   string     `json:"websiteId"`
	URL         string     `json:"url"`
	RenderMode  RenderMode `json:"renderMode"`
	Status      JobStatus  `json:"status"`
	RawContent  string     `json:"rawContent,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Event is the extracted record produced by one successful job. At most one
// Event exists per Job. Review fields are mutated only by the review
// state machine.
type Event struct {
	ID                string         `json:"id"`
	CrawlJobID        string         `json:"crawlJobId"`
	WebsiteID         string         `json:"websiteId"`
	EventData         map[string]any `json:"eventData"`
	OverallConfidence float64        `json:"overallConfidence"`
	FieldConfidences  map[string]any `json:"fieldConfidences"`
	AINotes           string         `json:"aiNotes"`
	SourceURL         string         `json:"sourceUrl"`
	ReviewStatus      ReviewStatus   `json:"reviewStatus"`
	ReviewedBy        string         `json:"reviewedBy,omitempty"`
	ReviewNotes       string         `json:"reviewNotes,omitempty"`
	ReviewedAt        *time.Time     `json:"reviewedAt,omitempty"`
	PublishedAt       *time.Time     `json:"publishedAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// Disposition is a human review decision applied to a pending event.
type Disposition struct {
	Status     ReviewStatus
	ReviewedBy string
	Notes      string
}

// EventFilter narrows event listings.
type EventFilter struct {
	WebsiteID     string
	MinConfidence float64
	Limit         int
}

// FetchRequest captures everything needed to fetch one URL.
type FetchRequest struct {
	JobID string
	URL   string
	Mode  RenderMode
}

// FetchResult is returned by a Fetcher implementation. FinalURL may differ
// from the requested URL after redirects.
type FetchResult struct {
	FinalURL   string
	StatusCode int
	Content    string
	Duration   time.Duration
}

// Extraction is the validated output of the extraction boundary.
type Extraction struct {
	EventData        map[string]any
	FieldConfidences map[string]any
	Notes            string
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	WebsiteID string
	URL       string
	Mode      RenderMode
	Submitted int64
}
