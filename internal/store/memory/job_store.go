package memory

import (
	"context"
	"sync"
	"time"

	"github.com/eventlens/crawler/internal/ingest"
)

// JobStore keeps crawl jobs in memory and enforces forward-only status
// transitions.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]ingest.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]ingest.Job)}
}

// CreateJob stores a new job in pending status.
func (s *JobStore) CreateJob(_ context.Context, job ingest.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return &ingest.ValidationError{Msg: "job already exists"}
	}
	job.Status = ingest.JobStatusPending
	s.jobs[job.ID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, id string) (ingest.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return ingest.Job{}, ingest.ErrNotFound
	}
	return job, nil
}

// MarkProcessing moves a pending job to processing.
func (s *JobStore) MarkProcessing(_ context.Context, id string) error {
	return s.transition(id, ingest.JobStatusPending, ingest.JobStatusProcessing, func(job *ingest.Job) {})
}

// SaveRawContent records the bounded raw-content snapshot on the job.
func (s *JobStore) SaveRawContent(_ context.Context, id string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ingest.ErrNotFound
	}
	job.RawContent = content
	s.jobs[id] = job
	return nil
}

// MarkCompleted moves a processing job to completed.
func (s *JobStore) MarkCompleted(_ context.Context, id string, at time.Time) error {
	return s.transition(id, ingest.JobStatusProcessing, ingest.JobStatusCompleted, func(job *ingest.Job) {
		job.CompletedAt = &at
	})
}

// MarkFailed moves a processing job to failed, recording the error message.
func (s *JobStore) MarkFailed(_ context.Context, id string, errText string, at time.Time) error {
	return s.transition(id, ingest.JobStatusProcessing, ingest.JobStatusFailed, func(job *ingest.Job) {
		job.Error = errText
		job.CompletedAt = &at
	})
}

func (s *JobStore) transition(id string, from, to ingest.JobStatus, apply func(*ingest.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ingest.ErrNotFound
	}
	if job.Status != from {
		return &ingest.InvalidTransitionError{From: job.Status, To: to}
	}
	job.Status = to
	apply(&job)
	s.jobs[id] = job
	return nil
}
