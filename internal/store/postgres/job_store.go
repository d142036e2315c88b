package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eventlens/crawler/internal/ingest"
)

// JobStore persists crawl jobs in Postgres. Status transitions are guarded
// in SQL so a concurrent writer can never move a job backwards.
type JobStore struct {
	db DB
}

// NewJobStore constructs a JobStore on the given pool.
func NewJobStore(db DB) *JobStore {
	return &JobStore{db: db}
}

// CreateJob inserts a job row in pending status.
func (s *JobStore) CreateJob(ctx context.Context, job ingest.Job) error {
	const query = `
INSERT INTO crawl_jobs (id, website_id, url, render_mode, status, created_at)
VALUES ($1, $2, $3, $4, 'pending', $5)`
	if _, err := s.db.Exec(ctx, query,
		job.ID, job.WebsiteID, job.URL, string(job.RenderMode), job.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(ctx context.Context, id string) (ingest.Job, error) {
	const query = `
SELECT id, website_id, url, render_mode, status, COALESCE(raw_content, ''), COALESCE(error, ''), created_at, completed_at
FROM crawl_jobs WHERE id = $1`
	var job ingest.Job
	err := s.db.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.WebsiteID, &job.URL, &job.RenderMode, &job.Status,
		&job.RawContent, &job.Error, &job.CreatedAt, &job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Job{}, ingest.ErrNotFound
	}
	if err != nil {
		return ingest.Job{}, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

// MarkProcessing moves a pending job to processing.
func (s *JobStore) MarkProcessing(ctx context.Context, id string) error {
	const query = `
UPDATE crawl_jobs SET status = 'processing'
WHERE id = $1 AND status = 'pending'`
	return s.guardedTransition(ctx, id, ingest.JobStatusProcessing, query)
}

// SaveRawContent records the bounded raw-content snapshot on the job.
func (s *JobStore) SaveRawContent(ctx context.Context, id string, content string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE crawl_jobs SET raw_content = $2 WHERE id = $1`, id, content)
	if err != nil {
		return fmt.Errorf("save raw content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ingest.ErrNotFound
	}
	return nil
}

// MarkCompleted moves a processing job to completed.
func (s *JobStore) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	const query = `
UPDATE crawl_jobs SET status = 'completed', completed_at = $2
WHERE id = $1 AND status = 'processing'`
	return s.guardedTransition(ctx, id, ingest.JobStatusCompleted, query, at)
}

// MarkFailed moves a processing job to failed, recording the error message.
func (s *JobStore) MarkFailed(ctx context.Context, id string, errText string, at time.Time) error {
	const query = `
UPDATE crawl_jobs SET status = 'failed', error = $2, completed_at = $3
WHERE id = $1 AND status = 'processing'`
	return s.guardedTransition(ctx, id, ingest.JobStatusFailed, query, errText, at)
}

// guardedTransition runs an UPDATE whose WHERE clause pins the expected
// source status. Zero rows affected means the job is missing or in the wrong
// state; the current state disambiguates.
func (s *JobStore) guardedTransition(ctx context.Context, id string, to ingest.JobStatus, query string, extra ...any) error {
	args := append([]any{id}, extra...)
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current ingest.JobStatus
	err = s.db.QueryRow(ctx, `SELECT status FROM crawl_jobs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select job status: %w", err)
	}
	return &ingest.InvalidTransitionError{From: current, To: to}
}
