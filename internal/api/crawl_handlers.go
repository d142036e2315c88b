package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eventlens/crawler/internal/ingest"
)

const maxBatchURLs = 50

type crawlRequest struct {
	WebsiteID     string `json:"website_id"`
	URL           string `json:"url"`
	UseJavascript bool   `json:"use_javascript"`
}

type batchCrawlRequest struct {
	WebsiteID     string   `json:"website_id"`
	URLs          []string `json:"urls"`
	UseJavascript bool     `json:"use_javascript"`
}

type crawlAccepted struct {
	JobID  string           `json:"jobId"`
	URL    string           `json:"url"`
	Status ingest.JobStatus `json:"status"`
}

func (s *Server) submitCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	accepted, err := s.enqueueCrawls(r.Context(), req.WebsiteID, []string{req.URL}, req.UseJavascript)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted[0])
}

func (s *Server) submitBatchCrawl(w http.ResponseWriter, r *http.Request) {
	var req batchCrawlRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if len(req.URLs) == 0 {
		s.respondError(w, ingest.NewValidationError("urls must not be empty"))
		return
	}
	if len(req.URLs) > maxBatchURLs {
		s.respondError(w, ingest.NewValidationError("at most %d urls per batch", maxBatchURLs))
		return
	}
	accepted, err := s.enqueueCrawls(r.Context(), req.WebsiteID, req.URLs, req.UseJavascript)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"jobs": accepted})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// enqueueCrawls validates the website synchronously, then creates each job
// pending and hands it to the dispatcher. The fetch itself happens on a
// worker; callers poll GET /api/crawl/{job_id}.
func (s *Server) enqueueCrawls(ctx context.Context, websiteID string, urls []string, useJavascript bool) ([]crawlAccepted, error) {
	if websiteID == "" {
		return nil, ingest.NewValidationError("website_id is required")
	}
	for _, raw := range urls {
		if err := validateURL(raw); err != nil {
			return nil, err
		}
	}
	site, err := s.websites.GetWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}

	mode := ingest.RenderModeStatic
	if useJavascript {
		mode = ingest.RenderModeRendered
	}

	accepted := make([]crawlAccepted, 0, len(urls))
	for _, raw := range urls {
		jobID, err := s.idGen.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate job id: %w", err)
		}
		now := s.clock.Now()
		job := ingest.Job{
			ID:         jobID,
			WebsiteID:  site.ID,
			URL:        raw,
			RenderMode: mode,
			Status:     ingest.JobStatusPending,
			CreatedAt:  now,
		}
		if err := s.jobs.CreateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("create job: %w", err)
		}

		queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = s.dispatcher.Enqueue(queueCtx, ingest.QueueItem{
			JobID:     jobID,
			WebsiteID: site.ID,
			URL:       raw,
			Mode:      mode,
			Submitted: now.Unix(),
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("enqueue job: %w", err)
		}
		accepted = append(accepted, crawlAccepted{JobID: jobID, URL: raw, Status: ingest.JobStatusPending})
	}
	return accepted, nil
}
