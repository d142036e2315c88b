// Package api exposes the HTTP interface for the ingestion service.
// Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - /api/websites, /api/structure for crawl target and schema management.
//   - /api/crawl for job submission and inspection.
//   - /api/events for extracted records and the review workflow.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eventlens/crawler/internal/dispatcher"
	"github.com/eventlens/crawler/internal/ingest"
	"github.com/eventlens/crawler/internal/metrics"
	"github.com/eventlens/crawler/internal/review"
)

// Config controls the HTTP surface.
type Config struct {
	RequestTimeout time.Duration
	AuthEnabled    bool
	APIKey         string
}

// Server wires HTTP handlers to the stores, review service and dispatcher.
type Server struct {
	router     chi.Router
	websites   ingest.WebsiteStore
	structures ingest.StructureStore
	jobs       ingest.JobStore
	events     ingest.EventStore
	reviews    *review.Service
	dispatcher *dispatcher.Dispatcher
	idGen      ingest.IDGenerator
	clock      ingest.Clock
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	websites ingest.WebsiteStore,
	structures ingest.StructureStore,
	jobs ingest.JobStore,
	events ingest.EventStore,
	reviews *review.Service,
	dispatch *dispatcher.Dispatcher,
	idGen ingest.IDGenerator,
	clock ingest.Clock,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		websites:   websites,
		structures: structures,
		jobs:       jobs,
		events:     events,
		reviews:    reviews,
		dispatcher: dispatch,
		idGen:      idGen,
		clock:      clock,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.RequestTimeout))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.AuthEnabled {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Route("/websites", func(r chi.Router) {
			r.Post("/", s.createWebsite)
			r.Get("/", s.listWebsites)
			r.Route("/{website_id}", func(r chi.Router) {
				r.Get("/", s.getWebsite)
				r.Delete("/", s.deleteWebsite)
			})
		})
		r.Route("/structure", func(r chi.Router) {
			r.Post("/", s.createStructure)
			r.Get("/", s.getActiveStructure)
			r.Get("/versions", s.listStructures)
		})
		r.Route("/crawl", func(r chi.Router) {
			r.Post("/", s.submitCrawl)
			r.Post("/batch", s.submitBatchCrawl)
			r.Get("/{job_id}", s.getJob)
		})
		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.listEvents)
			r.Route("/{event_id}", func(r chi.Router) {
				r.Get("/", s.getEvent)
				r.Delete("/", s.deleteEvent)
				r.Post("/review", s.reviewEvent)
				r.Get("/review", s.getReviewStatus)
				r.Put("/edit", s.editEvent)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The structure store is the hard dependency for crawling; probing it
	// exercises the database connection.
	if _, err := s.structures.ListStructures(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// respondError maps domain errors onto HTTP status codes.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	var (
		validationErr *ingest.ValidationError
		conflictErr   *ingest.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, ingest.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ingest.ErrNoActiveStructure):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":         conflictErr.Error(),
			"currentStatus": string(conflictErr.Status),
		})
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return ingest.NewValidationError("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
