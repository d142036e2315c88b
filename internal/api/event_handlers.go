package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eventlens/crawler/internal/ingest"
)

type reviewRequest struct {
	Status     string `json:"status"`
	ReviewedBy string `json:"reviewed_by"`
	Notes      string `json:"notes"`
}

type editRequest struct {
	EventData map[string]any `json:"event_data"`
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	filter := ingest.EventFilter{
		WebsiteID: r.URL.Query().Get("website_id"),
	}
	if raw := r.URL.Query().Get("min_confidence"); raw != "" {
		minConf, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.respondError(w, ingest.NewValidationError("min_confidence must be numeric: %q", raw))
			return
		}
		filter.MinConfidence = minConf
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.respondError(w, ingest.NewValidationError("limit must be a non-negative integer: %q", raw))
			return
		}
		filter.Limit = limit
	}

	events, err := s.events.ListEvents(r.Context(), filter)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.GetEvent(r.Context(), chi.URLParam(r, "event_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.events.DeleteEvent(r.Context(), chi.URLParam(r, "event_id")); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reviewEvent(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	event, err := s.reviews.Review(r.Context(), chi.URLParam(r, "event_id"), ingest.Disposition{
		Status:     ingest.ReviewStatus(req.Status),
		ReviewedBy: req.ReviewedBy,
		Notes:      req.Notes,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) getReviewStatus(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.GetEvent(r.Context(), chi.URLParam(r, "event_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"eventId":      event.ID,
		"reviewStatus": event.ReviewStatus,
		"reviewedBy":   event.ReviewedBy,
		"reviewNotes":  event.ReviewNotes,
		"reviewedAt":   event.ReviewedAt,
		"publishedAt":  event.PublishedAt,
	})
}

func (s *Server) editEvent(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	event, err := s.reviews.Edit(r.Context(), chi.URLParam(r, "event_id"), req.EventData)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}
