package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eventlens/crawler/internal/ingest"
)

type createWebsiteRequest struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Notes   string `json:"notes"`
	Active  *bool  `json:"active"`
}

func (s *Server) createWebsite(w http.ResponseWriter, r *http.Request) {
	var req createWebsiteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, ingest.NewValidationError("name is required"))
		return
	}
	if err := validateURL(req.BaseURL); err != nil {
		s.respondError(w, err)
		return
	}

	id, err := s.idGen.NewID()
	if err != nil {
		s.respondError(w, err)
		return
	}
	site := ingest.Website{
		ID:        id,
		Name:      req.Name,
		BaseURL:   req.BaseURL,
		Notes:     req.Notes,
		Active:    true,
		CreatedAt: s.clock.Now(),
	}
	if req.Active != nil {
		site.Active = *req.Active
	}
	if err := s.websites.CreateWebsite(r.Context(), site); err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, site)
}

func (s *Server) listWebsites(w http.ResponseWriter, r *http.Request) {
	// active_only defaults to true; pass active_only=false to include
	// deactivated websites.
	activeOnly := r.URL.Query().Get("active_only") != "false"
	sites, err := s.websites.ListWebsites(r.Context(), activeOnly)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"websites": sites})
}

func (s *Server) getWebsite(w http.ResponseWriter, r *http.Request) {
	site, err := s.websites.GetWebsite(r.Context(), chi.URLParam(r, "website_id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (s *Server) deleteWebsite(w http.ResponseWriter, r *http.Request) {
	if err := s.websites.DeleteWebsite(r.Context(), chi.URLParam(r, "website_id")); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ingest.NewValidationError("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ingest.NewValidationError("url must be absolute http(s): %q", raw)
	}
	return nil
}
