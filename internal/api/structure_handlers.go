package api

import (
	"net/http"

	"github.com/eventlens/crawler/internal/ingest"
)

type createStructureRequest struct {
	Structure map[string]any `json:"structure"`
}

func (s *Server) createStructure(w http.ResponseWriter, r *http.Request) {
	var req createStructureRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if len(req.Structure) == 0 {
		s.respondError(w, ingest.NewValidationError("structure must not be empty"))
		return
	}

	id, err := s.idGen.NewID()
	if err != nil {
		s.respondError(w, err)
		return
	}
	structure, err := s.structures.CreateStructure(r.Context(), id, req.Structure, s.clock.Now())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, structure)
}

func (s *Server) getActiveStructure(w http.ResponseWriter, r *http.Request) {
	structure, err := s.structures.GetActiveStructure(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, structure)
}

func (s *Server) listStructures(w http.ResponseWriter, r *http.Request) {
	structures, err := s.structures.ListStructures(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": structures})
}
