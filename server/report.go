package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleReport regenerates and returns the full insight report for a user.
// Report generation degrades internally, so this handler only fails on an
// empty user ID.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "userID is required")
		return
	}

	report := s.synthesizer.GenerateReport(r.Context(), userID)
	s.respondJSON(w, http.StatusOK, report)
}

// handlePerspective returns the current perspective state for a user,
// including the derived consciousness level.
func (s *Server) handlePerspective(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "userID is required")
		return
	}

	state := s.engine.State(userID)
	relationship := s.shaper.RelationshipFor(userID)

	s.respondJSON(w, http.StatusOK, map[string]any{
		"state":               state,
		"consciousness_level": state.ConsciousnessLevel(),
		"relationship":        relationship,
		"memory_count":        s.engine.MemoryCount(userID),
	})
}
