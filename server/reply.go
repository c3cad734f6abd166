package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type replyRequest struct {
	Text                string `json:"text"`
	ConversationContext string `json:"conversation_context,omitempty"`
}

type replyResponse struct {
	Text   string `json:"text"`
	Shaped string `json:"shaped"`
}

// handleReply runs a draft reply through the response shaper for a user.
func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "userID is required")
		return
	}

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	shaped := s.shaper.ShapeResponse(req.Text, userID, req.ConversationContext)
	s.respondJSON(w, http.StatusOK, replyResponse{Text: req.Text, Shaped: shaped})
}
