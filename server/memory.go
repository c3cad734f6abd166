package server

import (
	"encoding/json"
	"net/http"

	"github.com/emberjournal/ember/journal"
	"github.com/go-chi/chi/v5"
)

type saveEntryRequest struct {
	Content       string `json:"content"`
	Mood          string `json:"mood,omitempty"`
	EmotionalTone string `json:"emotional_tone,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
}

// handleSaveEntry stores a raw journal entry for a user.
func (s *Server) handleSaveEntry(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "userID is required")
		return
	}

	var req saveEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	ctx := r.Context()
	if err := s.store.EnsureUser(ctx, userID, req.DisplayName); err != nil {
		s.logger.Error().Str("user_id", userID).Err(err).Msg("Failed to ensure user")
		s.respondError(w, http.StatusInternalServerError, "failed to save entry")
		return
	}

	entry, err := s.store.SaveEntry(ctx, userID, req.Content, req.Mood, req.EmotionalTone)
	if err != nil {
		s.logger.Error().Str("user_id", userID).Err(err).Msg("Failed to save journal entry")
		s.respondError(w, http.StatusInternalServerError, "failed to save entry")
		return
	}

	s.respondJSON(w, http.StatusCreated, entry)
}

type saveMemoryRequest struct {
	Content               string   `json:"content"`
	Mood                  string   `json:"mood,omitempty"`
	EmotionalTone         string   `json:"emotional_tone,omitempty"`
	EmotionalResonance    string   `json:"emotional_resonance,omitempty"`
	InfluenceScore        float64  `json:"influence_score"`
	EmotionalWeight       float64  `json:"emotional_weight"`
	WisdomLevel           float64  `json:"wisdom_level"`
	SpiritualSignificance float64  `json:"spiritual_significance"`
	PersonalRelevance     float64  `json:"personal_relevance"`
	BeliefTags            []string `json:"belief_tags,omitempty"`
	DisplayName           string   `json:"display_name,omitempty"`
}

// handleSaveMemory stores a scored memory and feeds it into the perspective
// engine in the same request, so the state visible afterwards already
// reflects the new memory.
func (s *Server) handleSaveMemory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "userID is required")
		return
	}

	var req saveMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if !validScores(req) {
		s.respondError(w, http.StatusBadRequest, "scores must be in [0,1]")
		return
	}

	ctx := r.Context()
	if err := s.store.EnsureUser(ctx, userID, req.DisplayName); err != nil {
		s.logger.Error().Str("user_id", userID).Err(err).Msg("Failed to ensure user")
		s.respondError(w, http.StatusInternalServerError, "failed to save memory")
		return
	}

	mem := journal.Memory{
		Entry: journal.Entry{
			UserID:        userID,
			Content:       req.Content,
			Mood:          req.Mood,
			EmotionalTone: req.EmotionalTone,
		},
		EmotionalResonance:    req.EmotionalResonance,
		InfluenceScore:        req.InfluenceScore,
		EmotionalWeight:       req.EmotionalWeight,
		WisdomLevel:           req.WisdomLevel,
		SpiritualSignificance: req.SpiritualSignificance,
		PersonalRelevance:     req.PersonalRelevance,
		BeliefTags:            req.BeliefTags,
	}

	saved, err := s.store.SaveMemory(ctx, mem)
	if err != nil {
		s.logger.Error().Str("user_id", userID).Err(err).Msg("Failed to save memory")
		s.respondError(w, http.StatusInternalServerError, "failed to save memory")
		return
	}

	state := s.engine.UpdatePerspective(userID, saved)

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"memory": saved,
		"state":  state,
	})
}

func validScores(req saveMemoryRequest) bool {
	for _, v := range []float64{
		req.InfluenceScore,
		req.EmotionalWeight,
		req.WisdomLevel,
		req.SpiritualSignificance,
		req.PersonalRelevance,
	} {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}
