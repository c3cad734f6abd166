package perspective

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/emberjournal/ember/journal"
	"github.com/rs/zerolog"
)

// InfluenceType is the closed set of response-influence categories.
type InfluenceType string

const (
	InfluenceBelief     InfluenceType = "belief"
	InfluenceWisdom     InfluenceType = "wisdom"
	InfluenceEmotion    InfluenceType = "emotion"
	InfluenceExperience InfluenceType = "experience"
	InfluenceSpiritual  InfluenceType = "spiritual"
)

// Influence is a memory-derived signal that may shape a reply.
type Influence struct {
	Type     InfluenceType
	Strength float64
	Content  string
}

// RelationshipContext describes the companion's standing with one user. It
// is derived on demand from the user's perspective state and never
// persisted.
type RelationshipContext struct {
	RelationshipDepth        float64  `json:"relationship_depth"`
	SharedHistory            int      `json:"shared_history"`
	EmotionalBond            float64  `json:"emotional_bond"`
	TrustLevel               float64  `json:"trust_level"`
	CommunicationPreferences []string `json:"communication_preferences,omitempty"`
	PersonalInsights         []string `json:"personal_insights,omitempty"`
}

const (
	// minIntegrationStrength is the floor below which only the tone nudge runs.
	minIntegrationStrength = 0.3
	maxInfluences          = 10
)

// Shaper adjusts generated replies using the current perspective state and
// the relationship context for the target user.
type Shaper struct {
	engine *Engine
	logger zerolog.Logger
}

// NewShaper creates a Shaper over the given engine.
func NewShaper(engine *Engine, logger zerolog.Logger) *Shaper {
	return &Shaper{
		engine: engine,
		logger: logger.With().Str("component", "response_shaper").Logger(),
	}
}

// RelationshipFor derives the relationship context for a user. Users with no
// accumulated memories get low-trust defaults.
func (s *Shaper) RelationshipFor(userID string) RelationshipContext {
	count := s.engine.MemoryCount(userID)
	if count == 0 {
		return RelationshipContext{
			RelationshipDepth: 0.2,
			EmotionalBond:     0.2,
			TrustLevel:        0.3,
		}
	}

	state := s.engine.State(userID)
	return RelationshipContext{
		RelationshipDepth:        math.Min(1, 0.2+float64(count)/50),
		SharedHistory:            count,
		EmotionalBond:            math.Min(1, state.Tone.Warmth*0.5+float64(count)/100),
		TrustLevel:               math.Min(1, 0.3+float64(count)/40),
		CommunicationPreferences: state.DominantBeliefs,
		PersonalInsights:         state.ActiveWisdom,
	}
}

// collectInfluences derives up to ten typed influences from the user's
// influential-memory window, ranked by strength descending.
func (s *Shaper) collectInfluences(userID string) []Influence {
	var influences []Influence
	for _, mem := range s.engine.InfluentialMemories(userID) {
		influences = append(influences, influencesFromMemory(mem)...)
	}

	sort.SliceStable(influences, func(i, j int) bool {
		return influences[i].Strength > influences[j].Strength
	})
	if len(influences) > maxInfluences {
		influences = influences[:maxInfluences]
	}
	return influences
}

// influencesFromMemory maps one memory's scores onto typed influences.
func influencesFromMemory(mem journal.Memory) []Influence {
	var out []Influence
	if len(mem.BeliefTags) > 0 && mem.InfluenceScore > 0 {
		out = append(out, Influence{
			Type:     InfluenceBelief,
			Strength: mem.InfluenceScore,
			Content:  mem.BeliefTags[0],
		})
	}
	if mem.WisdomLevel > 0.7 {
		out = append(out, Influence{
			Type:     InfluenceWisdom,
			Strength: mem.WisdomLevel,
			Content:  excerpt(mem.Content, 80),
		})
	}
	if mem.EmotionalWeight > 0.6 {
		out = append(out, Influence{
			Type:     InfluenceEmotion,
			Strength: mem.EmotionalWeight,
			Content:  mem.EmotionalResonance,
		})
	}
	if mem.PersonalRelevance > 0.6 {
		out = append(out, Influence{
			Type:     InfluenceExperience,
			Strength: mem.PersonalRelevance,
			Content:  excerpt(mem.Content, 80),
		})
	}
	if mem.SpiritualSignificance > 0.5 {
		out = append(out, Influence{
			Type:     InfluenceSpiritual,
			Strength: mem.SpiritualSignificance,
			Content:  excerpt(mem.Content, 80),
		})
	}
	return out
}

// ShapeResponse adjusts an already-generated reply for the target user.
// Weak or absent influences yield only a punctuation-level tone nudge; strong
// influences run the gated integration passes in a fixed order, and the tone
// pass always runs last.
func (s *Shaper) ShapeResponse(baseText, userID, conversationContext string) string {
	state := s.engine.State(userID)
	relationship := s.RelationshipFor(userID)
	influences := s.collectInfluences(userID)

	if len(influences) == 0 || influences[0].Strength < minIntegrationStrength {
		s.logger.Debug().
			Str("user_id", userID).
			Int("influences", len(influences)).
			Msg("No strong influence; applying tone nudge only")
		return toneNudge(baseText, state.Tone)
	}

	text := baseText

	byType := make(map[InfluenceType][]Influence)
	for _, inf := range influences {
		byType[inf.Type] = append(byType[inf.Type], inf)
	}

	// Integration passes run in a fixed order, each gated by influence
	// presence and a threshold on the current tone or relationship.
	if wisdom := byType[InfluenceWisdom]; len(wisdom) > 0 && state.Tone.Wisdom > 0.6 {
		text = integrateWisdom(text, wisdom[0])
	}
	if spiritual := byType[InfluenceSpiritual]; len(spiritual) > 0 && state.SpiritualAlignment > 0.5 {
		text = integrateSpiritual(text, spiritual[0])
	}
	if emotion := byType[InfluenceEmotion]; len(emotion) > 0 && state.Tone.Empathy > 0.6 {
		text = integrateEmotion(text, emotion[0])
	}
	if experience := byType[InfluenceExperience]; len(experience) > 0 && relationship.RelationshipDepth > 0.5 {
		text = integrateExperience(text, experience[0])
	}

	return toneNudge(text, state.Tone)
}

func integrateWisdom(text string, inf Influence) string {
	if inf.Content == "" {
		return text
	}
	return fmt.Sprintf("%s It reminds me of something you once wrote: %q.", strings.TrimSpace(text), inf.Content)
}

func integrateSpiritual(text string, inf Influence) string {
	return strings.TrimSpace(text) + " There may be a deeper current under this worth sitting with."
}

func integrateEmotion(text string, inf Influence) string {
	if inf.Content == "" {
		return text
	}
	return fmt.Sprintf("I can feel the weight of %s here. %s", inf.Content, strings.TrimSpace(text))
}

func integrateExperience(text string, inf Influence) string {
	if inf.Content == "" {
		return text
	}
	return fmt.Sprintf("%s This connects to what you shared before about %q.", strings.TrimSpace(text), inf.Content)
}

// toneNudge applies capitalization and punctuation-level adjustment based on
// warmth. It never rewrites the reply semantically.
func toneNudge(text string, tone CommunicationTone) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	// Capitalize the opening rune.
	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	text = string(runes)

	last := runes[len(runes)-1]
	switch {
	case tone.Warmth < 0.4:
		// Cool tone flattens exclamations.
		text = strings.TrimRight(text, "!")
		if text == "" {
			return text
		}
		if r := []rune(text)[len([]rune(text))-1]; r != '.' && r != '?' {
			text += "."
		}
	case last != '.' && last != '!' && last != '?':
		text += "."
	}
	return text
}
