package journal

import "time"

// Source indicates which pipeline produced an entry.
type Source string

const (
	SourceMemory  Source = "memory"
	SourceJournal Source = "journal"
)

// Entry is a single dated piece of user text: either a raw journal entry or a
// distilled conversational memory. Immutable once fetched.
type Entry struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	UUID          string    `json:"uuid"`
	Content       string    `json:"content"`
	Mood          string    `json:"mood,omitempty"`
	EmotionalTone string    `json:"emotional_tone,omitempty"`
	Source        Source    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}

// Tagged reports whether the entry carries any mood/tone annotation. Arc
// computation discards untagged entries.
func (e Entry) Tagged() bool {
	return e.Mood != "" || e.EmotionalTone != ""
}

// MoodTag returns the annotation used for emotional classification,
// preferring the explicit mood over the broader tone.
func (e Entry) MoodTag() string {
	if e.Mood != "" {
		return e.Mood
	}
	return e.EmotionalTone
}

// Memory is a conversational memory enriched with the scalar scores derived
// by its originating pipeline. All scores are in [0,1] and consumed
// read-only by the analytics core.
type Memory struct {
	Entry
	EmotionalResonance    string   `json:"emotional_resonance,omitempty"`
	InfluenceScore        float64  `json:"influence_score"`
	EmotionalWeight       float64  `json:"emotional_weight"`
	WisdomLevel           float64  `json:"wisdom_level"`
	SpiritualSignificance float64  `json:"spiritual_significance"`
	PersonalRelevance     float64  `json:"personal_relevance"`
	BeliefTags            []string `json:"belief_tags,omitempty"`
}

// UserRef identifies a user with journal activity.
type UserRef struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name,omitempty"`
	LastActiveAt time.Time `json:"last_active_at"`
}
