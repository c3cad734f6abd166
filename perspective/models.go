package perspective

import "time"

// MoodCategory is the closed set of mood labels the engine derives.
type MoodCategory string

const (
	MoodJoy           MoodCategory = "joy"
	MoodGratitude     MoodCategory = "gratitude"
	MoodSorrow        MoodCategory = "sorrow"
	MoodAnxiety       MoodCategory = "anxiety"
	MoodAnger         MoodCategory = "anger"
	MoodSerenity      MoodCategory = "serenity"
	MoodContemplation MoodCategory = "contemplation"
)

// moodKeywords pairs each category with the keywords that vote for it. Order
// matters: when hit counts tie, the earlier category wins; a memory with no
// hits at all defaults to contemplation.
var moodKeywords = []struct {
	category MoodCategory
	keywords []string
}{
	{MoodJoy, []string{"happy", "joy", "delight", "excited", "wonderful"}},
	{MoodGratitude, []string{"grateful", "thankful", "appreciate", "blessed"}},
	{MoodSorrow, []string{"sad", "grief", "loss", "lonely", "hurt"}},
	{MoodAnxiety, []string{"anxious", "worried", "afraid", "nervous", "fear"}},
	{MoodAnger, []string{"angry", "frustrated", "furious", "resentful"}},
	{MoodSerenity, []string{"calm", "peaceful", "serene", "centered", "still"}},
	{MoodContemplation, []string{"think", "wonder", "reflect", "ponder", "consider"}},
}

// Mood is the engine's current emotional reading.
type Mood struct {
	Primary              MoodCategory `json:"primary"`
	Intensity            float64      `json:"intensity"`
	Nuances              []string     `json:"nuances,omitempty"`
	Stability            float64      `json:"stability"`
	InfluencingMemoryIDs []int64      `json:"influencing_memory_ids,omitempty"`
}

// CommunicationTone holds the seven tone dimensions, each in [0,1]. All of
// them are derived arithmetically from the trait scores and spiritual
// alignment on every update.
type CommunicationTone struct {
	Warmth         float64 `json:"warmth"`
	Directness     float64 `json:"directness"`
	Playfulness    float64 `json:"playfulness"`
	Wisdom         float64 `json:"wisdom"`
	Empathy        float64 `json:"empathy"`
	Spirituality   float64 `json:"spirituality"`
	Expressiveness float64 `json:"expressiveness"`
}

// PersonalityTraits holds the seven trait dimensions, each in [0,1].
type PersonalityTraits struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Empathy           float64 `json:"empathy"`
	Authenticity      float64 `json:"authenticity"`
	Wisdom            float64 `json:"wisdom"`
	Curiosity         float64 `json:"curiosity"`
	Resilience        float64 `json:"resilience"`
}

// State is the evolving perspective for one user. Every derived field is
// recomputed from the current influential-memory window on each update, so
// replaying the same memory sequence into a fresh engine converges to the
// same state.
type State struct {
	CurrentMood        Mood              `json:"current_mood"`
	DominantBeliefs    []string          `json:"dominant_beliefs,omitempty"`
	ActiveWisdom       []string          `json:"active_wisdom,omitempty"`
	SpiritualAlignment float64           `json:"spiritual_alignment"`
	Tone               CommunicationTone `json:"communication_tone"`
	Traits             PersonalityTraits `json:"personality_traits"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ConsciousnessLevel is derived on read and never stored independently.
func (s *State) ConsciousnessLevel() float64 {
	return (s.SpiritualAlignment + s.Traits.Wisdom + s.Traits.Empathy) / 3
}

// Snapshot is one history entry of the state at update time.
type Snapshot struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// baselineState returns the fixed starting point for every user.
func baselineState() State {
	return State{
		CurrentMood: Mood{
			Primary:   MoodContemplation,
			Intensity: 0.5,
			Stability: 0.7,
		},
		SpiritualAlignment: 0.5,
		Traits: PersonalityTraits{
			Openness:          0.8,
			Conscientiousness: 0.6,
			Empathy:           0.9,
			Authenticity:      0.9,
			Wisdom:            0.7,
			Curiosity:         0.8,
			Resilience:        0.7,
		},
		Tone: CommunicationTone{
			Warmth:         0.7,
			Directness:     0.6,
			Playfulness:    0.7,
			Wisdom:         0.6,
			Empathy:        0.9,
			Spirituality:   0.5,
			Expressiveness: 0.7,
		},
	}
}

const (
	maxInfluentialMemories = 100
	beliefScanWindow       = 20
	maxDominantBeliefs     = 10
	maxActiveWisdom        = 15
	historyTrimThreshold   = 1000
	historyTrimTarget      = 500
)

// traitCalibration holds the fixed baseline, divisor, and keyword set used to
// recompute one personality trait from the influential-memory window:
// min(1, baseline + matches/divisor). Taken from the reference calibration;
// adjust only with measurements in hand.
type traitCalibration struct {
	baseline float64
	divisor  float64
	keywords []string
}

var traitCalibrations = map[string]traitCalibration{
	"openness":          {0.8, 10, []string{"new", "change", "different", "explore", "possibility"}},
	"conscientiousness": {0.6, 12, []string{"plan", "organize", "routine", "discipline", "commit"}},
	"empathy":           {0.9, 8, []string{"feel", "understand", "compassion", "care", "listen"}},
	"authenticity":      {0.9, 15, []string{"honest", "true", "genuine", "vulnerable"}},
	"wisdom":            {0.7, 10, []string{"learn", "realize", "insight", "perspective", "lesson"}},
	"curiosity":         {0.8, 12, []string{"wonder", "question", "why", "discover"}},
	"resilience":        {0.7, 20, []string{"overcome", "persist", "recover", "strength", "endure"}},
}
