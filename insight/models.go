package insight

import "time"

// Tone classifies the emotional coloring of a theme.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNeutral  Tone = "neutral"
	ToneNegative Tone = "negative"
	ToneMixed    Tone = "mixed"
)

// Trend classifies the overall direction of an emotional arc.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
	TrendVolatile  Trend = "volatile"
)

// MomentType classifies a key emotional moment.
type MomentType string

const (
	MomentBreakthrough MomentType = "breakthrough"
	MomentSetback      MomentType = "setback"
	MomentMilestone    MomentType = "milestone"
	MomentTurningPoint MomentType = "turning_point"
)

// InsightType classifies a synthesized insight.
type InsightType string

const (
	InsightPattern     InsightType = "pattern"
	InsightGrowth      InsightType = "growth"
	InsightConcern     InsightType = "concern"
	InsightAchievement InsightType = "achievement"
	InsightConnection  InsightType = "connection"
)

// Timeframe is a closed date interval.
type Timeframe struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Theme is a recurring topical or emotional thread across a user's entries.
// Frequency always equals the number of related entry IDs, and
// FirstMention never follows LastMention.
type Theme struct {
	Name            string    `json:"name"`
	Frequency       int       `json:"frequency"`
	EmotionalTone   Tone      `json:"emotional_tone"`
	Keywords        []string  `json:"keywords"`
	RelatedEntryIDs []int64   `json:"related_entry_ids"`
	Insights        []string  `json:"insights"`
	FirstMention    time.Time `json:"first_mention"`
	LastMention     time.Time `json:"last_mention"`
}

// Distribution holds the positive/neutral/negative fractions of tagged
// entries. The three fractions sum to 1.0 within floating tolerance.
type Distribution struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// KeyMoment marks a notable emotional transition, ordered by date.
type KeyMoment struct {
	Date           time.Time  `json:"date"`
	Type           MomentType `json:"type"`
	Description    string     `json:"description"`
	RelatedEntryID *int64     `json:"related_entry_id,omitempty"`
}

// EmotionalArc is the chronological emotional shape of a window of entries.
// It only exists when at least three tagged entries are available.
type EmotionalArc struct {
	Timeframe             Timeframe    `json:"timeframe"`
	OverallTrend          Trend        `json:"overall_trend"`
	KeyMoments            []KeyMoment  `json:"key_moments"`
	EmotionalDistribution Distribution `json:"emotional_distribution"`
}

// Insight is a single ranked, human-readable observation.
type Insight struct {
	Type             InsightType `json:"type"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Confidence       float64     `json:"confidence"`
	Actionable       bool        `json:"actionable"`
	SuggestedActions []string    `json:"suggested_actions,omitempty"`
	RelatedThemes    []string    `json:"related_themes,omitempty"`
	Timeframe        Timeframe   `json:"timeframe"`
}

// Report is the full analytics output for one user.
type Report struct {
	Themes      []Theme       `json:"themes"`
	Arc         *EmotionalArc `json:"emotional_arc,omitempty"`
	Insights    []Insight     `json:"insights"`
	Summary     string        `json:"summary"`
	GeneratedAt time.Time     `json:"generated_at"`
}
