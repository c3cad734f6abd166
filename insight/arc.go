package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// moodPolarity classifies a mood tag into one of three polarities.
type moodPolarity int

const (
	polarityNeutral moodPolarity = iota
	polarityPositive
	polarityNegative
)

var (
	positiveMoods = []string{"happy", "excited", "grateful", "calm", "proud"}
	negativeMoods = []string{"sad", "anxious", "frustrated", "stressed", "angry"}
)

// classifyMood maps a free-text mood tag to a polarity using the two fixed
// keyword sets. Anything matching neither set is neutral.
func classifyMood(tag string) moodPolarity {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, kw := range positiveMoods {
		if strings.Contains(tag, kw) {
			return polarityPositive
		}
	}
	for _, kw := range negativeMoods {
		if strings.Contains(tag, kw) {
			return polarityNegative
		}
	}
	return polarityNeutral
}

// ArcBuilder computes the emotional arc of a user's tagged entries.
type ArcBuilder struct {
	source         EntrySource
	lookbackDays   int
	minTaggedMoods int
	trendDelta     float64
	swingRate      float64
	logger         zerolog.Logger
}

// NewArcBuilder creates an ArcBuilder. Zero-valued tuning parameters take the
// reference defaults (90 days, 3 tagged entries, 0.2 delta, 0.3 swing rate).
func NewArcBuilder(source EntrySource, lookbackDays, minTaggedMoods int, trendDelta, swingRate float64, logger zerolog.Logger) *ArcBuilder {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	if minTaggedMoods <= 0 {
		minTaggedMoods = 3
	}
	if trendDelta <= 0 {
		trendDelta = 0.2
	}
	if swingRate <= 0 {
		swingRate = 0.3
	}
	return &ArcBuilder{
		source:         source,
		lookbackDays:   lookbackDays,
		minTaggedMoods: minTaggedMoods,
		trendDelta:     trendDelta,
		swingRate:      swingRate,
		logger:         logger.With().Str("component", "arc_builder").Logger(),
	}
}

// BuildArc computes the arc for a user. It returns nil when fewer than the
// minimum number of tagged entries exist; absence is a defined result, not
// an error. Upstream failures likewise degrade to nil.
func (b *ArcBuilder) BuildArc(ctx context.Context, userID string) *EmotionalArc {
	memories, err := b.source.FetchMemories(ctx, userID)
	if err != nil {
		b.logger.Warn().Str("user_id", userID).Err(err).Msg("Fetching memories failed; continuing without them")
		memories = nil
	}
	entries, err := b.source.FetchRecentJournalEntries(ctx, userID, b.lookbackDays)
	if err != nil {
		b.logger.Warn().Str("user_id", userID).Err(err).Msg("Fetching journal entries failed; continuing without them")
		entries = nil
	}

	tagged := taggedChronological(mergeEntries(memories, entries))
	if len(tagged) < b.minTaggedMoods {
		b.logger.Debug().
			Str("user_id", userID).
			Int("tagged", len(tagged)).
			Msg("Not enough tagged entries for an emotional arc")
		return nil
	}

	polarities := make([]moodPolarity, len(tagged))
	for i, e := range tagged {
		polarities[i] = classifyMood(e.MoodTag)
	}

	return &EmotionalArc{
		Timeframe: Timeframe{
			Start: tagged[0].Date,
			End:   tagged[len(tagged)-1].Date,
		},
		OverallTrend:          b.classifyTrend(polarities),
		KeyMoments:            keyMoments(tagged, polarities),
		EmotionalDistribution: distribution(polarities),
	}
}

// distribution is the per-polarity count divided by the total count.
func distribution(polarities []moodPolarity) Distribution {
	var pos, neg, neu int
	for _, p := range polarities {
		switch p {
		case polarityPositive:
			pos++
		case polarityNegative:
			neg++
		default:
			neu++
		}
	}
	total := float64(len(polarities))
	return Distribution{
		Positive: float64(pos) / total,
		Neutral:  float64(neu) / total,
		Negative: float64(neg) / total,
	}
}

// classifyTrend compares the positive fraction of the most recent window
// against the earliest window. When neither dominates, the swing rate
// between adjacent positive/negative flips decides volatile versus stable.
func (b *ArcBuilder) classifyTrend(polarities []moodPolarity) Trend {
	window := 10
	if len(polarities) < window {
		window = len(polarities)
	}

	early := positiveFraction(polarities[:window])
	recent := positiveFraction(polarities[len(polarities)-window:])

	switch {
	case recent-early > b.trendDelta:
		return TrendImproving
	case early-recent > b.trendDelta:
		return TrendDeclining
	}

	flips := 0
	for i := 1; i < len(polarities); i++ {
		prev, cur := polarities[i-1], polarities[i]
		if (prev == polarityPositive && cur == polarityNegative) ||
			(prev == polarityNegative && cur == polarityPositive) {
			flips++
		}
	}
	if float64(flips)/float64(len(polarities)) > b.swingRate {
		return TrendVolatile
	}
	return TrendStable
}

func positiveFraction(polarities []moodPolarity) float64 {
	if len(polarities) == 0 {
		return 0
	}
	pos := 0
	for _, p := range polarities {
		if p == polarityPositive {
			pos++
		}
	}
	return float64(pos) / float64(len(polarities))
}

// maxKeyMoments caps the arc's key moments at the first ten encountered in
// chronological order.
const maxKeyMoments = 10

// keyMoments scans adjacent pairs for breakthroughs (negative to positive)
// and setbacks (positive to negative), each recorded at the second item.
// Separately a running streak of consecutive positive entries emits a single
// milestone the first time it reaches five.
func keyMoments(tagged []mergedEntry, polarities []moodPolarity) []KeyMoment {
	var moments []KeyMoment
	milestoneEmitted := false
	streak := 0

	appendMoment := func(m KeyMoment) {
		if len(moments) < maxKeyMoments {
			moments = append(moments, m)
		}
	}

	for i := range tagged {
		if polarities[i] == polarityPositive {
			streak++
			if streak == 5 && !milestoneEmitted {
				milestoneEmitted = true
				id := tagged[i].ID
				appendMoment(KeyMoment{
					Date:           tagged[i].Date,
					Type:           MomentMilestone,
					Description:    "Five positive entries in a row",
					RelatedEntryID: &id,
				})
			}
		} else {
			streak = 0
		}

		if i == 0 {
			continue
		}
		prev, cur := polarities[i-1], polarities[i]
		switch {
		case prev == polarityNegative && cur == polarityPositive:
			id := tagged[i].ID
			appendMoment(KeyMoment{
				Date:           tagged[i].Date,
				Type:           MomentBreakthrough,
				Description:    fmt.Sprintf("Shift from %q to %q", tagged[i-1].MoodTag, tagged[i].MoodTag),
				RelatedEntryID: &id,
			})
		case prev == polarityPositive && cur == polarityNegative:
			id := tagged[i].ID
			appendMoment(KeyMoment{
				Date:           tagged[i].Date,
				Type:           MomentSetback,
				Description:    fmt.Sprintf("Shift from %q to %q", tagged[i-1].MoodTag, tagged[i].MoodTag),
				RelatedEntryID: &id,
			})
		}
	}

	return moments
}
