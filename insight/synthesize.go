package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emberjournal/ember/gen"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// fallbackSummary is returned when the narrative generation call fails.
// Degraded reports are always preferred over errors.
const fallbackSummary = "Your recent entries show the threads of an unfolding story. Keep writing; patterns become clearer with every entry."

// Synthesizer combines theme and arc output into ranked insights, and
// composes the full report. Themes and arcs are recomputed on every call;
// there is no shared cache.
type Synthesizer struct {
	extractor *Extractor
	arcs      *ArcBuilder
	generator gen.Generator
	logger    zerolog.Logger
}

// NewSynthesizer creates a Synthesizer. generator may be nil; the report
// summary then always uses the static fallback text.
func NewSynthesizer(extractor *Extractor, arcs *ArcBuilder, generator gen.Generator, logger zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		extractor: extractor,
		arcs:      arcs,
		generator: generator,
		logger:    logger.With().Str("component", "insight_synthesizer").Logger(),
	}
}

// Insights computes the ranked insight list for a user. The result is always
// sorted by confidence descending; duplicates referencing the same theme are
// allowed.
func (s *Synthesizer) Insights(ctx context.Context, userID string) []Insight {
	themes := s.extractor.ExtractThemes(ctx, userID)
	arc := s.arcs.BuildArc(ctx, userID)
	return s.synthesize(themes, arc)
}

func (s *Synthesizer) synthesize(themes []Theme, arc *EmotionalArc) []Insight {
	var insights []Insight

	insights = append(insights, patternInsights(themes)...)
	if arc != nil {
		insights = append(insights, arcInsights(arc)...)
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Confidence > insights[j].Confidence
	})
	return insights
}

// patternInsights emits one pattern insight for each of the top three themes
// with frequency of at least three.
func patternInsights(themes []Theme) []Insight {
	var insights []Insight
	for i, theme := range themes {
		if i >= 3 {
			break
		}
		if theme.Frequency < 3 {
			continue
		}

		confidence := float64(theme.Frequency) / 10
		if confidence > 1 {
			confidence = 1
		}

		related := lo.FilterMap(themes, func(other Theme, _ int) (string, bool) {
			return other.Name, other.Name != theme.Name
		})
		if len(related) > 2 {
			related = related[:2]
		}

		insights = append(insights, Insight{
			Type:        InsightPattern,
			Title:       fmt.Sprintf("%s keeps coming up", theme.Name),
			Description: fmt.Sprintf("%s appears in %d of your recent entries, making it one of the strongest threads in your writing.", theme.Name, theme.Frequency),
			Confidence:  confidence,
			Actionable:  true,
			SuggestedActions: []string{
				fmt.Sprintf("Set aside ten minutes to write only about %s", strings.ToLower(theme.Name)),
				fmt.Sprintf("Note what usually triggers your entries about %s", strings.ToLower(theme.Name)),
				fmt.Sprintf("Revisit your earliest entry about %s and see what has changed", strings.ToLower(theme.Name)),
			},
			RelatedThemes: related,
			Timeframe: Timeframe{
				Start: theme.FirstMention,
				End:   theme.LastMention,
			},
		})
	}
	return insights
}

// arcInsights turns the arc's trend and breakthrough moments into insights
// with fixed confidences.
func arcInsights(arc *EmotionalArc) []Insight {
	var insights []Insight

	switch arc.OverallTrend {
	case TrendImproving:
		insights = append(insights, Insight{
			Type:        InsightGrowth,
			Title:       "Your emotional trajectory is improving",
			Description: "Recent entries carry noticeably more positive moods than earlier ones in this window.",
			Confidence:  0.8,
			Actionable:  false,
			Timeframe:   arc.Timeframe,
		})
	case TrendDeclining:
		insights = append(insights, Insight{
			Type:        InsightConcern,
			Title:       "Your recent entries trend heavier",
			Description: "Positive moods have become less frequent toward the end of this window. It may be worth reflecting on what shifted.",
			Confidence:  0.7,
			Actionable:  true,
			SuggestedActions: []string{
				"Look back at the entries where the shift began",
				"Consider writing about one thing that still feels steady",
			},
			Timeframe: arc.Timeframe,
		})
	}

	breakthroughs := lo.Filter(arc.KeyMoments, func(m KeyMoment, _ int) bool {
		return m.Type == MomentBreakthrough
	})
	if len(breakthroughs) > 0 {
		insights = append(insights, Insight{
			Type:        InsightAchievement,
			Title:       "You turned difficult moments around",
			Description: fmt.Sprintf("Your entries record %d moments where a hard stretch gave way to something brighter.", len(breakthroughs)),
			Confidence:  0.9,
			Actionable:  false,
			Timeframe: Timeframe{
				Start: breakthroughs[0].Date,
				End:   breakthroughs[len(breakthroughs)-1].Date,
			},
		})
	}

	return insights
}

// GenerateReport composes the full analytics report for a user: themes, arc,
// insights, and a narrative summary. A failed summary call degrades to a
// static fallback string; the report itself is never an error.
func (s *Synthesizer) GenerateReport(ctx context.Context, userID string) Report {
	themes := s.extractor.ExtractThemes(ctx, userID)
	arc := s.arcs.BuildArc(ctx, userID)
	insights := s.synthesize(themes, arc)

	return Report{
		Themes:      themes,
		Arc:         arc,
		Insights:    insights,
		Summary:     s.narrativeSummary(ctx, themes, arc, insights),
		GeneratedAt: time.Now(),
	}
}

func (s *Synthesizer) narrativeSummary(ctx context.Context, themes []Theme, arc *EmotionalArc, insights []Insight) string {
	if s.generator == nil {
		return fallbackSummary
	}

	var b strings.Builder
	b.WriteString("Themes: ")
	if len(themes) == 0 {
		b.WriteString("(none)")
	}
	for i, t := range themes {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%d mentions, %s)", t.Name, t.Frequency, t.EmotionalTone)
	}
	b.WriteString("\n")
	if arc != nil {
		fmt.Fprintf(&b, "Emotional trend: %s. Distribution: %.0f%% positive, %.0f%% neutral, %.0f%% negative.\n",
			arc.OverallTrend,
			arc.EmotionalDistribution.Positive*100,
			arc.EmotionalDistribution.Neutral*100,
			arc.EmotionalDistribution.Negative*100)
	}
	for _, ins := range insights {
		fmt.Fprintf(&b, "Insight (%s): %s\n", ins.Type, ins.Title)
	}

	result, err := s.generator.Generate(ctx, &gen.Request{
		Kind:   gen.KindSummary,
		System: summarySystemPrompt,
		Prompt: b.String(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Narrative summary generation failed; using fallback text")
		return fallbackSummary
	}
	summary := strings.TrimSpace(result.Content)
	if summary == "" {
		return fallbackSummary
	}
	return summary
}

const summarySystemPrompt = `You write a short, warm narrative summary of a person's journaling analytics.

Speak directly to the writer in second person. Two or three sentences, plain prose, no lists, no headings. Ground every claim in the analytics provided; do not invent events.`
