package insight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func themeOf(name string, frequency int) Theme {
	ids := make([]int64, frequency)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return Theme{
		Name:            name,
		Frequency:       frequency,
		EmotionalTone:   ToneNeutral,
		Keywords:        []string{name},
		RelatedEntryIDs: ids,
		FirstMention:    time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		LastMention:     time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC),
	}
}

func newTestSynthesizer() *Synthesizer {
	source := &fakeSource{}
	return NewSynthesizer(
		NewExtractor(source, nil, 0, 0, zerolog.Nop()),
		NewArcBuilder(source, 0, 0, 0, 0, zerolog.Nop()),
		nil,
		zerolog.Nop(),
	)
}

func TestSynthesizePatternInsightsTopThreeWithMinimumFrequency(t *testing.T) {
	s := newTestSynthesizer()
	themes := []Theme{
		themeOf("Work", 12),
		themeOf("Sleep", 5),
		themeOf("Guitar", 2), // below the frequency threshold
		themeOf("Walks", 4),  // outside the top three
	}

	insights := s.synthesize(themes, nil)
	if len(insights) != 2 {
		t.Fatalf("expected 2 pattern insights, got %d", len(insights))
	}
	for _, ins := range insights {
		if ins.Type != InsightPattern {
			t.Errorf("unexpected insight type %q", ins.Type)
		}
		if ins.Confidence < 0 || ins.Confidence > 1 {
			t.Errorf("confidence out of range: %v", ins.Confidence)
		}
		if len(ins.SuggestedActions) != 3 {
			t.Errorf("expected 3 suggested actions, got %d", len(ins.SuggestedActions))
		}
		if len(ins.RelatedThemes) > 2 {
			t.Errorf("related themes should be capped at 2")
		}
	}

	// Confidence is min(frequency/10, 1): Work saturates at 1.0, Sleep is 0.5.
	if insights[0].Confidence != 1.0 {
		t.Errorf("expected saturated confidence for Work, got %v", insights[0].Confidence)
	}
	if insights[1].Confidence != 0.5 {
		t.Errorf("expected confidence 0.5 for Sleep, got %v", insights[1].Confidence)
	}
}

func TestSynthesizeArcInsightConfidences(t *testing.T) {
	s := newTestSynthesizer()
	breakthrough := KeyMoment{
		Date: time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC),
		Type: MomentBreakthrough,
	}
	arc := &EmotionalArc{
		OverallTrend: TrendImproving,
		KeyMoments:   []KeyMoment{breakthrough},
	}

	insights := s.synthesize(nil, arc)
	if len(insights) != 2 {
		t.Fatalf("expected growth + achievement, got %d insights", len(insights))
	}
	// Sorted by confidence descending: achievement 0.9 then growth 0.8.
	if insights[0].Type != InsightAchievement || insights[0].Confidence != 0.9 {
		t.Errorf("expected achievement at 0.9 first, got %+v", insights[0])
	}
	if insights[1].Type != InsightGrowth || insights[1].Confidence != 0.8 {
		t.Errorf("expected growth at 0.8, got %+v", insights[1])
	}

	arc.OverallTrend = TrendDeclining
	insights = s.synthesize(nil, arc)
	var concern *Insight
	for i := range insights {
		if insights[i].Type == InsightConcern {
			concern = &insights[i]
		}
	}
	if concern == nil || concern.Confidence != 0.7 {
		t.Fatalf("expected concern at 0.7, got %+v", insights)
	}
}

func TestSynthesizeSortedByConfidenceDescending(t *testing.T) {
	s := newTestSynthesizer()
	arc := &EmotionalArc{
		OverallTrend: TrendImproving,
		KeyMoments: []KeyMoment{
			{Date: time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC), Type: MomentBreakthrough},
		},
	}
	insights := s.synthesize([]Theme{themeOf("Work", 4)}, arc)
	for i := 1; i < len(insights); i++ {
		if insights[i].Confidence > insights[i-1].Confidence {
			t.Fatalf("insights not sorted by confidence descending: %v then %v",
				insights[i-1].Confidence, insights[i].Confidence)
		}
	}
}

func TestGenerateReportSummaryFallsBackOnGenerationFailure(t *testing.T) {
	source := &fakeSource{entries: moodEntries("happy", "sad", "happy")}
	g := &fakeGenerator{err: errors.New("service down")}
	s := NewSynthesizer(
		NewExtractor(source, nil, 0, 0, zerolog.Nop()),
		NewArcBuilder(source, 0, 0, 0, 0, zerolog.Nop()),
		g,
		zerolog.Nop(),
	)

	report := s.GenerateReport(context.Background(), "user-1")
	if report.Summary != fallbackSummary {
		t.Errorf("expected fallback summary, got %q", report.Summary)
	}
	if report.Arc == nil {
		t.Errorf("expected arc from three tagged entries")
	}
	if report.GeneratedAt.IsZero() {
		t.Errorf("report missing generation timestamp")
	}
}

func TestGenerateReportUsesGeneratedSummary(t *testing.T) {
	source := &fakeSource{entries: moodEntries("happy", "happy", "happy")}
	g := &fakeGenerator{content: "A bright stretch of writing."}
	s := NewSynthesizer(
		NewExtractor(source, nil, 0, 0, zerolog.Nop()),
		NewArcBuilder(source, 0, 0, 0, 0, zerolog.Nop()),
		g,
		zerolog.Nop(),
	)

	report := s.GenerateReport(context.Background(), "user-1")
	if report.Summary != "A bright stretch of writing." {
		t.Errorf("expected generated summary, got %q", report.Summary)
	}
}
