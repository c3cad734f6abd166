package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emberjournal/ember/gen"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Extractor derives recurring themes from a user's entries. It prefers a
// generation-service call and falls back to a fixed keyword catalogue when
// the service is unavailable or returns unparsable output. Extraction never
// fails loudly: the worst case is an empty theme list.
type Extractor struct {
	source        EntrySource
	generator     gen.Generator
	lookbackDays  int
	excerptLength int
	logger        zerolog.Logger
}

// NewExtractor creates an Extractor. generator may be nil, in which case only
// the keyword fallback runs.
func NewExtractor(source EntrySource, generator gen.Generator, lookbackDays, excerptLength int, logger zerolog.Logger) *Extractor {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	if excerptLength <= 0 {
		excerptLength = 200
	}
	return &Extractor{
		source:        source,
		generator:     generator,
		lookbackDays:  lookbackDays,
		excerptLength: excerptLength,
		logger:        logger.With().Str("component", "theme_extractor").Logger(),
	}
}

// candidateTheme is a theme before post-processing fills in the
// entry-derived fields.
type candidateTheme struct {
	Name          string   `json:"name"`
	EmotionalTone Tone     `json:"emotionalTone"`
	Keywords      []string `json:"keywords"`
	Insight       string   `json:"insight,omitempty"`
}

// fallbackTheme is one entry of the fixed catalogue used when the generation
// service cannot be consulted.
type fallbackTheme struct {
	candidate  candidateTheme
	minMatches int
}

// fallbackCatalogue is the five canonical themes. A theme is retained only if
// at least minMatches entries match one of its keywords.
var fallbackCatalogue = []fallbackTheme{
	{
		candidate: candidateTheme{
			Name:          "Work",
			EmotionalTone: ToneMixed,
			Keywords:      []string{"work", "job", "meeting", "project", "deadline", "boss", "office", "career"},
		},
		minMatches: 2,
	},
	{
		candidate: candidateTheme{
			Name:          "Relationships",
			EmotionalTone: TonePositive,
			Keywords:      []string{"friend", "family", "partner", "love", "relationship", "conversation", "together"},
		},
		minMatches: 2,
	},
	{
		candidate: candidateTheme{
			Name:          "Personal Growth",
			EmotionalTone: TonePositive,
			Keywords:      []string{"learn", "growth", "goal", "progress", "habit", "change", "improve"},
		},
		minMatches: 2,
	},
	{
		candidate: candidateTheme{
			Name:          "Health",
			EmotionalTone: ToneNeutral,
			Keywords:      []string{"sleep", "exercise", "run", "tired", "energy", "doctor", "workout"},
		},
		minMatches: 2,
	},
	{
		candidate: candidateTheme{
			Name:          "Stress",
			EmotionalTone: ToneNegative,
			Keywords:      []string{"stress", "anxious", "overwhelmed", "worry", "pressure", "exhausted"},
		},
		minMatches: 2,
	},
}

// ExtractThemes derives themes for a user over the configured lookback
// window. Upstream failures degrade to an empty list; they are never
// surfaced to the caller.
func (x *Extractor) ExtractThemes(ctx context.Context, userID string) []Theme {
	memories, err := x.source.FetchMemories(ctx, userID)
	if err != nil {
		x.logger.Warn().Str("user_id", userID).Err(err).Msg("Fetching memories failed; continuing without them")
		memories = nil
	}
	entries, err := x.source.FetchRecentJournalEntries(ctx, userID, x.lookbackDays)
	if err != nil {
		x.logger.Warn().Str("user_id", userID).Err(err).Msg("Fetching journal entries failed; continuing without them")
		entries = nil
	}

	merged := mergeEntries(memories, entries)
	if len(merged) == 0 {
		return []Theme{}
	}

	candidates := x.generateCandidates(ctx, merged)
	return x.finalize(candidates, merged)
}

// generateCandidates runs the primary generation path, falling back to the
// keyword catalogue on any failure.
func (x *Extractor) generateCandidates(ctx context.Context, merged []mergedEntry) []candidateTheme {
	if x.generator == nil {
		return x.fallbackCandidates(merged)
	}

	result, err := x.generator.Generate(ctx, &gen.Request{
		Kind:   gen.KindThemes,
		System: themeSystemPrompt,
		Prompt: x.buildThemePrompt(merged),
	})
	if err != nil {
		x.logger.Warn().Err(err).Msg("Theme generation call failed; falling back to keyword extraction")
		return x.fallbackCandidates(merged)
	}

	candidates, err := parseThemeJSON(result.Content)
	if err != nil {
		x.logger.Warn().Err(err).Msg("Theme generation output was unparsable; falling back to keyword extraction")
		return x.fallbackCandidates(merged)
	}
	return candidates
}

const themeSystemPrompt = `You analyze journal entries and conversational memories to find the recurring themes in someone's life.

Respond with a JSON object of this exact shape and nothing else:
{"themes": [{"name": string, "emotionalTone": "positive"|"neutral"|"negative"|"mixed", "keywords": string[], "insight": string}]}

Aim for 5 to 8 themes. Keywords must be short lowercase words likely to appear verbatim in the entries.`

// buildThemePrompt embeds a truncated, dated excerpt of every entry.
func (x *Extractor) buildThemePrompt(merged []mergedEntry) string {
	var b strings.Builder
	b.WriteString("Here are the entries to analyze:\n\n")
	for _, e := range merged {
		excerpt := e.Content
		if rs := []rune(excerpt); len(rs) > x.excerptLength {
			excerpt = string(rs[:x.excerptLength])
		}
		fmt.Fprintf(&b, "[%s] %s\n", e.Date.Format("2006-01-02"), excerpt)
	}
	return b.String()
}

// parseThemeJSON accepts either a bare JSON array or an object wrapping the
// array under a "themes" key, with or without a markdown code fence.
func parseThemeJSON(content string) ([]candidateTheme, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var candidates []candidateTheme
	if err := json.Unmarshal([]byte(content), &candidates); err == nil {
		return validCandidates(candidates)
	}

	var wrapped struct {
		Themes []candidateTheme `json:"themes"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("parse theme JSON: %w", err)
	}
	return validCandidates(wrapped.Themes)
}

func validCandidates(candidates []candidateTheme) ([]candidateTheme, error) {
	candidates = lo.Filter(candidates, func(c candidateTheme, _ int) bool {
		return c.Name != "" && len(c.Keywords) > 0
	})
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no usable themes in generation output")
	}
	for i := range candidates {
		switch candidates[i].EmotionalTone {
		case TonePositive, ToneNeutral, ToneNegative, ToneMixed:
		default:
			candidates[i].EmotionalTone = ToneNeutral
		}
	}
	return candidates, nil
}

// fallbackCandidates applies the fixed catalogue, retaining a theme only when
// its match threshold is met.
func (x *Extractor) fallbackCandidates(merged []mergedEntry) []candidateTheme {
	var candidates []candidateTheme
	for _, ft := range fallbackCatalogue {
		matches := 0
		for _, e := range merged {
			if entryMatchesKeywords(e, ft.candidate.Keywords) {
				matches++
			}
		}
		if matches >= ft.minMatches {
			candidates = append(candidates, ft.candidate)
		}
	}
	return candidates
}

// finalize fills in the entry-derived fields for each candidate and sorts the
// result by frequency descending. The sort is stable: ties keep the
// candidate order.
func (x *Extractor) finalize(candidates []candidateTheme, merged []mergedEntry) []Theme {
	themes := make([]Theme, 0, len(candidates))
	nowTime := time.Now()

	for _, c := range candidates {
		var relatedIDs []int64
		var first, last time.Time
		for _, e := range merged {
			if !entryMatchesKeywords(e, c.Keywords) {
				continue
			}
			relatedIDs = append(relatedIDs, e.ID)
			if first.IsZero() || e.Date.Before(first) {
				first = e.Date
			}
			if last.IsZero() || e.Date.After(last) {
				last = e.Date
			}
		}
		if first.IsZero() {
			first, last = nowTime, nowTime
		}

		var insights []string
		if c.Insight != "" {
			insights = []string{c.Insight}
		}

		themes = append(themes, Theme{
			Name:            c.Name,
			Frequency:       len(relatedIDs),
			EmotionalTone:   c.EmotionalTone,
			Keywords:        c.Keywords,
			RelatedEntryIDs: relatedIDs,
			Insights:        insights,
			FirstMention:    first,
			LastMention:     last,
		})
	}

	sort.SliceStable(themes, func(i, j int) bool {
		return themes[i].Frequency > themes[j].Frequency
	})
	return themes
}

// entryMatchesKeywords is a case-insensitive substring test against any of
// the theme's keywords.
func entryMatchesKeywords(e mergedEntry, keywords []string) bool {
	content := strings.ToLower(e.Content)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(content, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
