package perspective

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emberjournal/ember/journal"
	"github.com/rs/zerolog"
)

// Engine maintains one evolving perspective state per user. States never
// share data across users: every update and read is scoped to a single
// user's state under the engine lock.
type Engine struct {
	mu     sync.Mutex
	users  map[string]*userState
	logger zerolog.Logger
}

// userState is the full mutable aggregate for one user.
type userState struct {
	state       State
	influential []journal.Memory
	history     []Snapshot
}

// NewEngine creates an Engine with no user states; each user's state is
// created from the fixed baseline on first update.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		users:  make(map[string]*userState),
		logger: logger.With().Str("component", "perspective_engine").Logger(),
	}
}

// State returns a copy of the user's current state. Users the engine has
// never seen get the baseline.
func (e *Engine) State(userID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if us, ok := e.users[userID]; ok {
		return us.state
	}
	return baselineState()
}

// MemoryCount returns the size of the user's influential-memory window.
func (e *Engine) MemoryCount(userID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if us, ok := e.users[userID]; ok {
		return len(us.influential)
	}
	return 0
}

// InfluentialMemories returns a copy of the user's influential-memory
// window, ordered by influence score descending.
func (e *Engine) InfluentialMemories(userID string) []journal.Memory {
	e.mu.Lock()
	defer e.mu.Unlock()
	us, ok := e.users[userID]
	if !ok {
		return nil
	}
	out := make([]journal.Memory, len(us.influential))
	copy(out, us.influential)
	return out
}

// UpdatePerspective folds one new memory into the user's state and returns a
// copy of the updated state. All derived fields are recomputed from the
// influential-memory window, so the result depends only on the ordered
// sequence of memories seen so far.
func (e *Engine) UpdatePerspective(userID string, mem journal.Memory) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	us, ok := e.users[userID]
	if !ok {
		us = &userState{state: baselineState()}
		e.users[userID] = us
	}

	// Admit the memory to the influence window: sort by influence score
	// descending (stable, so equal scores keep arrival order) and truncate.
	us.influential = append(us.influential, mem)
	sort.SliceStable(us.influential, func(i, j int) bool {
		return us.influential[i].InfluenceScore > us.influential[j].InfluenceScore
	})
	if len(us.influential) > maxInfluentialMemories {
		us.influential = us.influential[:maxInfluentialMemories]
	}

	previous := us.state
	us.state.CurrentMood = deriveMood(mem, previous.CurrentMood, us.influential)
	us.state.DominantBeliefs = deriveBeliefs(us.influential)
	us.state.ActiveWisdom = deriveWisdom(us.influential)
	us.state.SpiritualAlignment = deriveSpiritualAlignment(us.influential, previous.SpiritualAlignment)
	us.state.Traits = deriveTraits(us.influential)
	us.state.Tone = deriveTone(us.state.Traits, us.state.SpiritualAlignment)
	us.state.UpdatedAt = time.Now()

	us.history = append(us.history, Snapshot{State: us.state, At: us.state.UpdatedAt})
	if len(us.history) > historyTrimThreshold {
		us.history = us.history[len(us.history)-historyTrimTarget:]
	}

	e.logger.Debug().
		Str("user_id", userID).
		Str("mood", string(us.state.CurrentMood.Primary)).
		Float64("consciousness", us.state.ConsciousnessLevel()).
		Int("influential", len(us.influential)).
		Msg("Perspective updated")

	return us.state
}

// History returns a copy of the user's state history, oldest first.
func (e *Engine) History(userID string) []Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	us, ok := e.users[userID]
	if !ok {
		return nil
	}
	out := make([]Snapshot, len(us.history))
	copy(out, us.history)
	return out
}

// deriveMood scans the memory's emotional-resonance text against the mood
// keyword table. The category with the most hits wins; ties keep the earlier
// table entry; no hits default to contemplation.
func deriveMood(mem journal.Memory, previous Mood, influential []journal.Memory) Mood {
	text := strings.ToLower(mem.EmotionalResonance)
	if text == "" {
		text = strings.ToLower(mem.Content)
	}

	primary := MoodContemplation
	bestHits := 0
	var nuances []string
	for _, mk := range moodKeywords {
		hits := 0
		for _, kw := range mk.keywords {
			hits += strings.Count(text, kw)
		}
		if hits > bestHits {
			if bestHits > 0 {
				nuances = append(nuances, string(primary))
			}
			primary = mk.category
			bestHits = hits
		} else if hits > 0 {
			nuances = append(nuances, string(mk.category))
		}
	}
	if len(nuances) > 3 {
		nuances = nuances[:3]
	}

	intensity := math.Min(1, mem.EmotionalWeight+0.3)

	// Stability drifts toward how far the new intensity sits from the old.
	stability := clamp01(1 - math.Abs(intensity-previous.Intensity))

	var ids []int64
	for i, m := range influential {
		if i >= 5 {
			break
		}
		ids = append(ids, m.ID)
	}

	return Mood{
		Primary:              primary,
		Intensity:            intensity,
		Nuances:              nuances,
		Stability:            stability,
		InfluencingMemoryIDs: ids,
	}
}

// deriveBeliefs accumulates belief-tag weight by influence score across the
// top of the window and keeps the ten heaviest tags. First-seen order breaks
// ties so the result is stable.
func deriveBeliefs(influential []journal.Memory) []string {
	weights := make(map[string]float64)
	var order []string

	for i, mem := range influential {
		if i >= beliefScanWindow {
			break
		}
		for _, tag := range mem.BeliefTags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, seen := weights[tag]; !seen {
				order = append(order, tag)
			}
			weights[tag] += mem.InfluenceScore
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return weights[order[i]] > weights[order[j]]
	})
	if len(order) > maxDominantBeliefs {
		order = order[:maxDominantBeliefs]
	}
	return order
}

// deriveWisdom keeps excerpts of high-wisdom memories, capped at fifteen.
func deriveWisdom(influential []journal.Memory) []string {
	var wisdom []string
	for _, mem := range influential {
		if mem.WisdomLevel <= 0.7 {
			continue
		}
		wisdom = append(wisdom, excerpt(mem.Content, 120))
		if len(wisdom) == maxActiveWisdom {
			break
		}
	}
	return wisdom
}

// deriveSpiritualAlignment averages the significant memories' scores plus a
// small lift. With no qualifying memories the prior value stands.
func deriveSpiritualAlignment(influential []journal.Memory, previous float64) float64 {
	var sum float64
	count := 0
	for _, mem := range influential {
		if mem.SpiritualSignificance > 0.5 {
			sum += mem.SpiritualSignificance
			count++
		}
	}
	if count == 0 {
		return previous
	}
	return math.Min(1, sum/float64(count)+0.1)
}

// deriveTraits recomputes each trait as min(1, baseline + matches/divisor)
// over the influential window.
func deriveTraits(influential []journal.Memory) PersonalityTraits {
	score := func(name string) float64 {
		cal := traitCalibrations[name]
		matches := 0
		for _, mem := range influential {
			content := strings.ToLower(mem.Content + " " + mem.EmotionalResonance)
			for _, kw := range cal.keywords {
				if strings.Contains(content, kw) {
					matches++
					break
				}
			}
		}
		return math.Min(1, cal.baseline+float64(matches)/cal.divisor)
	}

	return PersonalityTraits{
		Openness:          score("openness"),
		Conscientiousness: score("conscientiousness"),
		Empathy:           score("empathy"),
		Authenticity:      score("authenticity"),
		Wisdom:            score("wisdom"),
		Curiosity:         score("curiosity"),
		Resilience:        score("resilience"),
	}
}

// deriveTone expresses the seven tone dimensions as fixed arithmetic over
// the trait scores and spiritual alignment.
func deriveTone(traits PersonalityTraits, spiritualAlignment float64) CommunicationTone {
	return CommunicationTone{
		Warmth:         (traits.Empathy + traits.Authenticity) / 2,
		Directness:     (traits.Authenticity + traits.Resilience) / 2,
		Playfulness:    math.Max(0.2, 1-traits.Conscientiousness*0.5),
		Wisdom:         (traits.Wisdom + spiritualAlignment) / 2,
		Empathy:        traits.Empathy,
		Spirituality:   spiritualAlignment,
		Expressiveness: (traits.Openness + traits.Curiosity) / 2,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func excerpt(s string, n int) string {
	rs := []rune(s)
	if len(rs) > n {
		return string(rs[:n]) + "..."
	}
	return s
}
