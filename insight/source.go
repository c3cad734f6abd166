package insight

import (
	"context"
	"sort"
	"time"

	"github.com/emberjournal/ember/journal"
)

// EntrySource is the narrow slice of the storage layer the analytics core
// reads from. Tests substitute in-memory fakes.
type EntrySource interface {
	FetchMemories(ctx context.Context, userID string) ([]journal.Memory, error)
	FetchRecentJournalEntries(ctx context.Context, userID string, daysPast int) ([]journal.Entry, error)
}

// mergedEntry is the uniform view of a memory or journal entry used by theme
// and arc computation.
type mergedEntry struct {
	ID      int64
	Content string
	MoodTag string
	Source  journal.Source
	Date    time.Time
}

// mergeEntries flattens both sources into one list. The result carries no
// ordering guarantee; callers sort when they need chronology.
func mergeEntries(memories []journal.Memory, entries []journal.Entry) []mergedEntry {
	merged := make([]mergedEntry, 0, len(memories)+len(entries))
	for _, m := range memories {
		merged = append(merged, mergedEntry{
			ID:      m.ID,
			Content: m.Content,
			MoodTag: m.MoodTag(),
			Source:  journal.SourceMemory,
			Date:    m.CreatedAt,
		})
	}
	for _, e := range entries {
		merged = append(merged, mergedEntry{
			ID:      e.ID,
			Content: e.Content,
			MoodTag: e.MoodTag(),
			Source:  journal.SourceJournal,
			Date:    e.CreatedAt,
		})
	}
	return merged
}

// taggedChronological filters to entries with a mood tag and sorts them by
// date ascending.
func taggedChronological(merged []mergedEntry) []mergedEntry {
	tagged := make([]mergedEntry, 0, len(merged))
	for _, e := range merged {
		if e.MoodTag != "" {
			tagged = append(tagged, e)
		}
	}
	sort.SliceStable(tagged, func(i, j int) bool {
		return tagged[i].Date.Before(tagged[j].Date)
	})
	return tagged
}
