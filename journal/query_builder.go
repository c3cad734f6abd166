package journal

import (
	sq "github.com/Masterminds/squirrel"
)

// StatementBuilder returns a Squirrel StatementBuilder configured for SQLite.
// SQLite uses '?' as placeholders, which is Squirrel's default.
func StatementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder
}

// memoryColumns is the standard column list for memories SELECT queries.
func memoryColumns() []string {
	return []string{
		"id", "user_id", "uuid", "content", "mood", "emotional_tone",
		"emotional_resonance", "influence_score", "emotional_weight",
		"wisdom_level", "spiritual_significance", "personal_relevance",
		"belief_tags", "created_at",
	}
}

// entryColumns is the standard column list for journal_entries SELECT queries.
func entryColumns() []string {
	return []string{
		"id", "user_id", "uuid", "content", "mood", "emotional_tone", "created_at",
	}
}
