package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emberjournal/ember/migrations"
	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory database and runs migrations
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	migrationsPath := filepath.Join(cwd, "..", "migrations")
	if err := migrations.Run(db, migrationsPath, zerolog.Nop()); err != nil {
		_ = db.Close() //nolint:errcheck // Cleanup on error
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestStore_SaveAndFetchJournalEntries(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	store, err := NewStore(db, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()

	entry, err := store.SaveEntry(ctx, "user-1", "Long walk by the river today.", "calm", "")
	if err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}
	if entry.ID == 0 || entry.UUID == "" {
		t.Errorf("entry missing identifiers: %+v", entry)
	}
	if entry.Source != SourceJournal {
		t.Errorf("expected journal source, got %q", entry.Source)
	}

	entries, err := store.FetchRecentJournalEntries(ctx, "user-1", 30)
	if err != nil {
		t.Fatalf("FetchRecentJournalEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Mood != "calm" {
		t.Errorf("mood not round-tripped: %q", entries[0].Mood)
	}
	if !entries[0].Tagged() {
		t.Error("entry with mood should report Tagged")
	}
}

func TestStore_SaveEntryRejectsEmptyContent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	store, _ := NewStore(db, zerolog.Nop())
	if _, err := store.SaveEntry(context.Background(), "user-1", "   ", "", ""); err == nil {
		t.Fatal("expected error for empty content, got nil")
	}
}

func TestStore_SaveAndFetchMemories(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	store, _ := NewStore(db, zerolog.Nop())
	ctx := context.Background()

	saved, err := store.SaveMemory(ctx, Memory{
		Entry: Entry{
			UserID:  "user-1",
			Content: "Realized I do my best thinking before sunrise.",
			Mood:    "grateful",
		},
		EmotionalResonance:    "quiet joy and gratitude",
		InfluenceScore:        0.9,
		EmotionalWeight:       0.6,
		WisdomLevel:           0.8,
		SpiritualSignificance: 0.4,
		PersonalRelevance:     0.7,
		BeliefTags:            []string{"growth", "self-knowledge"},
	})
	if err != nil {
		t.Fatalf("SaveMemory: %v", err)
	}
	if saved.Source != SourceMemory {
		t.Errorf("expected memory source, got %q", saved.Source)
	}

	memories, err := store.FetchMemories(ctx, "user-1")
	if err != nil {
		t.Fatalf("FetchMemories: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(memories))
	}
	m := memories[0]
	if m.InfluenceScore != 0.9 || m.WisdomLevel != 0.8 {
		t.Errorf("scores not round-tripped: %+v", m)
	}
	if len(m.BeliefTags) != 2 || m.BeliefTags[0] != "growth" {
		t.Errorf("belief tags not round-tripped: %v", m.BeliefTags)
	}
}

func TestStore_FetchActiveUsersOrdersByActivity(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	store, _ := NewStore(db, zerolog.Nop())
	ctx := context.Background()

	if err := store.EnsureUser(ctx, "user-a", "A"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1100 * time.Millisecond) // second-granularity timestamps
	if err := store.EnsureUser(ctx, "user-b", "B"); err != nil {
		t.Fatal(err)
	}

	users, err := store.FetchActiveUsers(ctx)
	if err != nil {
		t.Fatalf("FetchActiveUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].ID != "user-b" {
		t.Errorf("expected most recently active user first, got %q", users[0].ID)
	}
}

func TestStore_SaveReportDigestUpserts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	store, _ := NewStore(db, zerolog.Nop())
	ctx := context.Background()

	if err := store.EnsureUser(ctx, "user-1", ""); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveReportDigest(ctx, "user-1", "first"); err != nil {
		t.Fatalf("SaveReportDigest: %v", err)
	}
	if err := store.SaveReportDigest(ctx, "user-1", "second"); err != nil {
		t.Fatalf("SaveReportDigest upsert: %v", err)
	}

	var summary string
	if err := db.QueryRow(`SELECT summary FROM report_digests WHERE user_id = ?`, "user-1").Scan(&summary); err != nil {
		t.Fatalf("read digest: %v", err)
	}
	if summary != "second" {
		t.Errorf("expected upserted summary, got %q", summary)
	}
}
