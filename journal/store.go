package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store manages journal entry and memory persistence.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates and returns a Store.
func NewStore(db *sql.DB, logger zerolog.Logger) (*Store, error) {
	logger = logger.With().Str("component", "journal_store").Logger()
	logger.Info().Msg("Initializing journal store")
	return &Store{db: db, logger: logger}, nil
}

func now() int64 { return time.Now().Unix() }

// EnsureUser creates the user row if it does not exist and bumps its
// last-active timestamp either way.
func (s *Store) EnsureUser(ctx context.Context, userID, displayName string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is empty")
	}
	nowUnix := now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, display_name, created_at, last_active_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET last_active_at = excluded.last_active_at
`, userID, displayName, nowUnix, nowUnix)
	if err != nil {
		s.logger.Error().
			Str("method", "EnsureUser").
			Str("user_id", userID).
			Err(err).
			Msg("Failed to upsert user")
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// SaveEntry stores a journal entry for a user.
func (s *Store) SaveEntry(ctx context.Context, userID, content, mood, emotionalTone string) (Entry, error) {
	s.logger.Debug().
		Str("method", "SaveEntry").
		Str("user_id", userID).
		Str("content", truncateString(content, 40)).
		Str("mood", mood).
		Msg("called")
	if strings.TrimSpace(content) == "" {
		s.logger.Warn().
			Str("method", "SaveEntry").
			Msg("Attempted to save empty entry")
		return Entry{}, errors.New("content is empty")
	}
	if err := s.EnsureUser(ctx, userID, ""); err != nil {
		return Entry{}, err
	}

	nowUnix := now()
	entryUUID := uuid.NewString()

	query := StatementBuilder().
		Insert("journal_entries").
		Columns("user_id", "uuid", "content", "mood", "emotional_tone", "created_at").
		Values(userID, entryUUID, content, nullIfEmpty(mood), nullIfEmpty(emotionalTone), nowUnix)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return Entry{}, fmt.Errorf("build insert query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		s.logger.Error().
			Str("method", "SaveEntry").
			Err(err).
			Msg("Failed to insert journal entry")
		return Entry{}, fmt.Errorf("insert journal entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, err
	}

	s.logger.Info().
		Str("method", "SaveEntry").
		Str("user_id", userID).
		Int64("id", id).
		Msg("Journal entry saved")

	return Entry{
		ID:            id,
		UserID:        userID,
		UUID:          entryUUID,
		Content:       content,
		Mood:          mood,
		EmotionalTone: emotionalTone,
		Source:        SourceJournal,
		CreatedAt:     time.Unix(nowUnix, 0),
	}, nil
}

// SaveMemory stores a scored conversational memory for a user.
func (s *Store) SaveMemory(ctx context.Context, m Memory) (Memory, error) {
	s.logger.Debug().
		Str("method", "SaveMemory").
		Str("user_id", m.UserID).
		Str("content", truncateString(m.Content, 40)).
		Float64("influence_score", m.InfluenceScore).
		Msg("called")
	if strings.TrimSpace(m.Content) == "" {
		s.logger.Warn().
			Str("method", "SaveMemory").
			Msg("Attempted to save memory with empty content")
		return Memory{}, errors.New("content is empty")
	}
	if err := s.EnsureUser(ctx, m.UserID, ""); err != nil {
		return Memory{}, err
	}

	var tagsJSON []byte
	if m.BeliefTags != nil {
		var err error
		tagsJSON, err = json.Marshal(m.BeliefTags)
		if err != nil {
			return Memory{}, fmt.Errorf("marshal belief tags: %w", err)
		}
	}

	nowUnix := now()
	if !m.CreatedAt.IsZero() {
		nowUnix = m.CreatedAt.Unix()
	}
	memUUID := m.UUID
	if memUUID == "" {
		memUUID = uuid.NewString()
	}

	query := StatementBuilder().
		Insert("memories").
		Columns("user_id", "uuid", "content", "mood", "emotional_tone",
			"emotional_resonance", "influence_score", "emotional_weight",
			"wisdom_level", "spiritual_significance", "personal_relevance",
			"belief_tags", "created_at").
		Values(m.UserID, memUUID, m.Content, nullIfEmpty(m.Mood), nullIfEmpty(m.EmotionalTone),
			nullIfEmpty(m.EmotionalResonance), m.InfluenceScore, m.EmotionalWeight,
			m.WisdomLevel, m.SpiritualSignificance, m.PersonalRelevance,
			tagsJSON, nowUnix)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return Memory{}, fmt.Errorf("build insert query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		s.logger.Error().
			Str("method", "SaveMemory").
			Err(err).
			Msg("Failed to insert memory")
		return Memory{}, fmt.Errorf("insert memory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Memory{}, err
	}

	s.logger.Info().
		Str("method", "SaveMemory").
		Str("user_id", m.UserID).
		Int64("id", id).
		Msg("Memory saved")

	m.ID = id
	m.UUID = memUUID
	m.Source = SourceMemory
	m.CreatedAt = time.Unix(nowUnix, 0)
	return m, nil
}

// FetchMemories returns all memories for a user, newest first.
func (s *Store) FetchMemories(ctx context.Context, userID string) ([]Memory, error) {
	s.logger.Debug().
		Str("method", "FetchMemories").
		Str("user_id", userID).
		Msg("called")

	query := StatementBuilder().
		Select(memoryColumns()...).
		From("memories").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close() //nolint:errcheck // No remedy for rows close errors

	var memories []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return memories, nil
}

// FetchRecentJournalEntries returns journal entries for a user created within
// the past daysPast days, newest first.
func (s *Store) FetchRecentJournalEntries(ctx context.Context, userID string, daysPast int) ([]Entry, error) {
	s.logger.Debug().
		Str("method", "FetchRecentJournalEntries").
		Str("user_id", userID).
		Int("days_past", daysPast).
		Msg("called")

	if daysPast <= 0 {
		daysPast = 90
	}
	cutoff := time.Now().AddDate(0, 0, -daysPast).Unix()

	query := StatementBuilder().
		Select(entryColumns()...).
		From("journal_entries").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"created_at": cutoff}).
		OrderBy("created_at DESC")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // No remedy for rows close errors

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			mood      sql.NullString
			tone      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.UUID, &e.Content, &mood, &tone, &createdAt); err != nil {
			return nil, err
		}
		e.Mood = mood.String
		e.EmotionalTone = tone.String
		e.Source = SourceJournal
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchActiveUsers returns users ordered by most recent activity.
func (s *Store) FetchActiveUsers(ctx context.Context) ([]UserRef, error) {
	query := StatementBuilder().
		Select("id", "display_name", "last_active_at").
		From("users").
		OrderBy("last_active_at DESC")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close() //nolint:errcheck // No remedy for rows close errors

	var users []UserRef
	for rows.Next() {
		var (
			u           UserRef
			displayName sql.NullString
			lastActive  int64
		)
		if err := rows.Scan(&u.ID, &displayName, &lastActive); err != nil {
			return nil, err
		}
		u.DisplayName = displayName.String
		u.LastActiveAt = time.Unix(lastActive, 0)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// SaveReportDigest records the latest narrative summary produced for a user,
// giving the batch job an observable output.
func (s *Store) SaveReportDigest(ctx context.Context, userID, summary string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO report_digests (user_id, summary, generated_at) VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET summary = excluded.summary, generated_at = excluded.generated_at
`, userID, summary, now())
	if err != nil {
		s.logger.Error().
			Str("method", "SaveReportDigest").
			Str("user_id", userID).
			Err(err).
			Msg("Failed to upsert report digest")
		return fmt.Errorf("upsert report digest: %w", err)
	}
	return nil
}

func scanMemory(rows *sql.Rows) (Memory, error) {
	var (
		m         Memory
		mood      sql.NullString
		tone      sql.NullString
		resonance sql.NullString
		tagsJSON  sql.NullString
		createdAt int64
	)
	if err := rows.Scan(&m.ID, &m.UserID, &m.UUID, &m.Content, &mood, &tone,
		&resonance, &m.InfluenceScore, &m.EmotionalWeight,
		&m.WisdomLevel, &m.SpiritualSignificance, &m.PersonalRelevance,
		&tagsJSON, &createdAt); err != nil {
		return Memory{}, err
	}
	m.Mood = mood.String
	m.EmotionalTone = tone.String
	m.EmotionalResonance = resonance.String
	if tagsJSON.Valid && tagsJSON.String != "" {
		_ = json.Unmarshal([]byte(tagsJSON.String), &m.BeliefTags)
	}
	m.Source = SourceMemory
	m.CreatedAt = time.Unix(createdAt, 0)
	return m, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Helper function to safely truncate strings (for log safety).
func truncateString(s string, n int) string {
	rs := []rune(s)
	if len(rs) > n {
		return string(rs[:n]) + "..."
	}
	return s
}
