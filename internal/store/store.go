package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"aipedia/internal/core"
)

// Preference keys
const (
	PrefCachingEnabled     = "caching_enabled"
	PrefImageSuggestion    = "image_suggestion"
	PrefSuggestionStrategy = "suggestion_strategy"
	PrefTTSProvider        = "tts_provider"
)

// Store represents the SQLite-backed history, preference and saved article store
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new store instance with SQLite database
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "aipedia.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection serializes access.
	db.SetMaxOpenConns(1)

	store := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	historyTable := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		topic_key TEXT UNIQUE,
		topic TEXT,
		language TEXT,
		display_style TEXT,
		created_at INTEGER
	);`

	preferencesTable := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT
	);`

	articlesTable := `
	CREATE TABLE IF NOT EXISTS saved_articles (
		topic_key TEXT,
		style TEXT,
		language TEXT,
		title TEXT,
		article_json TEXT,
		saved_at INTEGER,
		PRIMARY KEY (topic_key, style)
	);`

	usageTable := `
	CREATE TABLE IF NOT EXISTS rate_usage (
		key TEXT,
		used_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_rate_usage_key ON rate_usage(key, used_at);`

	for _, table := range []string{historyTable, preferencesTable, articlesTable, usageTable} {
		if _, err := s.db.Exec(table); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func topicKey(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(topic)), " ")
}

// Record adds a history entry at the front, replacing any earlier entry for
// the same topic and keeping at most maxEntries.
func (s *Store) Record(entry core.HistoryEntry, maxEntries int) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	key := topicKey(entry.Topic)
	if _, err := tx.Exec("DELETE FROM history WHERE topic_key = ?", key); err != nil {
		return fmt.Errorf("failed to remove duplicate entry: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO history (id, topic_key, topic, language, display_style, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, key, entry.Topic, entry.Language, string(entry.DisplayStyle), entry.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	if maxEntries > 0 {
		_, err = tx.Exec(`DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY created_at DESC LIMIT ?)`, maxEntries)
		if err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
	}

	return tx.Commit()
}

// ListHistory returns entries most recent first. limit <= 0 returns all.
func (s *Store) ListHistory(limit int) ([]core.HistoryEntry, error) {
	query := "SELECT id, topic, language, display_style, created_at FROM history ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []core.HistoryEntry{}
	for rows.Next() {
		var e core.HistoryEntry
		var style string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Topic, &e.Language, &style, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.DisplayStyle = core.WritingStyle(style)
		e.Timestamp = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteHistory removes one entry by id.
func (s *Store) DeleteHistory(id string) error {
	res, err := s.db.Exec("DELETE FROM history WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("history entry %s not found", id)
	}
	return nil
}

// DeleteHistoryByTopic removes the entry for topic, matched the way Record
// deduplicates.
func (s *Store) DeleteHistoryByTopic(topic string) error {
	res, err := s.db.Exec("DELETE FROM history WHERE topic_key = ?", topicKey(topic))
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no history entry for %q", topic)
	}
	return nil
}

// RecordUsage logs one accepted request for a rate limit key.
func (s *Store) RecordUsage(key string, at time.Time) error {
	if _, err := s.db.Exec("INSERT INTO rate_usage (key, used_at) VALUES (?, ?)", key, at.UnixNano()); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// UsageSince returns the request times for key at or after since, oldest first.
func (s *Store) UsageSince(key string, since time.Time) ([]time.Time, error) {
	rows, err := s.db.Query("SELECT used_at FROM rate_usage WHERE key = ? AND used_at >= ? ORDER BY used_at", key, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var at int64
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		times = append(times, time.Unix(0, at))
	}
	return times, rows.Err()
}

// PruneUsage drops usage older than before.
func (s *Store) PruneUsage(before time.Time) error {
	if _, err := s.db.Exec("DELETE FROM rate_usage WHERE used_at < ?", before.UnixNano()); err != nil {
		return fmt.Errorf("failed to prune usage: %w", err)
	}
	return nil
}

// ClearHistory removes every history entry.
func (s *Store) ClearHistory() error {
	if _, err := s.db.Exec("DELETE FROM history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// GetPreferences overlays stored values on defaults.
func (s *Store) GetPreferences(defaults core.Preferences) (core.Preferences, error) {
	rows, err := s.db.Query("SELECT key, value FROM preferences")
	if err != nil {
		return defaults, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	prefs := defaults
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return defaults, fmt.Errorf("failed to scan preference: %w", err)
		}
		// Unknown or invalid rows are skipped.
		_ = applyPreference(&prefs, key, value)
	}
	return prefs, rows.Err()
}

// SetPreference validates and stores one preference.
func (s *Store) SetPreference(key, value string) error {
	var scratch core.Preferences
	if err := applyPreference(&scratch, key, value); err != nil {
		return err
	}
	_, err := s.db.Exec("INSERT OR REPLACE INTO preferences (key, value) VALUES (?, ?)", key, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}

// SavePreferences stores every field of prefs.
func (s *Store) SavePreferences(prefs core.Preferences) error {
	values := map[string]string{
		PrefCachingEnabled:     strconv.FormatBool(prefs.CachingEnabled),
		PrefImageSuggestion:    strconv.FormatBool(prefs.ImageSuggestion),
		PrefSuggestionStrategy: prefs.SuggestionStrategy,
		PrefTTSProvider:        prefs.TTSProvider,
	}
	for key, value := range values {
		if err := s.SetPreference(key, value); err != nil {
			return err
		}
	}
	return nil
}

func applyPreference(p *core.Preferences, key, value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	switch key {
	case PrefCachingEnabled, PrefImageSuggestion:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false, got %q", key, value)
		}
		if key == PrefCachingEnabled {
			p.CachingEnabled = b
		} else {
			p.ImageSuggestion = b
		}
	case PrefSuggestionStrategy:
		if value != "v1" && value != "v2" {
			return fmt.Errorf("%s must be v1 or v2, got %q", key, value)
		}
		p.SuggestionStrategy = value
	case PrefTTSProvider:
		if value != "premium" && value != "free" {
			return fmt.Errorf("%s must be premium or free, got %q", key, value)
		}
		p.TTSProvider = value
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return nil
}

// SaveArticle keeps a generated article for later export or offline reading.
func (s *Store) SaveArticle(req core.SearchRequest, article core.Article) error {
	data, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("failed to encode article: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO saved_articles (topic_key, style, language, title, article_json, saved_at) VALUES (?, ?, ?, ?, ?, ?)`,
		topicKey(req.Topic), string(req.Style), req.Language, article.Title, string(data), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	return nil
}

// GetSavedArticle returns a saved article, or nil when there is none.
func (s *Store) GetSavedArticle(topic string, style core.WritingStyle) (*core.Article, error) {
	var data string
	err := s.db.QueryRow("SELECT article_json FROM saved_articles WHERE topic_key = ? AND style = ?",
		topicKey(topic), string(style)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}

	var article core.Article
	if err := json.Unmarshal([]byte(data), &article); err != nil {
		return nil, fmt.Errorf("failed to decode article: %w", err)
	}
	return &article, nil
}

// Stats represents store statistics
type Stats struct {
	HistoryCount int
	SavedCount   int
	Size         int64
	LastUpdated  time.Time
}

// GetStats returns statistics about the store
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}
	queries := map[string]*int{
		"SELECT COUNT(*) FROM history":        &stats.HistoryCount,
		"SELECT COUNT(*) FROM saved_articles": &stats.SavedCount,
	}
	for query, target := range queries {
		if err := s.db.QueryRow(query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}
	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.Size = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}
	return stats, nil
}
