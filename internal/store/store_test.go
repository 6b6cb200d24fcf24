package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aipedia/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	dbPath := filepath.Join(tmpDir, "aipedia.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	invalidPath := filepath.Join(tmpDir, "file.txt")
	_ = os.WriteFile(invalidPath, []byte("test"), 0644)

	if _, err := NewStore(invalidPath); err == nil {
		t.Error("Expected error when creating store in invalid directory")
	}
}

func TestRecord_OrderDedupAndLimit(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		entry := core.HistoryEntry{
			Topic:        fmt.Sprintf("Topic %d", i),
			Language:     "en",
			DisplayStyle: core.StyleNormal,
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Record(entry, 10); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := store.ListHistory(0)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("len = %d, expected 10", len(entries))
	}
	if entries[0].Topic != "Topic 11" || entries[9].Topic != "Topic 2" {
		t.Errorf("order = %q ... %q", entries[0].Topic, entries[9].Topic)
	}

	// Re-searching an older topic moves it to the front without duplicating it.
	if err := store.Record(core.HistoryEntry{Topic: "topic 5", Language: "fr", DisplayStyle: core.StyleFormal, Timestamp: base.Add(time.Hour)}, 10); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	entries, _ = store.ListHistory(0)
	if len(entries) != 10 {
		t.Errorf("len = %d, expected 10 after dedup", len(entries))
	}
	if entries[0].Topic != "topic 5" || entries[0].Language != "fr" || entries[0].DisplayStyle != core.StyleFormal {
		t.Errorf("front entry = %+v", entries[0])
	}
	count := 0
	for _, e := range entries {
		if topicKey(e.Topic) == "topic 5" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("topic 5 appears %d times, expected 1", count)
	}
}

func TestDeleteAndClearHistory(t *testing.T) {
	store := newTestStore(t)
	store.Record(core.HistoryEntry{ID: "a", Topic: "A"}, 10)
	store.Record(core.HistoryEntry{ID: "b", Topic: "B"}, 10)

	if err := store.DeleteHistory("a"); err != nil {
		t.Fatalf("DeleteHistory failed: %v", err)
	}
	if err := store.DeleteHistory("missing"); err == nil {
		t.Error("expected error deleting a missing entry")
	}

	entries, _ := store.ListHistory(0)
	if len(entries) != 1 || entries[0].ID != "b" {
		t.Errorf("entries = %+v", entries)
	}

	if err := store.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	entries, _ = store.ListHistory(0)
	if len(entries) != 0 {
		t.Errorf("len = %d after clear, expected 0", len(entries))
	}
}

func TestDeleteHistoryByTopic(t *testing.T) {
	store := newTestStore(t)
	store.Record(core.HistoryEntry{ID: "a", Topic: "Black Holes"}, 10)
	store.Record(core.HistoryEntry{ID: "b", Topic: "Mars"}, 10)

	if err := store.DeleteHistoryByTopic("  black   holes "); err != nil {
		t.Fatalf("DeleteHistoryByTopic failed: %v", err)
	}
	if err := store.DeleteHistoryByTopic("Venus"); err == nil {
		t.Error("expected error deleting an unknown topic")
	}

	entries, _ := store.ListHistory(0)
	if len(entries) != 1 || entries[0].Topic != "Mars" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestPreferences(t *testing.T) {
	store := newTestStore(t)
	defaults := core.Preferences{CachingEnabled: true, SuggestionStrategy: "v2", TTSProvider: "free"}

	prefs, err := store.GetPreferences(defaults)
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if prefs != defaults {
		t.Errorf("prefs = %+v, expected defaults", prefs)
	}

	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{PrefCachingEnabled, "false", false},
		{PrefImageSuggestion, "TRUE", false},
		{PrefSuggestionStrategy, "v1", false},
		{PrefTTSProvider, "premium", false},
		{PrefSuggestionStrategy, "v3", true},
		{PrefCachingEnabled, "maybe", true},
		{"volume", "11", true},
	}
	for _, tt := range tests {
		err := store.SetPreference(tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetPreference(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
		}
	}

	prefs, _ = store.GetPreferences(defaults)
	expected := core.Preferences{CachingEnabled: false, ImageSuggestion: true, SuggestionStrategy: "v1", TTSProvider: "premium"}
	if prefs != expected {
		t.Errorf("prefs = %+v, expected %+v", prefs, expected)
	}

	if err := store.SavePreferences(defaults); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}
	prefs, _ = store.GetPreferences(core.Preferences{})
	if prefs != defaults {
		t.Errorf("prefs = %+v after SavePreferences, expected %+v", prefs, defaults)
	}
}

func TestSavedArticles(t *testing.T) {
	store := newTestStore(t)
	req := core.SearchRequest{Topic: "Black Holes", Language: "en", Style: core.StyleConcise}
	article := core.Article{
		Title:      "Black holes",
		Summary:    "Regions of spacetime.",
		Sections:   []core.Section{{Heading: "Formation", Content: "**Stars** collapse."}},
		References: []string{"Hawking 1974"},
		Image:      &core.Image{URL: "https://img"},
	}

	if got, err := store.GetSavedArticle("black holes", core.StyleConcise); err != nil || got != nil {
		t.Fatalf("expected miss, got %v, %v", got, err)
	}
	if err := store.SaveArticle(req, article); err != nil {
		t.Fatalf("SaveArticle failed: %v", err)
	}

	got, err := store.GetSavedArticle("  BLACK holes ", core.StyleConcise)
	if err != nil || got == nil {
		t.Fatalf("GetSavedArticle = %v, %v", got, err)
	}
	if got.Sections[0].Content != "**Stars** collapse." || got.Image == nil {
		t.Errorf("article = %+v", got)
	}

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.SavedCount != 1 {
		t.Errorf("SavedCount = %d, expected 1", stats.SavedCount)
	}
}

func TestUsageLog(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.RecordUsage("local", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("RecordUsage failed: %v", err)
		}
	}
	if err := store.RecordUsage("other", base); err != nil {
		t.Fatalf("RecordUsage failed: %v", err)
	}
	_ = store.Close()

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	times, err := reopened.UsageSince("local", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("UsageSince failed: %v", err)
	}
	if len(times) != 2 || !times[0].Equal(base.Add(time.Minute)) || !times[1].Equal(base.Add(2*time.Minute)) {
		t.Errorf("UsageSince = %v, expected the last two entries oldest first", times)
	}

	if err := reopened.PruneUsage(base.Add(2 * time.Minute)); err != nil {
		t.Fatalf("PruneUsage failed: %v", err)
	}
	times, _ = reopened.UsageSince("local", time.Time{})
	if len(times) != 1 {
		t.Errorf("after prune, %d entries remain, expected 1", len(times))
	}
	if times, _ := reopened.UsageSince("other", time.Time{}); len(times) != 0 {
		t.Errorf("other key kept %d entries, expected them pruned", len(times))
	}
}
