package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aipedia/internal/config"
	"aipedia/internal/core"
	"aipedia/internal/orchestrator"
	"aipedia/internal/store"
	"aipedia/test/mocks"
)

const proxyArticle = `{"title":"Black Holes","summary":"Regions of spacetime.","sections":[{"heading":"Formation","content":"Formed by **stellar collapse**."}],"references":["Hawking 1974"]}`

// newProxy serves chat completions with proxyArticle and refuses images.
func newProxy(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mocks.Reply(proxyArticle))
	})
	mux.HandleFunc("/api/image", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"not found"}}`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testAppConfig(t *testing.T, proxyURL string) *config.Config {
	t.Helper()
	return &config.Config{
		App:     config.App{DataDir: t.TempDir()},
		Proxy:   config.Proxy{BaseURL: proxyURL + "/api", Timeout: "5s"},
		LLM:     config.LLM{Model: "deepseek-chat", MaxTokens: 4000, GenerationTimeout: "5s"},
		Image:   config.Image{Strategy: "v2"},
		Cache:   config.Cache{Enabled: true},
		History: config.History{MaxEntries: 10},
		TTS:     config.TTS{Provider: "free", OutputDirectory: t.TempDir()},
	}
}

func TestSearchAndKeep(t *testing.T) {
	proxy := newProxy(t)
	cfg := testAppConfig(t, proxy.URL)
	sink := &mocks.RecordingSink{}

	a, err := newApp(cfg, sink)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close()

	req, _ := core.NewSearchRequest("black holes", "en", core.StyleConcise)
	output := filepath.Join(t.TempDir(), "out.html")
	var errOut bytes.Buffer

	err = searchAndKeep(context.Background(), a, req, searchOptions{output: output, save: true}, &errOut)
	if err != nil {
		t.Fatalf("searchAndKeep failed: %v", err)
	}

	articles, errs, _ := sink.Snapshot()
	if len(articles) != 1 || articles[0].Title != "Black Holes" {
		t.Fatalf("rendered = %+v, errors = %v", articles, errs)
	}
	if articles[0].Image != nil {
		t.Error("image should be skipped when the proxy refuses it")
	}
	if !strings.Contains(errOut.String(), "Estimated wait: ~16s") {
		t.Errorf("stderr = %q, expected a wait estimate", errOut.String())
	}

	page, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	if !strings.Contains(string(page), `class="wiki-link"`) {
		t.Error("exported HTML should carry wiki links")
	}

	saved, err := a.store.GetSavedArticle("Black Holes", core.StyleConcise)
	if err != nil || saved == nil {
		t.Fatalf("saved article = %v, err = %v", saved, err)
	}

	entries, _ := a.store.ListHistory(0)
	if len(entries) != 1 || entries[0].Topic != "black holes" {
		t.Errorf("history = %+v", entries)
	}
}

func TestSearchAndKeepReportsFailure(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"Rate limit exceeded","message":"Too many requests","retryAfter":42}`))
	}))
	defer proxy.Close()

	sink := &mocks.RecordingSink{}
	a, err := newApp(testAppConfig(t, proxy.URL), sink)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	defer a.Close()

	req, _ := core.NewSearchRequest("mars", "en", core.StyleNormal)
	err = searchAndKeep(context.Background(), a, req, searchOptions{noProgress: true}, &bytes.Buffer{})

	if _, ok := err.(errReported); !ok {
		t.Fatalf("error = %T %v, expected errReported", err, err)
	}
	_, errs, _ := sink.Snapshot()
	if len(errs) != 1 || !strings.Contains(errs[0], "42 seconds") {
		t.Errorf("errors = %v, expected a retry hint", errs)
	}
}

func TestClientLimiterHoldsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	cfg := config.RateLimit{Enabled: true, Backend: "store", PerDay: 2}
	ctx := context.Background()

	for run := 1; run <= 3; run++ {
		st, err := store.NewStore(dir)
		if err != nil {
			t.Fatalf("NewStore failed: %v", err)
		}
		limiter, err := newClientLimiter(cfg, st)
		if err != nil {
			t.Fatalf("newClientLimiter failed: %v", err)
		}
		d, err := limiter.Allow(ctx, orchestrator.LocalLimiterKey)
		_ = st.Close()
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}

		if run <= 2 && !d.Allowed {
			t.Errorf("run %d = %+v, expected allowed", run, d)
		}
		if run == 3 && (d.Allowed || !d.Daily) {
			t.Errorf("run %d = %+v, expected the daily quota to be spent", run, d)
		}
	}
}

func TestSearchRequest(t *testing.T) {
	req, err := searchRequest([]string{"deep", "sea"}, searchOptions{language: "FR", style: "Formal"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Topic != "deep sea" || req.Language != "fr" || req.Style != core.StyleFormal {
		t.Errorf("request = %+v", req)
	}

	req, err = searchRequest([]string{"ignored"}, searchOptions{fromURL: "?q=Mars&lang=es"})
	if err != nil || req.Topic != "Mars" || req.Language != "es" {
		t.Errorf("request = %+v, err = %v", req, err)
	}

	if _, err := searchRequest(nil, searchOptions{}); err == nil {
		t.Error("expected error for a missing topic")
	}
}

func TestFindHistoryEntry(t *testing.T) {
	entries := []core.HistoryEntry{
		{ID: "1", Topic: "Black Holes"},
		{ID: "2", Topic: "Mars"},
	}

	tests := []struct {
		target string
		wantID string
		found  bool
	}{
		{"1", "1", true},
		{"2", "2", true},
		{"3", "", false},
		{"0", "", false},
		{"  black   HOLES ", "1", true},
		{"Venus", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, ok := findHistoryEntry(entries, tt.target)
			if ok != tt.found || got.ID != tt.wantID {
				t.Errorf("findHistoryEntry(%q) = %q, %v, expected %q, %v", tt.target, got.ID, ok, tt.wantID, tt.found)
			}
		})
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	if strings.TrimSpace(buf.String()) != "No searches yet" {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	printHistory(&buf, []core.HistoryEntry{{
		Topic:        strings.Repeat("x", 50),
		Language:     "en",
		DisplayStyle: core.StyleNormal,
		Timestamp:    time.Date(2025, 3, 4, 5, 6, 0, 0, time.UTC),
	}})
	out := buf.String()
	if !strings.Contains(out, strings.Repeat("x", 37)+"...") || !strings.Contains(out, "Mar 04 05:06") {
		t.Errorf("output = %q", out)
	}
}

func TestPrintPreferences(t *testing.T) {
	var buf bytes.Buffer
	printPreferences(&buf, core.Preferences{CachingEnabled: true, SuggestionStrategy: "v2", TTSProvider: "free"})
	for _, want := range []string{"caching_enabled       true", "image_suggestion      false", "suggestion_strategy   v2", "tts_provider          free"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}
