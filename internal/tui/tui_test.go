package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"aipedia/internal/core"
	"aipedia/internal/tts"
	"aipedia/test/mocks"
)

type fakeEngine struct {
	mu        sync.Mutex
	searches  []string
	activated []core.WikiLink
	prefs     core.Preferences
}

func (f *fakeEngine) Search(_ context.Context, topic, _ string, _ core.WritingStyle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, topic)
	return nil
}

func (f *fakeEngine) Activate(_ context.Context, link core.WikiLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, link)
	return nil
}

func (f *fakeEngine) Preferences() core.Preferences {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs
}

func (f *fakeEngine) SetPreferences(p core.Preferences) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs = p
}

type fakePrefs struct {
	saved map[string]string
}

func (f *fakePrefs) GetPreferences(defaults core.Preferences) (core.Preferences, error) {
	return defaults, nil
}

func (f *fakePrefs) SetPreference(key, value string) error {
	f.saved[key] = value
	return nil
}

// runCmd executes cmd and any batch it expands to, returning the messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var linkedArticle = core.Article{
	Title:    "Black holes",
	Summary:  "Dense.",
	Sections: []core.Section{{Heading: "Intro", Content: "**Event horizon** and [Hawking radiation](x)."}},
}

func TestTypingAndSearching(t *testing.T) {
	engine := &fakeEngine{}
	m := NewModel(context.Background(), engine, Options{})

	m, _ = update(t, m, key("Mars"))
	m, cmd := update(t, m, key("enter"))
	if !m.loading {
		t.Error("model should be loading after enter")
	}
	if m.input.Focused() {
		t.Error("input should lose focus after a search starts")
	}

	for _, msg := range runCmd(cmd) {
		if done, ok := msg.(doneMsg); ok {
			m, _ = update(t, m, done)
		}
	}
	if len(engine.searches) != 1 || engine.searches[0] != "Mars" {
		t.Errorf("searches = %v, expected [Mars]", engine.searches)
	}
	if m.loading {
		t.Error("model should stop loading when the search completes")
	}
}

func TestEmptyInputDoesNotSearch(t *testing.T) {
	engine := &fakeEngine{}
	m := NewModel(context.Background(), engine, Options{})

	m, _ = update(t, m, key("   "))
	_, cmd := update(t, m, key("enter"))
	runCmd(cmd)
	if len(engine.searches) != 0 {
		t.Errorf("searches = %v, expected none", engine.searches)
	}
}

func TestWikiLinkNavigation(t *testing.T) {
	engine := &fakeEngine{}
	m := NewModel(context.Background(), engine, Options{InitialTopic: "Black holes"})

	m, _ = update(t, m, articleMsg(linkedArticle))
	if len(m.links) != 2 || m.selected != 0 {
		t.Fatalf("links = %v selected = %d", m.links, m.selected)
	}
	if !strings.Contains(m.View(), "Link 1/2") {
		t.Errorf("view should show the selected link:\n%s", m.View())
	}

	m, _ = update(t, m, key("tab"))
	if m.selected != 1 {
		t.Errorf("selected = %d after tab, expected 1", m.selected)
	}
	m, _ = update(t, m, key("tab"))
	if m.selected != 0 {
		t.Errorf("selected = %d after wrapping, expected 0", m.selected)
	}
	m, _ = update(t, m, key("l"))

	m, cmd := update(t, m, key("enter"))
	runCmd(cmd)
	if len(engine.activated) != 1 || engine.activated[0].DisplayText != "Hawking radiation" {
		t.Errorf("activated = %v, expected Hawking radiation", engine.activated)
	}
	if !m.loading {
		t.Error("following a link should start loading")
	}
}

func TestStaleCompletionKeepsLoading(t *testing.T) {
	m := NewModel(context.Background(), &fakeEngine{}, Options{})
	m, _ = update(t, m, key("A"))
	m, _ = update(t, m, key("enter"))
	first := m.seq

	m, _ = update(t, m, key("/"))
	m, _ = update(t, m, key("B"))
	m, _ = update(t, m, key("enter"))

	m, _ = update(t, m, doneMsg{seq: first, err: core.ErrSuperseded})
	if !m.loading {
		t.Error("completion of a superseded search should not stop loading")
	}
	m, _ = update(t, m, doneMsg{seq: m.seq})
	if m.loading {
		t.Error("completion of the latest search should stop loading")
	}
}

func TestErrorMessage(t *testing.T) {
	m := NewModel(context.Background(), &fakeEngine{}, Options{InitialTopic: "x"})
	m, _ = update(t, m, errorMsg("Request timed out."))
	if m.loading {
		t.Error("error should stop loading")
	}
	if !strings.Contains(m.View(), "Error: Request timed out.") {
		t.Errorf("view missing error:\n%s", m.View())
	}
}

func TestPreferenceToggles(t *testing.T) {
	engine := &fakeEngine{prefs: core.Preferences{CachingEnabled: true}}
	prefs := &fakePrefs{saved: map[string]string{}}
	cleared := false
	m := NewModel(context.Background(), engine, Options{
		InitialTopic: "x",
		Prefs:        prefs,
		ClearCache:   func() { cleared = true },
	})

	m, _ = update(t, m, key("c"))
	if engine.prefs.CachingEnabled {
		t.Error("caching should be toggled off")
	}
	if prefs.saved["caching_enabled"] != "false" {
		t.Errorf("saved = %v", prefs.saved)
	}

	m, _ = update(t, m, key("i"))
	if !engine.prefs.ImageSuggestion {
		t.Error("image suggestion should be toggled on")
	}

	m, _ = update(t, m, key("x"))
	if !cleared || m.status != "Cache cleared" {
		t.Errorf("cleared = %v status = %q", cleared, m.status)
	}
}

func TestNarration(t *testing.T) {
	engine := &fakeEngine{prefs: core.Preferences{TTSProvider: "free"}}
	var gotProvider tts.Provider
	narrator := &mocks.MockNarrator{NarrateFunc: func(_ context.Context, a core.Article, _ string, p tts.Provider) (*tts.Audio, error) {
		gotProvider = p
		return &tts.Audio{Data: []byte("mp3")}, nil
	}}
	m := NewModel(context.Background(), engine, Options{
		InitialTopic: "x",
		Narrator:     narrator,
		SaveAudio: func(_ *tts.Audio, name string) (string, error) {
			return "/tmp/" + name, nil
		},
	})
	m, _ = update(t, m, articleMsg(linkedArticle))

	m, cmd := update(t, m, key("a"))
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("narration produced %d messages", len(msgs))
	}
	m, _ = update(t, m, msgs[0])
	if gotProvider != tts.ProviderFree {
		t.Errorf("provider = %q, expected free", gotProvider)
	}
	if m.status != "Narration saved to /tmp/black-holes.mp3" {
		t.Errorf("status = %q", m.status)
	}
}

func TestSinkForwardsMessages(t *testing.T) {
	sink := NewSink()
	sink.Render(linkedArticle) // detached: dropped

	var got []tea.Msg
	sink.Attach(func(msg tea.Msg) { got = append(got, msg) })
	sink.ShowProgress(core.ProgressStep{Label: "Generating prompt"})
	sink.Render(linkedArticle)
	sink.RenderError("boom")

	if len(got) != 3 {
		t.Fatalf("got %d messages, expected 3", len(got))
	}
	if _, ok := got[0].(progressMsg); !ok {
		t.Errorf("first message = %T, expected progressMsg", got[0])
	}
	if a, ok := got[1].(articleMsg); !ok || a.Title != "Black holes" {
		t.Errorf("second message = %#v", got[1])
	}
	if e, ok := got[2].(errorMsg); !ok || string(e) != "boom" {
		t.Errorf("third message = %#v", got[2])
	}
}
