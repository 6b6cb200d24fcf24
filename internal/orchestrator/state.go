package orchestrator

import (
	"sync"

	"aipedia/internal/core"
)

// State is the mutable session context shared by the pipeline and the UI:
// the article on display, the request that produced it and the user toggles.
type State struct {
	mu       sync.RWMutex
	current  *core.Article
	request  core.SearchRequest
	language string
	style    core.WritingStyle
	prefs    core.Preferences
}

func newState(prefs core.Preferences) *State {
	return &State{language: "en", style: core.StyleNormal, prefs: prefs}
}

// Article returns a copy of the current article.
func (s *State) Article() (core.Article, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return core.Article{}, false
	}
	return s.current.Clone(), true
}

// Request returns the request behind the current article.
func (s *State) Request() core.SearchRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.request
}

// Defaults returns the language and style of the latest search, used for
// wiki-link follow-ups.
func (s *State) Defaults() (string, core.WritingStyle) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language, s.style
}

// Preferences returns the user toggles.
func (s *State) Preferences() core.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// SetPreferences replaces the user toggles.
func (s *State) SetPreferences(p core.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = p
}

func (s *State) setDefaults(language string, style core.WritingStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = language
	s.style = style
}

func (s *State) setCurrent(req core.SearchRequest, article core.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := article.Clone()
	s.current = &a
	s.request = req
}
