package mocks

import (
	"context"
	"sync"

	"aipedia/internal/core"
	"aipedia/internal/llm"
	"aipedia/internal/tts"
	"aipedia/internal/visual"
)

// MockCompleter provides a mock implementation of llm.Completer
type MockCompleter struct {
	CompleteFunc func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)

	mu       sync.Mutex
	requests []llm.ChatRequest
}

func (m *MockCompleter) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return Reply(`{"title":"Mock Article","summary":"Mock summary","sections":[{"heading":"Overview","content":"Mock **content**"}],"references":[]}`), nil
}

// Calls returns how many completions were requested.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of the recorded requests.
func (m *MockCompleter) Requests() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.ChatRequest(nil), m.requests...)
}

// Reply wraps content in a single-choice chat response.
func Reply(content string) llm.ChatResponse {
	return llm.ChatResponse{Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, Content: content}}}}
}

// MockImageResolver provides a mock implementation of services.ImageResolver
type MockImageResolver struct {
	ResolveFunc func(ctx context.Context, topic string, opts visual.Options) *core.Image
}

func (m *MockImageResolver) Resolve(ctx context.Context, topic string, opts visual.Options) *core.Image {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, topic, opts)
	}
	return nil
}

// MockHistoryStore keeps history in memory
type MockHistoryStore struct {
	RecordFunc func(entry core.HistoryEntry, maxEntries int) error

	mu      sync.Mutex
	entries []core.HistoryEntry
}

func (m *MockHistoryStore) Record(entry core.HistoryEntry, maxEntries int) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(entry, maxEntries)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]core.HistoryEntry{entry}, m.entries...)
	if maxEntries > 0 && len(m.entries) > maxEntries {
		m.entries = m.entries[:maxEntries]
	}
	return nil
}

func (m *MockHistoryStore) ListHistory(limit int) ([]core.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && len(m.entries) > limit {
		return append([]core.HistoryEntry(nil), m.entries[:limit]...), nil
	}
	return append([]core.HistoryEntry(nil), m.entries...), nil
}

// MockNarrator provides a mock implementation of services.NarrationService
type MockNarrator struct {
	NarrateFunc func(ctx context.Context, article core.Article, language string, provider tts.Provider) (*tts.Audio, error)
}

func (m *MockNarrator) Narrate(ctx context.Context, article core.Article, language string, provider tts.Provider) (*tts.Audio, error) {
	if m.NarrateFunc != nil {
		return m.NarrateFunc(ctx, article, language, provider)
	}
	return &tts.Audio{Data: []byte("ID3"), ContentType: "audio/mpeg", Provider: provider}, nil
}

// RecordingSink records everything the pipeline emits
type RecordingSink struct {
	mu       sync.Mutex
	Articles []core.Article
	Errors   []string
	Steps    []core.ProgressStep

	// OnProgress, when set, runs after a step is recorded.
	OnProgress func(step core.ProgressStep)
}

func (s *RecordingSink) Render(article core.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Articles = append(s.Articles, article)
}

func (s *RecordingSink) RenderError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, message)
}

func (s *RecordingSink) ShowProgress(step core.ProgressStep) {
	s.mu.Lock()
	s.Steps = append(s.Steps, step)
	hook := s.OnProgress
	s.mu.Unlock()
	if hook != nil {
		hook(step)
	}
}

// Snapshot returns copies of the recorded output.
func (s *RecordingSink) Snapshot() ([]core.Article, []string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	labels := make([]string, len(s.Steps))
	for i, step := range s.Steps {
		labels[i] = step.Label
	}
	return append([]core.Article(nil), s.Articles...), append([]string(nil), s.Errors...), labels
}
