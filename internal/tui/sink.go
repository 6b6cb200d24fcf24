package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"aipedia/internal/core"
)

// Sink forwards pipeline output to a running browser as messages.
// Output arriving while no browser is attached is dropped.
type Sink struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewSink creates a detached sink.
func NewSink() *Sink {
	return &Sink{}
}

// Attach connects the sink to a program's Send. nil detaches it.
func (s *Sink) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

func (s *Sink) post(msg tea.Msg) {
	s.mu.RLock()
	send := s.send
	s.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

func (s *Sink) Render(article core.Article) {
	s.post(articleMsg(article))
}

func (s *Sink) RenderError(message string) {
	s.post(errorMsg(message))
}

func (s *Sink) ShowProgress(step core.ProgressStep) {
	s.post(progressMsg(step))
}
