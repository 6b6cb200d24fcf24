package services

import (
	"context"

	"aipedia/internal/core"
	"aipedia/internal/tts"
	"aipedia/internal/visual"
)

// ArticleCache holds generated articles and resolved images for a session
type ArticleCache interface {
	Get(topic string, style core.WritingStyle) (core.Article, bool)
	Put(topic string, style core.WritingStyle, article core.Article)
	GetImage(term string) (core.Image, bool)
	PutImage(term string, img core.Image)
	Clear()
	ClearImages()
	SetEnabled(enabled bool)
	Enabled() bool
}

// ImageResolver finds an illustrative image for a topic; nil means none
type ImageResolver interface {
	Resolve(ctx context.Context, topic string, opts visual.Options) *core.Image
}

// HistoryStore persists the bounded search history
type HistoryStore interface {
	Record(entry core.HistoryEntry, maxEntries int) error
	ListHistory(limit int) ([]core.HistoryEntry, error)
}

// PreferenceStore persists user toggles
type PreferenceStore interface {
	GetPreferences(defaults core.Preferences) (core.Preferences, error)
	SetPreference(key, value string) error
}

// NarrationService reads an article aloud on demand
type NarrationService interface {
	Narrate(ctx context.Context, article core.Article, language string, provider tts.Provider) (*tts.Audio, error)
}

// RenderSink receives the output of the search pipeline. Implementations must
// not block for long: calls arrive on the orchestrator's goroutine.
type RenderSink interface {
	Render(article core.Article)
	RenderError(message string)
	ShowProgress(step core.ProgressStep)
}
