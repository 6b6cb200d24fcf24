package core

import (
	"strings"
	"time"
)

// WritingStyle selects tone, length and section count for a generated article.
// It is also part of the article cache key.
type WritingStyle string

const (
	StyleNormal         WritingStyle = "normal"
	StyleBalanced       WritingStyle = "balanced"
	StyleFormal         WritingStyle = "formal"
	StyleAccessible     WritingStyle = "accessible"
	StyleExplanatory    WritingStyle = "explanatory"
	StyleConcise        WritingStyle = "concise"
	StyleAcademic       WritingStyle = "academic"
	StyleSimple         WritingStyle = "simple"
	StyleCreative       WritingStyle = "creative"
	StyleProfessional   WritingStyle = "professional"
	StyleConversational WritingStyle = "conversational"
	StyleAge0To10       WritingStyle = "age-0-10"
	StyleAge11To16      WritingStyle = "age-11-16"
	StyleAge17To25      WritingStyle = "age-17-25"
	StyleAge25Plus      WritingStyle = "age-25-plus"
)

// ParseWritingStyle normalizes user input. Empty input means StyleNormal;
// anything else is kept so that unknown tags still get their own cache slot.
func ParseWritingStyle(s string) WritingStyle {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StyleNormal
	}
	return WritingStyle(s)
}

// IsAgeBanded reports whether the style targets a specific age group.
func (s WritingStyle) IsAgeBanded() bool {
	return strings.HasPrefix(string(s), "age-")
}

// DisplayStyle is the style shown in history: age bands collapse to normal.
func (s WritingStyle) DisplayStyle() WritingStyle {
	if s.IsAgeBanded() {
		return StyleNormal
	}
	return s
}

// SearchRequest is one user (or wiki-link) request for an article. Treat it as immutable.
type SearchRequest struct {
	Topic        string       `json:"topic"`                   // Trimmed, never empty
	Language     string       `json:"language"`                // ISO code, e.g. "en"
	Style        WritingStyle `json:"style"`                   // Requested writing style
	ContextTitle string       `json:"context_title,omitempty"` // Title of the article the link was clicked in
}

// NewSearchRequest validates and normalizes a request. Whitespace-only topics are rejected.
func NewSearchRequest(topic, language string, style WritingStyle) (SearchRequest, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return SearchRequest{}, ErrEmptyTopic
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "en"
	}
	if style == "" {
		style = StyleNormal
	}
	return SearchRequest{Topic: topic, Language: language, Style: style}, nil
}

// WithContext returns a copy scoped to the article the search originated from.
func (r SearchRequest) WithContext(title string) SearchRequest {
	r.ContextTitle = strings.TrimSpace(title)
	return r
}

// Section is one headed block of an article. Content keeps its markdown.
type Section struct {
	Heading string `json:"heading"` // Plain text
	Content string `json:"content"` // Rich text: **bold**, *italic*, [links](x)
}

// Image is an illustrative photo reference with attribution.
type Image struct {
	URL                  string `json:"url"`                    // Display URL of the photo
	SourceAttributionURL string `json:"source_attribution_url"` // Photo page on the provider
	CreditLabel          string `json:"credit_label"`           // e.g. "Image by Jane on Unsplash"
}

// Metrics describes how an article was produced.
type Metrics struct {
	GenerationSeconds   float64  `json:"generation_seconds"`
	TokenCountEstimate  int      `json:"token_count_estimate"`
	EstimatedCostUSD    string   `json:"estimated_cost_usd"` // Formatted with 4 decimals
	FromCache           bool     `json:"from_cache"`
	TotalLoadingSeconds *float64 `json:"total_loading_seconds,omitempty"`
}

// Article is a generated, structurally validated encyclopedia entry.
type Article struct {
	Title        string       `json:"title"`   // Plain text, markdown stripped
	Summary      string       `json:"summary"` // Plain text, markdown stripped
	Sections     []Section    `json:"sections"`
	References   []string     `json:"references"`
	Image        *Image       `json:"image,omitempty"`
	Metrics      Metrics      `json:"metrics"`
	WritingStyle WritingStyle `json:"writing_style"`
}

// Clone returns a deep copy so that cache, history and sinks never share mutable state.
func (a Article) Clone() Article {
	c := a
	if a.Sections != nil {
		c.Sections = make([]Section, len(a.Sections))
		copy(c.Sections, a.Sections)
	}
	if a.References != nil {
		c.References = make([]string, len(a.References))
		copy(c.References, a.References)
	}
	if a.Image != nil {
		img := *a.Image
		c.Image = &img
	}
	if a.Metrics.TotalLoadingSeconds != nil {
		v := *a.Metrics.TotalLoadingSeconds
		c.Metrics.TotalLoadingSeconds = &v
	}
	return c
}

// NarrationText is the text read aloud: title and summary, capped at maxRunes.
func (a Article) NarrationText(maxRunes int) string {
	text := a.Title + ". " + a.Summary
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes])
	}
	return text
}

// WikiLink is a term inside section content that can start a contextual search.
type WikiLink struct {
	DisplayText string `json:"display_text"`
}

// Request builds the follow-up search for this link, scoped to the current article.
func (l WikiLink) Request(current Article, language string, style WritingStyle) (SearchRequest, error) {
	req, err := NewSearchRequest(l.DisplayText, language, style)
	if err != nil {
		return SearchRequest{}, err
	}
	return req.WithContext(current.Title), nil
}

// HistoryEntry records one search for the history list.
type HistoryEntry struct {
	ID           string       `json:"id"`
	Topic        string       `json:"topic"`
	Language     string       `json:"language"`
	DisplayStyle WritingStyle `json:"display_style"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Preferences are the user toggles persisted between runs.
type Preferences struct {
	CachingEnabled     bool   `json:"caching_enabled"`
	ImageSuggestion    bool   `json:"image_suggestion"`
	SuggestionStrategy string `json:"suggestion_strategy"` // "v1" or "v2"
	TTSProvider        string `json:"tts_provider"`        // "premium" or "free"
}

// ProgressStep is one ordered event in a search's progress stream.
type ProgressStep struct {
	Label   string
	Elapsed time.Duration // Time since the search started
	Timed   bool          // Whether Elapsed should be shown
}
