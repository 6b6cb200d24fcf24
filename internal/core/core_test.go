package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewSearchRequest(t *testing.T) {
	req, err := NewSearchRequest("  Quantum physics \n", "", "")
	if err != nil {
		t.Fatalf("NewSearchRequest failed: %v", err)
	}
	if req.Topic != "Quantum physics" {
		t.Errorf("Topic = %q, expected %q", req.Topic, "Quantum physics")
	}
	if req.Language != "en" {
		t.Errorf("Language = %q, expected en", req.Language)
	}
	if req.Style != StyleNormal {
		t.Errorf("Style = %q, expected %q", req.Style, StyleNormal)
	}
}

func TestNewSearchRequest_EmptyTopic(t *testing.T) {
	for _, topic := range []string{"", "   ", "\t\n"} {
		if _, err := NewSearchRequest(topic, "en", StyleBalanced); !errors.Is(err, ErrEmptyTopic) {
			t.Errorf("NewSearchRequest(%q) error = %v, expected ErrEmptyTopic", topic, err)
		}
	}
}

func TestWritingStyleDisplayStyle(t *testing.T) {
	tests := []struct {
		style    WritingStyle
		expected WritingStyle
	}{
		{StyleAge0To10, StyleNormal},
		{StyleAge25Plus, StyleNormal},
		{StyleFormal, StyleFormal},
		{StyleNormal, StyleNormal},
	}
	for _, tt := range tests {
		if got := tt.style.DisplayStyle(); got != tt.expected {
			t.Errorf("%q.DisplayStyle() = %q, expected %q", tt.style, got, tt.expected)
		}
	}
}

func TestParseWritingStyle(t *testing.T) {
	if got := ParseWritingStyle(""); got != StyleNormal {
		t.Errorf("ParseWritingStyle(\"\") = %q, expected normal", got)
	}
	if got := ParseWritingStyle(" Formal "); got != StyleFormal {
		t.Errorf("ParseWritingStyle(\" Formal \") = %q, expected formal", got)
	}
	if got := ParseWritingStyle("whimsical"); got != WritingStyle("whimsical") {
		t.Errorf("unknown styles should be preserved, got %q", got)
	}
}

func TestArticleClone(t *testing.T) {
	total := 1.5
	original := Article{
		Title:      "Go",
		Sections:   []Section{{Heading: "History", Content: "Started in 2007"}},
		References: []string{"golang.org"},
		Image:      &Image{URL: "https://img"},
		Metrics:    Metrics{TotalLoadingSeconds: &total},
	}

	clone := original.Clone()
	clone.Sections[0].Heading = "Changed"
	clone.References[0] = "changed"
	clone.Image.URL = "changed"
	*clone.Metrics.TotalLoadingSeconds = 9

	if original.Sections[0].Heading != "History" {
		t.Error("Clone shares the sections slice")
	}
	if original.References[0] != "golang.org" {
		t.Error("Clone shares the references slice")
	}
	if original.Image.URL != "https://img" {
		t.Error("Clone shares the image")
	}
	if *original.Metrics.TotalLoadingSeconds != 1.5 {
		t.Error("Clone shares the loading time")
	}
}

func TestNarrationText(t *testing.T) {
	a := Article{Title: "Go", Summary: "A language."}
	if got := a.NarrationText(5000); got != "Go. A language." {
		t.Errorf("NarrationText = %q", got)
	}

	long := Article{Title: "T", Summary: strings.Repeat("é", 6000)}
	if got := []rune(long.NarrationText(5000)); len(got) != 5000 {
		t.Errorf("NarrationText length = %d runes, expected 5000", len(got))
	}
}

func TestWikiLinkRequest(t *testing.T) {
	current := Article{Title: "Solar System"}
	req, err := WikiLink{DisplayText: "Jupiter"}.Request(current, "fr", StyleConcise)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if req.Topic != "Jupiter" || req.ContextTitle != "Solar System" || req.Language != "fr" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"validation", ErrEmptyTopic, "enter a topic"},
		{"rate limited", &RateLimitError{RetryAfterSeconds: 42}, "42 seconds"},
		{"daily", &RateLimitError{Daily: true}, "tomorrow"},
		{"timeout", fmt.Errorf("chat: %w", ErrTimeout), "timed out"},
		{"boundary", &BoundaryError{Operation: "chat", Status: 502}, "status 502"},
		{"boundary message", &BoundaryError{Operation: "chat", Status: 500, Message: "upstream down"}, "upstream down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); !strings.Contains(got, tt.contains) {
				t.Errorf("UserMessage(%v) = %q, expected to contain %q", tt.err, got, tt.contains)
			}
		})
	}
}
