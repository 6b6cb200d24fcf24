package handlers

import (
	"errors"
	"testing"

	"aipedia/internal/core"
)

func TestShareQuery(t *testing.T) {
	req := core.SearchRequest{Topic: "black holes & stars", Language: "fr", Style: core.StyleConcise}
	got := ShareQuery(req)
	expected := "?q=black+holes+%26+stars&lang=fr&style=concise"
	if got != expected {
		t.Errorf("ShareQuery = %q, expected %q", got, expected)
	}

	back, err := ParseShareURL("https://aipedia.example/" + got)
	if err != nil {
		t.Fatalf("ParseShareURL failed: %v", err)
	}
	if back != req {
		t.Errorf("round trip = %+v, expected %+v", back, req)
	}
}

func TestParseShareURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		topic    string
		language string
		style    core.WritingStyle
		wantErr  bool
	}{
		{"full url", "https://aipedia.example/?q=Mars&lang=es&style=formal", "Mars", "es", core.StyleFormal, false},
		{"bare query", "q=Mars", "Mars", "en", core.StyleNormal, false},
		{"leading question mark", "?q=Deep%20sea&style=AGE-0-10", "Deep sea", "en", core.StyleAge0To10, false},
		{"fragment ignored", "/?q=Mars&lang=de#section-2", "Mars", "de", core.StyleNormal, false},
		{"missing topic", "https://aipedia.example/?lang=en", "", "", "", true},
		{"blank topic", "?q=+++", "", "", "", true},
		{"malformed escape", "?q=%zz", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseShareURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", req)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Topic != tt.topic || req.Language != tt.language || req.Style != tt.style {
				t.Errorf("request = %+v, expected %s/%s/%s", req, tt.topic, tt.language, tt.style)
			}
		})
	}
}

func TestParseShareURLEmptyTopicIsValidationError(t *testing.T) {
	_, err := ParseShareURL("?lang=en")
	if !errors.Is(err, core.ErrEmptyTopic) {
		t.Errorf("error = %v, expected ErrEmptyTopic", err)
	}
}
