package prompt

import (
	"strings"
	"testing"

	"aipedia/internal/core"
)

func TestBuild_IncludesTopicLanguageAndShape(t *testing.T) {
	req := core.SearchRequest{Topic: "Black holes", Language: "fr", Style: core.StyleNormal}
	p := Build(req)

	for _, want := range []string{`"Black holes"`, "French", `"title"`, `"summary"`, `"sections"`, `"heading"`, `"content"`, `"references"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt should contain %s", want)
		}
	}
	if strings.Contains(p, "opened from the article") {
		t.Error("prompt without context should not mention a source article")
	}
}

func TestBuild_StyleDirectives(t *testing.T) {
	tests := []struct {
		style    core.WritingStyle
		contains string
	}{
		{core.StyleFormal, "avoid contractions"},
		{core.StyleConcise, "400-600 words"},
		{core.StyleAge0To10, "young children"},
		{core.StyleAcademic, "theoretical frameworks"},
		{core.WritingStyle("mystery"), "classic wiki page"},
	}

	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			p := Build(core.SearchRequest{Topic: "Rome", Language: "en", Style: tt.style})
			if !strings.Contains(p, tt.contains) {
				t.Errorf("prompt for %q should contain %q", tt.style, tt.contains)
			}
		})
	}
}

func TestBuild_ContextTitleScopesArticle(t *testing.T) {
	req := core.SearchRequest{Topic: "Jupiter", Language: "en", Style: core.StyleNormal, ContextTitle: "Solar System"}
	p := Build(req)

	if !strings.Contains(p, `"Solar System"`) {
		t.Error("prompt should name the source article")
	}
	if !strings.Contains(p, `how "Jupiter" relates to "Solar System"`) {
		t.Error("prompt should scope the article to the relation")
	}
}

func TestLookupDefault(t *testing.T) {
	if Lookup("unknown") != Lookup(core.StyleNormal) {
		t.Error("unknown styles should map to the default profile")
	}
	for _, s := range Styles() {
		p := Lookup(s)
		if p.MinWords <= 0 || p.MaxWords < p.MinWords || p.MinSection <= 0 || p.MaxSection < p.MinSection {
			t.Errorf("profile for %q is inconsistent: %+v", s, p)
		}
	}
}

func TestLanguageName(t *testing.T) {
	tests := map[string]string{
		"en": "English",
		"ja": "Japanese",
		"KO": "Korean",
		"xx": "English",
		"":   "English",
	}
	for code, expected := range tests {
		if got := LanguageName(code); got != expected {
			t.Errorf("LanguageName(%q) = %q, expected %q", code, got, expected)
		}
	}
	if len(Languages()) != 10 {
		t.Errorf("Languages() = %d entries, expected 10", len(Languages()))
	}
}
