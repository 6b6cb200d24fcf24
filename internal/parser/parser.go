package parser

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"aipedia/internal/core"
)

// FallbackTitle is used when no title can be recovered from an unstructured reply.
const FallbackTitle = "Generated Article"

// FallbackSummary accompanies a recovered article.
const FallbackSummary = "An article was generated but could not be properly formatted."

// FallbackSectionHeading names the single section holding unstructured text.
const FallbackSectionHeading = "Content"

var (
	codeBlockRegex = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

	atxTitleRegex    = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	setextTitleRegex = regexp.MustCompile(`(?m)^(.+)\n={3,}$`)
)

// Markdown stripping rules, applied in order. Fenced code goes before inline
// code and images before links so that the longer forms win.
var stripRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?m)^#+\s+`), ""},
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile("```([\\s\\S]*?)```"), "$1"},
	{regexp.MustCompile("`(.*?)`"), "$1"},
	{regexp.MustCompile(`!\[(.*?)\]\(.*?\)`), "$1"},
	{regexp.MustCompile(`\[(.*?)\]\(.*?\)`), "$1"},
	{regexp.MustCompile(`<[^>]*>`), ""},
}

var errInvalidShape = errors.New("article JSON is missing title, summary or sections")

// Parser turns raw chat completions into articles
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

type rawArticle struct {
	Title      *string         `json:"title"`
	Summary    *string         `json:"summary"`
	Sections   json.RawMessage `json:"sections"`
	References json.RawMessage `json:"references"`
}

// ParseArticle converts a completion into an Article. It never fails: replies
// that are not well-formed article JSON become a single-section fallback.
func (p *Parser) ParseArticle(raw string) core.Article {
	article, err := p.parseStructured(raw)
	if err != nil {
		return p.fallback(raw)
	}
	return article
}

// ExtractJSON returns the JSON candidate within a reply: the interior of the
// first fenced block, or the span from the first '{' to the last '}'.
func ExtractJSON(raw string) (string, bool) {
	if m := codeBlockRegex.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

func (p *Parser) parseStructured(raw string) (core.Article, error) {
	candidate, ok := ExtractJSON(raw)
	if !ok {
		return core.Article{}, errInvalidShape
	}

	var ra rawArticle
	if err := json.Unmarshal([]byte(candidate), &ra); err != nil {
		return core.Article{}, err
	}
	if ra.Title == nil || ra.Summary == nil || *ra.Title == "" || *ra.Summary == "" {
		return core.Article{}, errInvalidShape
	}

	trimmed := strings.TrimSpace(string(ra.Sections))
	if !strings.HasPrefix(trimmed, "[") {
		return core.Article{}, errInvalidShape
	}
	var sections []core.Section
	if err := json.Unmarshal(ra.Sections, &sections); err != nil {
		return core.Article{}, err
	}
	if len(sections) == 0 {
		return core.Article{}, errInvalidShape
	}
	for i := range sections {
		sections[i].Heading = StripMarkdown(sections[i].Heading)
	}

	references := []string{}
	if len(ra.References) > 0 {
		var refs []string
		if err := json.Unmarshal(ra.References, &refs); err == nil && refs != nil {
			references = refs
		}
	}

	return core.Article{
		Title:      StripMarkdown(*ra.Title),
		Summary:    StripMarkdown(*ra.Summary),
		Sections:   sections,
		References: references,
	}, nil
}

func (p *Parser) fallback(raw string) core.Article {
	title := FallbackTitle
	content := raw

	if loc := atxTitleRegex.FindStringSubmatchIndex(raw); loc != nil {
		title = StripMarkdown(raw[loc[2]:loc[3]])
		content = strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:])
	} else if loc := setextTitleRegex.FindStringSubmatchIndex(raw); loc != nil {
		title = StripMarkdown(raw[loc[2]:loc[3]])
		content = strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:])
	}
	if title == "" {
		title = FallbackTitle
	}

	return core.Article{
		Title:      title,
		Summary:    FallbackSummary,
		Sections:   []core.Section{{Heading: FallbackSectionHeading, Content: content}},
		References: []string{},
	}
}

// StripMarkdown removes heading markers, emphasis, code, links, images and
// HTML tags, leaving plain text.
func StripMarkdown(text string) string {
	for _, rule := range stripRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	return strings.TrimSpace(text)
}

// ParseArticle is a convenience wrapper around Parser.ParseArticle.
func ParseArticle(raw string) core.Article {
	return NewParser().ParseArticle(raw)
}
