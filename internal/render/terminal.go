package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"aipedia/internal/core"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	summaryStyle  = lipgloss.NewStyle().Italic(true)
	headingStyle  = lipgloss.NewStyle().Bold(true)
	creditStyle   = lipgloss.NewStyle().Faint(true)
	progressStyle = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	linkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

// TerminalOptions configure a TerminalSink.
type TerminalOptions struct {
	Width        int    // Word wrap for section content, default 80
	Style        string // glamour style name; empty picks one from the terminal
	HideProgress bool
}

// TerminalSink prints articles, errors and progress lines to a writer.
type TerminalSink struct {
	mu   sync.Mutex
	out  io.Writer
	md   *glamour.TermRenderer
	opts TerminalOptions
}

// NewTerminalSink creates a sink writing to out. When the markdown renderer
// cannot be built, section content is printed as plain text.
func NewTerminalSink(out io.Writer, opts TerminalOptions) *TerminalSink {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if opts.Style != "" {
		styleOpt = glamour.WithStandardStyle(opts.Style)
	}
	md, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(opts.Width))
	if err != nil {
		md = nil
	}
	return &TerminalSink{out: out, md: md, opts: opts}
}

func (t *TerminalSink) markdown(content string) string {
	if t.md == nil {
		return content
	}
	rendered, err := t.md.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// Render prints the whole article.
func (t *TerminalSink) Render(article core.Article) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, FormatArticle(article, t.markdown))
}

// FormatArticle lays out an article for the terminal. content renders
// section markdown; nil prints it unchanged.
func FormatArticle(article core.Article, content func(string) string) string {
	if content == nil {
		content = func(s string) string { return s }
	}

	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render(article.Title) + "\n")
	if article.Summary != "" {
		b.WriteString(summaryStyle.Render(article.Summary) + "\n")
	}
	if img := article.Image; img != nil {
		credit := img.CreditLabel
		if img.SourceAttributionURL != "" {
			credit += " (" + img.SourceAttributionURL + ")"
		}
		b.WriteString(creditStyle.Render("Image: "+img.URL) + "\n")
		if credit != "" {
			b.WriteString(creditStyle.Render(credit) + "\n")
		}
	}

	for _, s := range article.Sections {
		b.WriteString("\n" + headingStyle.Render(s.Heading) + "\n")
		b.WriteString(content(s.Content) + "\n")
	}

	if links := ArticleWikiLinks(article); len(links) > 0 {
		terms := make([]string, len(links))
		for i, l := range links {
			terms[i] = l.DisplayText
		}
		b.WriteString("\n" + headingStyle.Render("See also") + "\n")
		b.WriteString(linkStyle.Render(strings.Join(terms, ", ")) + "\n")
	}

	if len(article.References) > 0 {
		b.WriteString("\n" + headingStyle.Render("References") + "\n")
		for i, ref := range article.References {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, ref))
		}
	}

	b.WriteString("\n" + creditStyle.Render(metricsLine(article)) + "\n")
	return b.String()
}

// RenderError prints a short error line.
func (t *TerminalSink) RenderError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, errorStyle.Render("Error: "+message))
}

// ShowProgress prints one progress line.
func (t *TerminalSink) ShowProgress(step core.ProgressStep) {
	if t.opts.HideProgress {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, progressStyle.Render(FormatProgress(step)))
}

// FormatProgress renders a step as "label (1.23s)" or "label...".
func FormatProgress(step core.ProgressStep) string {
	if step.Timed {
		return fmt.Sprintf("  %s (%.2fs)", step.Label, step.Elapsed.Seconds())
	}
	return fmt.Sprintf("  %s...", step.Label)
}
