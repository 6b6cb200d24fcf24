package render

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"aipedia/internal/core"
)

// contentHTML converts section markdown to HTML. Raw HTML from the model is dropped.
func contentHTML(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	mdParser := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return string(markdown.ToHTML([]byte(content), mdParser, renderer))
}

// SectionHTML renders section content with every bold term and link turned
// into a wiki-link anchor carrying its search term in data-term.
func SectionHTML(content string) (string, error) {
	rendered := contentHTML(content)
	if rendered == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return "", fmt.Errorf("failed to parse section html: %w", err)
	}

	doc.Find("strong, a").Each(func(_ int, s *goquery.Selection) {
		term := strings.TrimSpace(s.Text())
		if term == "" {
			return
		}
		s.AddClass("wiki-link")
		s.SetAttr("data-term", term)
		if goquery.NodeName(s) == "a" {
			s.SetAttr("href", "?q="+url.QueryEscape(term))
			s.RemoveAttr("target")
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize section html: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ExtractWikiLinks returns the distinct wiki-link terms of section content in
// order of first appearance. Terms are matched case-insensitively.
func ExtractWikiLinks(content string) []core.WikiLink {
	links := []core.WikiLink{}
	rendered := contentHTML(content)
	if rendered == "" {
		return links
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return links
	}

	seen := make(map[string]bool)
	doc.Find("strong, a").Each(func(_ int, s *goquery.Selection) {
		term := strings.Join(strings.Fields(s.Text()), " ")
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			return
		}
		seen[key] = true
		links = append(links, core.WikiLink{DisplayText: term})
	})
	return links
}

// ArticleWikiLinks collects the wiki links of every section, deduplicated.
func ArticleWikiLinks(article core.Article) []core.WikiLink {
	var all []core.WikiLink
	seen := make(map[string]bool)
	for _, s := range article.Sections {
		for _, l := range ExtractWikiLinks(s.Content) {
			key := strings.ToLower(l.DisplayText)
			if !seen[key] {
				seen[key] = true
				all = append(all, l)
			}
		}
	}
	return all
}

type htmlSection struct {
	Anchor  string
	Heading string
	Body    template.HTML
}

type htmlPage struct {
	Article  core.Article
	Sections []htmlSection
	Metrics  string
}

var pageTemplate = template.Must(template.New("article").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Article.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; color: #202122; }
h1 { border-bottom: 1px solid #a2a9b1; font-weight: normal; }
.summary { font-style: italic; }
figure { margin: 1rem 0; }
figure img { max-width: 100%; }
figcaption { font-size: 0.85rem; color: #54595d; }
.toc { background: #f8f9fa; border: 1px solid #a2a9b1; display: inline-block; padding: 0.5rem 1.5rem; }
.wiki-link { color: #3366cc; text-decoration: none; }
.metrics { font-size: 0.8rem; color: #72777d; }
</style>
</head>
<body>
<article>
<h1>{{.Article.Title}}</h1>
{{with .Article.Summary}}<p class="summary">{{.}}</p>{{end}}
{{with .Article.Image}}<figure>
<img src="{{.URL}}" alt="{{$.Article.Title}}">
{{if .CreditLabel}}<figcaption>{{if .SourceAttributionURL}}<a href="{{.SourceAttributionURL}}">{{.CreditLabel}}</a>{{else}}{{.CreditLabel}}{{end}}</figcaption>{{end}}
</figure>{{end}}
{{if gt (len .Sections) 1}}<nav class="toc">
<h2>Contents</h2>
<ol>
{{range .Sections}}<li><a href="#{{.Anchor}}">{{.Heading}}</a></li>
{{end}}</ol>
</nav>{{end}}
{{range .Sections}}<section id="{{.Anchor}}">
<h2>{{.Heading}}</h2>
{{.Body}}
</section>
{{end}}
{{with .Article.References}}<section id="references">
<h2>References</h2>
<ol>
{{range .}}<li>{{.}}</li>
{{end}}</ol>
</section>{{end}}
<p class="metrics">{{.Metrics}}</p>
</article>
</body>
</html>
`))

// HTML renders an article as a standalone page with a table of contents,
// the image credit and wiki-link anchors.
func HTML(article core.Article) (string, error) {
	page := htmlPage{Article: article, Metrics: metricsLine(article)}
	for i, s := range article.Sections {
		body, err := SectionHTML(s.Content)
		if err != nil {
			return "", err
		}
		page.Sections = append(page.Sections, htmlSection{
			Anchor:  sectionAnchor(i),
			Heading: s.Heading,
			Body:    template.HTML(body),
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("failed to render article html: %w", err)
	}
	return buf.String(), nil
}
