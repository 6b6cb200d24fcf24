package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"aipedia/internal/core"
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// ExportFileName derives a file name with the given extension from an article title.
func ExportFileName(title, ext string) string {
	name := strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if name == "" {
		name = "article"
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// Markdown renders an article as a standalone markdown document. Section
// content keeps the model's markdown as-is.
func Markdown(article core.Article) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# %s\n\n", article.Title))
	if article.Summary != "" {
		b.WriteString(fmt.Sprintf("*%s*\n\n", article.Summary))
	}

	if img := article.Image; img != nil {
		b.WriteString(fmt.Sprintf("![%s](%s)\n\n", article.Title, img.URL))
		if img.CreditLabel != "" {
			if img.SourceAttributionURL != "" {
				b.WriteString(fmt.Sprintf("*[%s](%s)*\n\n", img.CreditLabel, img.SourceAttributionURL))
			} else {
				b.WriteString(fmt.Sprintf("*%s*\n\n", img.CreditLabel))
			}
		}
	}

	if len(article.Sections) > 1 {
		b.WriteString("## Contents\n\n")
		for i, s := range article.Sections {
			b.WriteString(fmt.Sprintf("%d. [%s](#%s)\n", i+1, s.Heading, sectionAnchor(i)))
		}
		b.WriteString("\n")
	}

	for i, s := range article.Sections {
		b.WriteString(fmt.Sprintf("## %s {#%s}\n\n", s.Heading, sectionAnchor(i)))
		b.WriteString(strings.TrimSpace(s.Content))
		b.WriteString("\n\n")
	}

	if len(article.References) > 0 {
		b.WriteString("## References\n\n")
		for i, ref := range article.References {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, ref))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString(metricsLine(article))
	b.WriteString("\n")

	return b.String()
}

func sectionAnchor(i int) string {
	return fmt.Sprintf("section-%d", i+1)
}

// metricsLine summarizes how the article was produced.
func metricsLine(article core.Article) string {
	m := article.Metrics
	var parts []string
	if m.FromCache {
		parts = append(parts, "Loaded from cache")
	} else {
		parts = append(parts, fmt.Sprintf("Generated in %.2fs", m.GenerationSeconds))
	}
	if m.TokenCountEstimate > 0 {
		parts = append(parts, fmt.Sprintf("~%d tokens", m.TokenCountEstimate))
	}
	if m.EstimatedCostUSD != "" {
		parts = append(parts, "$"+m.EstimatedCostUSD)
	}
	if article.WritingStyle != "" {
		parts = append(parts, "style: "+string(article.WritingStyle))
	}
	return strings.Join(parts, " · ")
}

// WriteFile writes content into dir/filename, creating dir if needed.
func WriteFile(content, dir, filename string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write article file %s: %w", filePath, err)
	}
	return filePath, nil
}

// Export writes the article to path, as HTML when the extension is .html or
// .htm and as markdown otherwise.
func Export(article core.Article, path string) (string, error) {
	var content string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		page, err := HTML(article)
		if err != nil {
			return "", err
		}
		content = page
	default:
		content = Markdown(article)
	}
	return WriteFile(content, filepath.Dir(path), filepath.Base(path))
}
