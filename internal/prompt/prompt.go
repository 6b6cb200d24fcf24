// Package prompt builds the article generation prompt sent to the chat model.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"aipedia/internal/core"
)

// StyleProfile is the fixed directive set a writing style maps to.
type StyleProfile struct {
	Tone       string
	MinWords   int
	MaxWords   int
	MinSection int
	MaxSection int
}

var defaultProfile = StyleProfile{
	Tone:       "Write in a balanced, informative style suitable for a general audience, similar to a classic wiki page. Use a neutral tone appropriate for an encyclopedia.",
	MinWords:   1000,
	MaxWords:   1500,
	MinSection: 5,
	MaxSection: 7,
}

var styleTable = map[core.WritingStyle]StyleProfile{
	core.StyleNormal:   defaultProfile,
	core.StyleBalanced: defaultProfile,
	core.StyleFormal: {
		Tone:     "Write in a formal style suitable for academic or professional presentations. Use proper terminology, avoid contractions, and maintain a professional tone throughout.",
		MinWords: 1200, MaxWords: 1600, MinSection: 6, MaxSection: 8,
	},
	core.StyleAccessible: {
		Tone:     "Write in an accessible style that can be easily understood by kids and teenagers. Use simpler vocabulary, shorter sentences, and clear explanations of complex concepts.",
		MinWords: 700, MaxWords: 1000, MinSection: 4, MaxSection: 5,
	},
	core.StyleExplanatory: {
		Tone:     "Write in a detailed explanatory style that goes deeper into the subject. Include more background information, context, and thorough explanations of concepts.",
		MinWords: 1500, MaxWords: 2000, MinSection: 7, MaxSection: 9,
	},
	core.StyleConcise: {
		Tone:     "Write in a concise style that delivers the essential information efficiently. Focus on key points and minimize unnecessary details.",
		MinWords: 400, MaxWords: 600, MinSection: 3, MaxSection: 4,
	},
	core.StyleAcademic: {
		Tone:     "Use an academic tone with formal language, citing relevant research and theoretical frameworks. Include detailed analysis and proper terminology.",
		MinWords: 1500, MaxWords: 2000, MinSection: 6, MaxSection: 8,
	},
	core.StyleSimple: {
		Tone:     "Use simple, easy-to-understand language. Avoid jargon and complex sentences. Explain concepts clearly as if for beginners.",
		MinWords: 600, MaxWords: 900, MinSection: 4, MaxSection: 5,
	},
	core.StyleCreative: {
		Tone:     "Use a creative, engaging tone with descriptive language and interesting narratives while maintaining factual accuracy.",
		MinWords: 1000, MaxWords: 1400, MinSection: 5, MaxSection: 6,
	},
	core.StyleProfessional: {
		Tone:     "Use a professional, business-appropriate tone with clear, concise language. Focus on practical information and industry relevance.",
		MinWords: 900, MaxWords: 1200, MinSection: 4, MaxSection: 6,
	},
	core.StyleConversational: {
		Tone:     "Use a conversational, friendly tone as if explaining to a friend. Include relatable examples while keeping the content informative.",
		MinWords: 800, MaxWords: 1200, MinSection: 4, MaxSection: 6,
	},
	core.StyleAge0To10: {
		Tone:     "Write for young children aged 0-10. Use very simple vocabulary, short sentences, and explain concepts in the most basic terms. Use analogies children can relate to, keep paragraphs to 2-3 sentences, and use a friendly, encouraging tone.",
		MinWords: 300, MaxWords: 500, MinSection: 3, MaxSection: 4,
	},
	core.StyleAge11To16: {
		Tone:     "Write for pre-teens and teenagers aged 11-16. Use moderately simple vocabulary and relatable examples. Introduce technical terms but always explain them, in an engaging, slightly conversational tone.",
		MinWords: 600, MaxWords: 900, MinSection: 4, MaxSection: 5,
	},
	core.StyleAge17To25: {
		Tone:     "Write for young adults aged 17-25. Mix casual and formal language, explain technical terminology when needed, and include contemporary examples in a conversational yet informative tone.",
		MinWords: 900, MaxWords: 1300, MinSection: 5, MaxSection: 6,
	},
	core.StyleAge25Plus: {
		Tone:     "Write for adults aged 25 and older. Use sophisticated vocabulary and proper terminology, provide nuanced analysis with historical perspective, and assume some background knowledge.",
		MinWords: 1200, MaxWords: 1600, MinSection: 6, MaxSection: 7,
	},
}

// Lookup returns the profile for a style; unknown styles get the default tone.
func Lookup(style core.WritingStyle) StyleProfile {
	if p, ok := styleTable[style]; ok {
		return p
	}
	return defaultProfile
}

// Styles lists every recognized style tag in a stable order.
func Styles() []core.WritingStyle {
	styles := make([]core.WritingStyle, 0, len(styleTable))
	for s := range styleTable {
		styles = append(styles, s)
	}
	sort.Slice(styles, func(i, j int) bool { return styles[i] < styles[j] })
	return styles
}

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
}

// LanguageName maps a language code to its English name, defaulting to English.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return "English"
}

// Languages returns the supported language codes.
func Languages() []string {
	codes := make([]string, 0, len(languageNames))
	for c := range languageNames {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Build creates the article prompt for a request. It never fails.
func Build(req core.SearchRequest) string {
	profile := Lookup(req.Style)
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("Create a comprehensive Wikipedia-style article about %q in %s.\n\n", req.Topic, LanguageName(req.Language)))
	prompt.WriteString(profile.Tone)
	prompt.WriteString("\n\n")

	if req.ContextTitle != "" {
		prompt.WriteString(fmt.Sprintf("This search was opened from the article about %q. ", req.ContextTitle))
		prompt.WriteString(fmt.Sprintf("Do not write a generic article on %q: focus specifically on how %q relates to %q, ", req.Topic, req.Topic, req.ContextTitle))
		prompt.WriteString("and explain that connection throughout the article.\n\n")
	}

	prompt.WriteString("Structure:\n")
	prompt.WriteString("1. A brief summary of the topic (2-3 sentences)\n")
	prompt.WriteString(fmt.Sprintf("2. Between %d and %d sections, each with a heading and substantial content\n", profile.MinSection, profile.MaxSection))
	prompt.WriteString("3. Relevant facts, history and context\n")
	prompt.WriteString("4. 5-10 references to reliable sources\n\n")

	prompt.WriteString("Formatting rules:\n")
	prompt.WriteString("- The title, the summary and every section heading must be plain text: no #, no **, no links, no HTML.\n")
	prompt.WriteString("- Inside section content only, use **bold** for important terms, concepts and key people, and [text](link) for related concepts. These become clickable wiki links, so use them generously.\n")
	prompt.WriteString("- Use *italic* for titles of works.\n")
	prompt.WriteString(fmt.Sprintf("- Aim for approximately %d-%d words.\n\n", profile.MinWords, profile.MaxWords))

	prompt.WriteString("Respond with a single JSON object and nothing else, using this structure:\n")
	prompt.WriteString(`{
  "title": "The main title (plain text)",
  "summary": "A brief summary (plain text)",
  "sections": [
    {"heading": "Section heading (plain text)", "content": "Section content with **formatting** and [links](concepts)"}
  ],
  "references": ["Reference 1", "Reference 2"]
}`)
	prompt.WriteString("\n")

	return prompt.String()
}
