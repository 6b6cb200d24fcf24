package visual

import (
	"context"
	"strings"

	"aipedia/internal/llm"
	"aipedia/internal/logger"
)

// Suggestion strategies
const (
	StrategyV1 = "v1"
	StrategyV2 = "v2"
)

const suggestV1SystemPrompt = "You are an AI assistant specialized in suggesting image search terms. Your task is to analyze the user's query and provide a suggested search term that would yield relevant image results. Respond with ONLY the suggested term."

const suggestV2SystemPrompt = `You are an AI assistant specialized in suggesting image search terms.
Analyze the user's query and provide:
1. A primary image search term in English that will produce relevant images
2. Two alternative search terms

If the query is not in English, translate it to English for the primary term.
Reply with ONLY the terms in this format:
PRIMARY_TERM|ALTERNATIVE_1|ALTERNATIVE_2

EXAMPLES:
For "physique quantique" -> "quantum physics|quantum mechanics|theoretical physics"
For "Evangelion" -> "Neon Genesis Evangelion anime|Eva Unit 01|Shinji and Asuka"
For "star trek" -> "Star Trek Enterprise|Captain Kirk|Star Trek characters"

Focus on the actual meaning of the query, not literal translations of ambiguous words.
"physique quantique" means quantum physics, not muscular physique.`

// Suggestion is a primary image search term plus ordered alternates.
type Suggestion struct {
	Primary    string
	Alternates []string
}

// Terms lists the primary term followed by the alternates.
func (s Suggestion) Terms() []string {
	return append([]string{s.Primary}, s.Alternates...)
}

// SuggestV1 asks for a single search term. Any failure falls back to the topic.
func SuggestV1(ctx context.Context, completer llm.Completer, topic string) Suggestion {
	text, err := llm.GenerateText(ctx, completer, topic, llm.TextGenerationOptions{
		SystemPrompt: suggestV1SystemPrompt,
		Temperature:  0.7,
		MaxTokens:    100,
	})
	if err != nil {
		logger.Warn("Image term suggestion failed, using topic", "topic", topic, "error", err)
		return Suggestion{Primary: topic}
	}
	return Suggestion{Primary: text}
}

// SuggestV2 asks for an English primary term and up to two alternates.
func SuggestV2(ctx context.Context, completer llm.Completer, topic string) Suggestion {
	text, err := llm.GenerateText(ctx, completer, topic, llm.TextGenerationOptions{
		SystemPrompt: suggestV2SystemPrompt,
		Temperature:  0.3,
		MaxTokens:    150,
	})
	if err != nil {
		logger.Warn("Image term suggestion failed, using topic", "topic", topic, "error", err)
		return Suggestion{Primary: topic}
	}
	return ParseSuggestion(text, topic)
}

// ParseSuggestion splits a PRIMARY|ALT1|ALT2 reply. Surrounding quotes are
// dropped; an empty primary falls back to the topic.
func ParseSuggestion(reply, topic string) Suggestion {
	parts := strings.Split(strings.Trim(strings.TrimSpace(reply), `"`), "|")
	s := Suggestion{Primary: strings.Trim(strings.TrimSpace(parts[0]), `"`)}
	for _, alt := range parts[1:] {
		alt = strings.Trim(strings.TrimSpace(alt), `"`)
		if alt != "" && len(s.Alternates) < 2 {
			s.Alternates = append(s.Alternates, alt)
		}
	}
	if s.Primary == "" {
		s.Primary = topic
	}
	return s
}

// Suggest dispatches to the selected strategy; unknown strategies use v2.
func Suggest(ctx context.Context, completer llm.Completer, strategy, topic string) Suggestion {
	if strings.EqualFold(strategy, StrategyV1) {
		return SuggestV1(ctx, completer, topic)
	}
	return SuggestV2(ctx, completer, topic)
}
