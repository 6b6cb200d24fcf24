package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"aipedia/internal/core"
)

// SpeechBackend reaches the proxy's speech routes.
type SpeechBackend interface {
	Speech(ctx context.Context, voiceID, apiKey string, req ElevenLabsTTSRequest) ([]byte, error)
	FreeSpeech(ctx context.Context, req FreeTTSRequest) ([]byte, error)
}

// Settings configure narration
type Settings struct {
	APIKey          string
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
	MaxChars        int
	OutputDir       string
}

// Audio is a playable narration
type Audio struct {
	Data        []byte
	ContentType string
	Provider    Provider
}

// Narrator reads an article's title and summary aloud on demand.
type Narrator struct {
	backend  SpeechBackend
	settings Settings
}

// NewNarrator creates a narrator, filling unset settings with defaults.
func NewNarrator(backend SpeechBackend, settings Settings) *Narrator {
	if settings.VoiceID == "" {
		settings.VoiceID = DefaultVoiceID
	}
	if settings.ModelID == "" {
		settings.ModelID = DefaultModelID
	}
	if settings.Stability == 0 {
		settings.Stability = DefaultStability
	}
	if settings.SimilarityBoost == 0 {
		settings.SimilarityBoost = DefaultSimilarityBoost
	}
	if settings.MaxChars <= 0 {
		settings.MaxChars = DefaultMaxChars
	}
	if settings.OutputDir == "" {
		settings.OutputDir = "audio"
	}
	return &Narrator{backend: backend, settings: settings}
}

// Select checks that provider can be used. There is no fallback between
// providers: a premium selection without a key is unavailable.
func Select(provider Provider, apiKey string) (Provider, error) {
	switch provider {
	case ProviderPremium:
		if strings.TrimSpace(apiKey) == "" {
			return "", core.ErrUnavailable
		}
		return ProviderPremium, nil
	case ProviderFree:
		return ProviderFree, nil
	default:
		return "", fmt.Errorf("%w: unknown provider %q", core.ErrUnavailable, provider)
	}
}

// Narrate synthesizes the narration text of article with the selected provider.
func (n *Narrator) Narrate(ctx context.Context, article core.Article, language string, provider Provider) (*Audio, error) {
	selected, err := Select(provider, n.settings.APIKey)
	if err != nil {
		return nil, err
	}

	text := article.NarrationText(n.settings.MaxChars)

	var data []byte
	switch selected {
	case ProviderPremium:
		data, err = n.backend.Speech(ctx, n.settings.VoiceID, n.settings.APIKey, ElevenLabsTTSRequest{
			Text:    text,
			ModelID: n.settings.ModelID,
			VoiceSettings: ElevenLabsVoiceSettings{
				Stability:       n.settings.Stability,
				SimilarityBoost: n.settings.SimilarityBoost,
			},
		})
	case ProviderFree:
		data, err = n.backend.FreeSpeech(ctx, FreeTTSRequest{Text: text, Voice: LanguageVoice(language)})
	}
	if err != nil {
		return nil, fmt.Errorf("narration failed: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("narration failed: empty audio")
	}

	return &Audio{Data: data, ContentType: "audio/mpeg", Provider: selected}, nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// AudioFileName derives an .mp3 file name from an article title.
func AudioFileName(title string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if name == "" {
		name = "narration"
	}
	return name + ".mp3"
}

// SaveAudio writes audio into the output directory and returns its path.
func (n *Narrator) SaveAudio(audio *Audio, filename string) (string, error) {
	if err := os.MkdirAll(n.settings.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if !strings.HasSuffix(filename, ".mp3") {
		filename += ".mp3"
	}
	outputPath := filepath.Join(n.settings.OutputDir, filename)
	if err := os.WriteFile(outputPath, audio.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	return outputPath, nil
}
