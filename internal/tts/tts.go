package tts

import (
	"fmt"
	"strings"
)

// Provider selects a narration backend
type Provider string

const (
	// ProviderPremium is ElevenLabs, which needs an API key
	ProviderPremium Provider = "premium"
	// ProviderFree is the keyless translate speech endpoint
	ProviderFree Provider = "free"
)

// Defaults for ElevenLabs narration
const (
	DefaultVoiceID         = "21m00Tcm4TlvDq8ikWAM"
	DefaultModelID         = "eleven_multilingual_v2"
	DefaultStability       = 0.5
	DefaultSimilarityBoost = 0.5
	DefaultMaxChars        = 5000
)

// ParseProvider normalizes a provider name.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderPremium, "elevenlabs":
		return ProviderPremium, nil
	case ProviderFree, "", "google":
		return ProviderFree, nil
	default:
		return "", fmt.Errorf("invalid TTS provider: %s (available: premium, free)", s)
	}
}

// TTSVoice represents voice configuration
type TTSVoice struct {
	ID     string
	Name   string
	Gender string
	Accent string
}

// GetDefaultVoices returns the stock ElevenLabs voices
func GetDefaultVoices() []TTSVoice {
	return []TTSVoice{
		{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Gender: "Female", Accent: "American"},
		{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi", Gender: "Female", Accent: "American"},
		{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Gender: "Female", Accent: "American"},
		{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Gender: "Male", Accent: "American"},
		{ID: "VR6AewLTigWG4xSOukaG", Name: "Arnold", Gender: "Male", Accent: "American"},
	}
}

// ElevenLabsVoiceResponse represents ElevenLabs voice API response
type ElevenLabsVoiceResponse struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
		Name    string `json:"name"`
	} `json:"voices"`
}

// ElevenLabsTTSRequest represents ElevenLabs TTS request
type ElevenLabsTTSRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings ElevenLabsVoiceSettings `json:"voice_settings"`
}

// ElevenLabsVoiceSettings represents voice settings for ElevenLabs
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// FreeTTSRequest is the body of the keyless speech endpoint
type FreeTTSRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

var languageVoices = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-PT",
	"ru": "ru-RU",
	"zh": "zh-CN",
	"ja": "ja-JP",
	"ko": "ko-KR",
}

// LanguageVoice maps an article language to the free provider's voice code.
func LanguageVoice(language string) string {
	if v, ok := languageVoices[strings.ToLower(language)]; ok {
		return v
	}
	return "en-US"
}

// EstimateAudioLength estimates audio length in minutes based on text
func EstimateAudioLength(text string, speed float64) float64 {
	if speed <= 0 {
		speed = 1.0
	}
	wordsPerMinute := 155.0 * speed
	words := len(strings.Fields(text))
	return float64(words) / wordsPerMinute
}
