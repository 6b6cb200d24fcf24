package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"aipedia/internal/config"
	"aipedia/internal/llm"
	"aipedia/internal/logger"
	"aipedia/internal/ratelimit"
	"aipedia/internal/tts"
	"aipedia/internal/visual"
)

// PhotoProvider finds photos and reports their use.
type PhotoProvider interface {
	RandomPhoto(ctx context.Context, query string) (*visual.Photo, error)
	TrackDownload(ctx context.Context, downloadLocation string) error
}

// SpeechProvider is the keyed text-to-speech service.
type SpeechProvider interface {
	TextToSpeech(ctx context.Context, voiceID, apiKey string, body []byte) ([]byte, error)
	Voices(ctx context.Context, apiKey string) ([]byte, error)
}

// FreeSpeechProvider is the keyless text-to-speech service.
type FreeSpeechProvider interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Providers are the upstream services behind the proxy. A nil provider makes
// its routes answer 503.
type Providers struct {
	Chat       llm.Completer
	Photos     PhotoProvider
	Speech     SpeechProvider
	FreeSpeech FreeSpeechProvider
	Limiter    ratelimit.Limiter
}

// NewProviders builds the upstream clients from configuration. A provider
// without credentials is left out with a warning instead of failing startup.
func NewProviders(ctx context.Context, cfg config.Server) (Providers, error) {
	var p Providers
	up := cfg.Upstream

	switch up.LLMProvider {
	case "", "deepseek":
		client, err := llm.NewDeepSeekClient(up.DeepSeek.APIKey, up.DeepSeek.BaseURL, &http.Client{})
		if err != nil {
			logger.Warn("Chat route disabled", "error", err)
		} else {
			p.Chat = client
		}
	case "gemini":
		client, err := llm.NewGeminiClient(ctx, up.Gemini.APIKey, up.Gemini.Model)
		if err != nil {
			logger.Warn("Chat route disabled", "error", err)
		} else {
			p.Chat = client
		}
	default:
		return p, fmt.Errorf("unknown llm provider %q", up.LLMProvider)
	}

	if up.Unsplash.AccessKey != "" {
		p.Photos = visual.NewUnsplashClient(up.Unsplash.AccessKey, up.Unsplash.BaseURL)
	} else {
		logger.Warn("Image routes disabled: no Unsplash access key")
	}

	// Callers may bring their own ElevenLabs key, so the client exists even without one.
	p.Speech = tts.NewElevenLabsClient(up.ElevenLabs.APIKey, up.ElevenLabs.BaseURL)
	p.FreeSpeech = tts.NewFreeClient(up.FreeTTS.BaseURL)

	limiter, err := ratelimit.New(cfg.RateLimit, "aipedia:proxy")
	if err != nil {
		return p, fmt.Errorf("failed to create rate limiter: %w", err)
	}
	if mem, ok := limiter.(*ratelimit.Memory); ok {
		mem.StartCleanup(ctx, 5*time.Minute, time.Hour)
	}
	p.Limiter = limiter

	return p, nil
}
