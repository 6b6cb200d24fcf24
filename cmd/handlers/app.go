package handlers

import (
	"fmt"

	"aipedia/internal/cache"
	"aipedia/internal/config"
	"aipedia/internal/core"
	"aipedia/internal/logger"
	"aipedia/internal/orchestrator"
	"aipedia/internal/proxyclient"
	"aipedia/internal/ratelimit"
	"aipedia/internal/services"
	"aipedia/internal/store"
	"aipedia/internal/tts"
	"aipedia/internal/visual"
)

// app is the client side wired from configuration: one proxy client shared by
// generation, image lookup and narration.
type app struct {
	cfg      *config.Config
	store    *store.Store
	client   *proxyclient.Client
	cache    *cache.Cache
	engine   *orchestrator.Orchestrator
	narrator *tts.Narrator
}

// defaultPreferences are the configured toggles before stored overrides.
func defaultPreferences(cfg *config.Config) core.Preferences {
	return core.Preferences{
		CachingEnabled:     cfg.Cache.Enabled,
		ImageSuggestion:    cfg.Image.AISuggestion,
		SuggestionStrategy: cfg.Image.Strategy,
		TTSProvider:        cfg.TTS.Provider,
	}
}

// openStore opens the sqlite store in the configured data directory.
func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.NewStore(cfg.App.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// newNarrator builds a narrator speaking through the proxy.
func newNarrator(cfg *config.Config, backend tts.SpeechBackend) *tts.Narrator {
	return tts.NewNarrator(backend, tts.Settings{
		APIKey:          cfg.TTS.APIKey,
		VoiceID:         cfg.TTS.VoiceID,
		ModelID:         cfg.TTS.ModelID,
		Stability:       cfg.TTS.Stability,
		SimilarityBoost: cfg.TTS.SimilarityBoost,
		MaxChars:        cfg.TTS.MaxChars,
		OutputDir:       cfg.TTS.OutputDirectory,
	})
}

// newClientLimiter keeps the search quota in the store unless another backend
// is configured, so it holds across runs.
func newClientLimiter(cfg config.RateLimit, st *store.Store) (ratelimit.Limiter, error) {
	if cfg.Enabled && (cfg.Backend == "" || cfg.Backend == "store") {
		return ratelimit.NewPersistent(st, ratelimit.Quota{PerMinute: cfg.PerMinute, PerDay: cfg.PerDay}), nil
	}
	return ratelimit.New(cfg, "aipedia:client")
}

// newApp wires the pipeline to sink. The caller closes the app.
func newApp(cfg *config.Config, sink services.RenderSink) (*app, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	prefs, err := st.GetPreferences(defaultPreferences(cfg))
	if err != nil {
		logger.Warn("Failed to load preferences, using defaults", "error", err)
	}

	limiter, err := newClientLimiter(cfg.ClientRateLimit, st)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	client := proxyclient.New(cfg.Proxy.BaseURL, cfg.Proxy.TimeoutDuration())
	articles := cache.New(prefs.CachingEnabled)

	engine := orchestrator.New(orchestrator.Dependencies{
		Completer: client,
		Images:    visual.NewResolver(client, client, articles),
		Cache:     articles,
		History:   st,
		Limiter:   limiter,
		Sink:      sink,
	}, orchestrator.Settings{
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		SystemPrompt: cfg.LLM.SystemPrompt,
		Timeout:      cfg.LLM.GenerationTimeoutDuration(),
		MaxHistory:   cfg.History.MaxEntries,
	}, prefs)

	return &app{
		cfg:      cfg,
		store:    st,
		client:   client,
		cache:    articles,
		engine:   engine,
		narrator: newNarrator(cfg, client),
	}, nil
}

// Close releases the store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Error("Failed to close store", err)
	}
}
