package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App             App       `mapstructure:"app"`
	Proxy           Proxy     `mapstructure:"proxy"`
	LLM             LLM       `mapstructure:"llm"`
	Image           Image     `mapstructure:"image"`
	Cache           Cache     `mapstructure:"cache"`
	History         History   `mapstructure:"history"`
	TTS             TTS       `mapstructure:"tts"`
	ClientRateLimit RateLimit `mapstructure:"client_rate_limit"`
	Server          Server    `mapstructure:"server"`
	Logging         Logging   `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// Proxy describes how the client reaches the provider proxy
type Proxy struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

// LLM holds article generation settings
type LLM struct {
	Model             string  `mapstructure:"model"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	GenerationTimeout string  `mapstructure:"generation_timeout"`
	SystemPrompt      string  `mapstructure:"system_prompt"`
}

// Image holds photo lookup settings
type Image struct {
	AISuggestion bool   `mapstructure:"ai_suggestion"`
	Strategy     string `mapstructure:"strategy"`
}

// Cache holds the default for the in-session article cache
type Cache struct {
	Enabled bool `mapstructure:"enabled"`
}

// History holds search history settings
type History struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// TTS holds narration configuration
type TTS struct {
	Provider        string  `mapstructure:"provider"`
	VoiceID         string  `mapstructure:"voice_id"`
	ModelID         string  `mapstructure:"model_id"`
	Stability       float64 `mapstructure:"stability"`
	SimilarityBoost float64 `mapstructure:"similarity_boost"`
	APIKey          string  `mapstructure:"api_key"`
	MaxChars        int     `mapstructure:"max_chars"`
	OutputDirectory string  `mapstructure:"output_directory"`
}

// RateLimit holds per-minute and per-day request budgets
type RateLimit struct {
	Enabled   bool   `mapstructure:"enabled"`
	Backend   string `mapstructure:"backend"`
	PerMinute int    `mapstructure:"per_minute"`
	PerDay    int    `mapstructure:"per_day"`
	RedisURL  string `mapstructure:"redis_url"`
}

// Server holds proxy server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxPromptTokens int           `mapstructure:"max_prompt_tokens"`
	MaxQueryLength  int           `mapstructure:"max_query_length"`
	CORS            CORS          `mapstructure:"cors"`
	RateLimit       RateLimit     `mapstructure:"rate_limit"`
	Upstream        Upstream      `mapstructure:"upstream"`
}

// CORS holds cross-origin settings for the proxy
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Upstream holds provider credentials, which never leave the proxy
type Upstream struct {
	LLMProvider string           `mapstructure:"llm_provider"`
	DeepSeek    DeepSeekConfig   `mapstructure:"deepseek"`
	Gemini      GeminiConfig     `mapstructure:"gemini"`
	Unsplash    UnsplashConfig   `mapstructure:"unsplash"`
	ElevenLabs  ElevenLabsConfig `mapstructure:"elevenlabs"`
	FreeTTS     FreeTTSConfig    `mapstructure:"free_tts"`
}

// DeepSeekConfig holds DeepSeek chat completion configuration
type DeepSeekConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// UnsplashConfig holds Unsplash configuration
type UnsplashConfig struct {
	AccessKey string `mapstructure:"access_key"`
	BaseURL   string `mapstructure:"base_url"`
}

// ElevenLabsConfig holds ElevenLabs configuration
type ElevenLabsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// FreeTTSConfig holds the keyless speech endpoint
type FreeTTSConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".aipedia")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", "~/.aipedia")

	// Proxy defaults
	viper.SetDefault("proxy.base_url", "http://localhost:3000/api")
	viper.SetDefault("proxy.timeout", "130s")

	// LLM defaults
	viper.SetDefault("llm.model", "deepseek-chat")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 4000)
	viper.SetDefault("llm.generation_timeout", "120s")
	viper.SetDefault("llm.system_prompt", "You are a helpful assistant that generates informative articles.")

	// Image defaults
	viper.SetDefault("image.ai_suggestion", false)
	viper.SetDefault("image.strategy", "v2")

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("history.max_entries", 10)

	// TTS defaults
	viper.SetDefault("tts.provider", "free")
	viper.SetDefault("tts.voice_id", "21m00Tcm4TlvDq8ikWAM")
	viper.SetDefault("tts.model_id", "eleven_multilingual_v2")
	viper.SetDefault("tts.stability", 0.5)
	viper.SetDefault("tts.similarity_boost", 0.5)
	viper.SetDefault("tts.max_chars", 5000)
	viper.SetDefault("tts.output_directory", "audio")

	// Client-side limiter mirrors the browser budget
	viper.SetDefault("client_rate_limit.enabled", true)
	viper.SetDefault("client_rate_limit.backend", "store")
	viper.SetDefault("client_rate_limit.per_minute", 3)
	viper.SetDefault("client_rate_limit.per_day", 30)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.request_timeout", "110s")
	viper.SetDefault("server.max_prompt_tokens", 4000)
	viper.SetDefault("server.max_query_length", 100)
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.rate_limit.enabled", true)
	viper.SetDefault("server.rate_limit.backend", "memory")
	viper.SetDefault("server.rate_limit.per_minute", 3)
	viper.SetDefault("server.rate_limit.per_day", 300)
	viper.SetDefault("server.upstream.llm_provider", "deepseek")
	viper.SetDefault("server.upstream.deepseek.base_url", "https://api.deepseek.com/v1")
	viper.SetDefault("server.upstream.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("server.upstream.unsplash.base_url", "https://api.unsplash.com")
	viper.SetDefault("server.upstream.elevenlabs.base_url", "https://api.elevenlabs.io/v1")
	viper.SetDefault("server.upstream.free_tts.base_url", "https://translate.google.com/translate_tts")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("proxy.base_url", []string{
		"AIPEDIA_PROXY_URL",
		"AIPEDIA_PROXY_BASE_URL",
	})

	bindEnvKeys("server.upstream.deepseek.api_key", []string{
		"DEEPSEEK_API_KEY",
	})

	bindEnvKeys("server.upstream.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("server.upstream.unsplash.access_key", []string{
		"UNSPLASH_ACCESS_KEY",
		"UNSPLASH_API_KEY",
	})

	// The proxy's own key and the reader's personal key share the same env names
	bindEnvKeys("server.upstream.elevenlabs.api_key", []string{
		"ELEVENLABS_API_KEY",
		"ELEVEN_LABS_API_KEY",
	})
	bindEnvKeys("tts.api_key", []string{
		"AIPEDIA_ELEVENLABS_API_KEY",
		"ELEVENLABS_API_KEY",
		"ELEVEN_LABS_API_KEY",
	})

	bindEnvKeys("server.rate_limit.redis_url", []string{
		"REDIS_URL",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"AIPEDIA_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.TTS.OutputDirectory != "" {
		config.TTS.OutputDirectory = expandPath(config.TTS.OutputDirectory)
	}
	config.Proxy.BaseURL = strings.TrimRight(config.Proxy.BaseURL, "/")
	config.Image.Strategy = strings.ToLower(config.Image.Strategy)
	config.TTS.Provider = strings.ToLower(config.TTS.Provider)

	durations := map[string]string{
		"proxy.timeout":          config.Proxy.Timeout,
		"llm.generation_timeout": config.LLM.GenerationTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures configuration values are usable
func validateConfig(config *Config) error {
	var errors []string

	if config.Proxy.BaseURL == "" {
		errors = append(errors, "Proxy base URL is required. Set AIPEDIA_PROXY_URL or proxy.base_url in config file.")
	}

	switch config.Image.Strategy {
	case "v1", "v2":
	default:
		errors = append(errors, fmt.Sprintf("Unknown image suggestion strategy: %s. Supported: v1, v2", config.Image.Strategy))
	}

	switch config.TTS.Provider {
	case "premium", "free":
	default:
		errors = append(errors, fmt.Sprintf("Unknown TTS provider: %s. Supported: premium, free", config.TTS.Provider))
	}

	if config.History.MaxEntries <= 0 {
		errors = append(errors, "history.max_entries must be positive")
	}
	if config.LLM.MaxTokens <= 0 {
		errors = append(errors, "llm.max_tokens must be positive")
	}

	switch config.Server.Upstream.LLMProvider {
	case "deepseek", "gemini":
	default:
		errors = append(errors, fmt.Sprintf("Unknown LLM upstream: %s. Supported: deepseek, gemini", config.Server.Upstream.LLMProvider))
	}

	for name, rl := range map[string]RateLimit{"client_rate_limit": config.ClientRateLimit, "server.rate_limit": config.Server.RateLimit} {
		switch rl.Backend {
		case "memory":
		case "store":
			if name != "client_rate_limit" {
				errors = append(errors, fmt.Sprintf("The store backend is only available for client_rate_limit, not %s", name))
			}
		case "redis":
			if rl.RedisURL == "" {
				errors = append(errors, fmt.Sprintf("%s.redis_url is required for the redis backend. Set REDIS_URL", name))
			}
		default:
			errors = append(errors, fmt.Sprintf("Unknown rate limit backend for %s: %s. Supported: memory, redis, store", name, rl.Backend))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetApp() App         { return Get().App }
func GetProxy() Proxy     { return Get().Proxy }
func GetLLM() LLM         { return Get().LLM }
func GetImage() Image     { return Get().Image }
func GetTTS() TTS         { return Get().TTS }
func GetServer() Server   { return Get().Server }
func GetLogging() Logging { return Get().Logging }
func IsDebugMode() bool   { return Get().App.Debug }

// GenerationTimeoutDuration returns the bound on a single article generation.
func (l LLM) GenerationTimeoutDuration() time.Duration {
	return parseDurationOr(l.GenerationTimeout, 120*time.Second)
}

// TimeoutDuration returns the HTTP client timeout for proxy calls.
func (p Proxy) TimeoutDuration() time.Duration {
	return parseDurationOr(p.Timeout, 130*time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
