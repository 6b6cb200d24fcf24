package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"aipedia/internal/core"
	"aipedia/internal/llm"
	"aipedia/internal/metrics"
	"aipedia/internal/tts"
)

const (
	defaultMaxPromptTokens = 4000
	defaultMaxQueryLength  = 100
	defaultRequestTimeout  = 110 * time.Second

	maxBodyBytes = 1 << 20
)

var unsafeQueryChars = regexp.MustCompile(`[^\w\s-]`)

// ValidationError is the flat error body of a rejected request.
type ValidationError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse reports which providers the proxy can reach.
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Providers map[string]bool `json:"providers"`
}

// handleHealth returns the health status of the proxy
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Providers: map[string]bool{
			"chat":      s.providers.Chat != nil,
			"image":     s.providers.Photos != nil,
			"speech":    s.providers.Speech != nil,
			"free_tts":  s.providers.FreeSpeech != nil,
			"ratelimit": s.providers.Limiter != nil,
		},
	})
}

// estimatePromptTokens uses four characters per token over the joined message contents.
func estimatePromptTokens(messages []llm.Message) int {
	n := len(llm.JoinContents(messages))
	return (n + 3) / 4
}

// handleChat forwards an OpenAI-style completion request to the configured LLM.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.providers.Chat == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Chat provider is not configured.")
		return
	}

	var req llm.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	tokens := estimatePromptTokens(req.Messages)
	metrics.PromptTokens.Observe(float64(tokens))
	limit := s.config.MaxPromptTokens
	if limit <= 0 {
		limit = defaultMaxPromptTokens
	}
	if tokens > limit {
		s.respondJSON(w, http.StatusBadRequest, ValidationError{
			Error:   "Token limit exceeded",
			Message: "Your request exceeds the maximum allowed tokens.",
		})
		return
	}

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.providers.Chat.Complete(ctx, req)
	metrics.ObserveUpstream("chat", start, err)
	if err != nil {
		s.log.Error("Chat upstream failed", "error", err, "estimated_tokens", tokens)
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			s.respondError(w, http.StatusGatewayTimeout, "The request to the language model timed out. Please try again with a simpler query.")
		default:
			s.respondUpstreamError(w, err, "No response received from the language model. Please try again.")
		}
		return
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// handleImage returns a random photo for the sanitized query.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if s.providers.Photos == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Image provider is not configured.")
		return
	}

	maxLen := s.config.MaxQueryLength
	if maxLen <= 0 {
		maxLen = defaultMaxQueryLength
	}
	query := r.URL.Query().Get("query")
	if query == "" || len(query) > maxLen {
		s.respondJSON(w, http.StatusBadRequest, ValidationError{
			Error:   "Invalid query",
			Message: "Query parameter is required and must be less than 100 characters.",
		})
		return
	}

	sanitized := strings.TrimSpace(unsafeQueryChars.ReplaceAllString(query, ""))
	if sanitized == "" {
		s.respondJSON(w, http.StatusBadRequest, ValidationError{
			Error:   "Invalid query",
			Message: "Query contains invalid characters.",
		})
		return
	}

	start := time.Now()
	photo, err := s.providers.Photos.RandomPhoto(r.Context(), sanitized)
	metrics.ObserveUpstream("image", start, err)
	if err != nil {
		s.log.Error("Image upstream failed", "error", err, "query", sanitized)
		s.respondUpstreamError(w, err, "Internal Server Error")
		return
	}

	s.respondJSON(w, http.StatusOK, photo)
}

// handleImageDownload reports a photo download to the provider.
func (s *Server) handleImageDownload(w http.ResponseWriter, r *http.Request) {
	if s.providers.Photos == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Image provider is not configured.")
		return
	}

	downloadURL := r.URL.Query().Get("url")
	if downloadURL == "" {
		s.respondJSON(w, http.StatusBadRequest, ValidationError{Error: "Missing URL parameter"})
		return
	}

	start := time.Now()
	err := s.providers.Photos.TrackDownload(r.Context(), downloadURL)
	metrics.ObserveUpstream("image_download", start, err)
	if err != nil {
		s.log.Warn("Download tracking failed", "error", err)
		s.respondUpstreamError(w, err, "Internal Server Error")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleSpeech forwards a text-to-speech request. The caller's xi-api-key
// header wins over the server key.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if s.providers.Speech == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Speech provider is not configured.")
		return
	}

	voiceID := chi.URLParam(r, "voiceId")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, ValidationError{Error: "Invalid request body"})
		return
	}

	start := time.Now()
	audio, err := s.providers.Speech.TextToSpeech(r.Context(), voiceID, r.Header.Get("xi-api-key"), body)
	metrics.ObserveUpstream("speech", start, err)
	if err != nil {
		s.log.Error("Speech upstream failed", "error", err, "voice_id", voiceID)
		s.respondJSON(w, upstreamStatus(err), ValidationError{Error: "Text-to-speech error"})
		return
	}

	s.respondAudio(w, audio)
}

// handleVoices returns the provider's voice list unchanged.
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if s.providers.Speech == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Speech provider is not configured.")
		return
	}

	start := time.Now()
	data, err := s.providers.Speech.Voices(r.Context(), r.Header.Get("xi-api-key"))
	metrics.ObserveUpstream("voices", start, err)
	if err != nil {
		s.log.Error("Voices upstream failed", "error", err)
		s.respondJSON(w, upstreamStatus(err), ValidationError{Error: "Failed to fetch voices"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Warn("Failed to write voices response", "error", err)
	}
}

// handleFreeTTS synthesizes speech with the keyless provider.
func (s *Server) handleFreeTTS(w http.ResponseWriter, r *http.Request) {
	if s.providers.FreeSpeech == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Speech provider is not configured.")
		return
	}

	var req tts.FreeTTSRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		s.respondJSON(w, http.StatusBadRequest, ValidationError{Error: "Text is required"})
		return
	}
	if req.Voice == "" {
		req.Voice = tts.LanguageVoice("en")
	}

	start := time.Now()
	audio, err := s.providers.FreeSpeech.Synthesize(r.Context(), req.Text, req.Voice)
	metrics.ObserveUpstream("free_tts", start, err)
	if err != nil {
		s.log.Error("Free TTS upstream failed", "error", err, "voice", req.Voice)
		s.respondJSON(w, http.StatusInternalServerError, ValidationError{Error: "Text-to-speech error"})
		return
	}

	s.respondAudio(w, audio)
}

// upstreamStatus passes a provider's HTTP status through, or 500 when the
// call failed before any answer.
func upstreamStatus(err error) int {
	var be *core.BoundaryError
	if errors.As(err, &be) && be.Status >= 400 {
		return be.Status
	}
	return http.StatusInternalServerError
}

// respondUpstreamError writes a provider failure. Answers from the provider
// keep their status and message; transport failures become 503.
func (s *Server) respondUpstreamError(w http.ResponseWriter, err error, fallback string) {
	var be *core.BoundaryError
	if errors.As(err, &be) && be.Status >= 400 {
		msg := be.Message
		if msg == "" {
			msg = fallback
		}
		s.respondError(w, be.Status, msg)
		return
	}
	s.respondError(w, http.StatusServiceUnavailable, fallback)
}
