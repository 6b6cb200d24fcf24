package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aipedia/internal/config"
	"aipedia/internal/logger"
	"aipedia/internal/metrics"
)

// Server is the provider proxy. It holds every upstream credential so that
// clients never see them.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	providers  Providers
	config     config.Server
	log        *slog.Logger
}

// New creates a new HTTP server instance
func New(providers Providers, cfg config.Server) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		providers: providers,
		config:    cfg,
		log:       logger.Get(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "xi-api-key"},
			ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Post("/chat", s.handleChat)
		r.Get("/image", s.handleImage)
		r.Get("/image/download", s.handleImageDownload)
		r.Post("/speech/{voiceId}", s.handleSpeech)
		r.Get("/voices", s.handleVoices)
		r.Post("/free-tts", s.handleFreeTTS)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting proxy server",
		"addr", s.httpServer.Addr,
		"llm_provider", s.config.Upstream.LLMProvider,
		"rate_limit_backend", s.config.RateLimit.Backend,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down proxy server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("Proxy server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// ErrorResponse is the error envelope of every non-rate-limit failure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the message shown to the client.
type ErrorDetail struct {
	Message string `json:"message"`
}

// respondError writes {"error":{"message":...}}.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: ErrorDetail{Message: message}})
}

// respondAudio writes an MP3 payload.
func (s *Server) respondAudio(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Warn("Failed to write audio response", "error", err)
	}
}
