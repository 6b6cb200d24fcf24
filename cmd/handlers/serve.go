package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aipedia/internal/config"
	"aipedia/internal/logger"
	"aipedia/internal/server"
)

// NewServeCmd creates the serve command for starting the provider proxy
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the provider proxy",
		Long: `Start the proxy that holds the provider credentials on behalf of clients.

The server provides:
  • POST /api/chat               LLM chat completions (DeepSeek or Gemini)
  • GET  /api/image?query=       a random Unsplash photo
  • GET  /api/image/download     Unsplash download tracking
  • POST /api/speech/{voiceId}   ElevenLabs text-to-speech
  • GET  /api/voices             ElevenLabs voices
  • POST /api/free-tts           keyless text-to-speech
  • GET  /health, GET /metrics

Provider routes are rate limited per client address.

Examples:
  # Start server on default port 3000
  aipedia serve

  # Start on custom port
  aipedia serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 3000)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.Get()

	serverCfg := config.GetServer()
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	providers, err := server.NewProviders(ctx, serverCfg)
	if err != nil {
		return fmt.Errorf("failed to configure providers: %w", err)
	}

	srv := server.New(providers, serverCfg)

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed, forcing close", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}
