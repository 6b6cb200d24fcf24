package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"aipedia/internal/config"
	"aipedia/internal/core"
	"aipedia/internal/render"
	"aipedia/internal/tts"
)

// NewSpeakCmd creates the narration command
func NewSpeakCmd() *cobra.Command {
	var (
		language string
		style    string
		provider string
	)

	cmd := &cobra.Command{
		Use:   "speak [topic]",
		Short: "Narrate an article's title and summary to an mp3 file",
		Long: `Narrate an article. A saved article is used when there is one; otherwise
the article is generated first.

The premium provider needs tts.api_key (ELEVENLABS_API_KEY); the free provider
needs nothing.

Examples:
  aipedia speak "black holes"
  aipedia speak "volcanoes" --lang es --provider free`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := core.NewSearchRequest(strings.Join(args, " "), language, core.ParseWritingStyle(style))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sink := render.NewTerminalSink(cmd.ErrOrStderr(), render.TerminalOptions{})
			a, err := newApp(config.Get(), sink)
			if err != nil {
				return err
			}
			defer a.Close()

			if provider == "" {
				provider = a.engine.Preferences().TTSProvider
			}
			selected, err := tts.ParseProvider(provider)
			if err != nil {
				return err
			}

			article, err := articleFor(ctx, a, req)
			if err != nil {
				return err
			}

			audio, err := a.narrator.Narrate(ctx, article, req.Language, selected)
			if err != nil {
				return fmt.Errorf("%s: %w", core.UserMessage(err), err)
			}
			path, err := a.narrator.SaveAudio(audio, tts.AudioFileName(article.Title))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Narration saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "lang", "l", "en", "Article language code")
	cmd.Flags().StringVarP(&style, "style", "s", "normal", "Writing style")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Narration provider: premium or free (default from prefs)")

	return cmd
}

// articleFor returns the saved article for req, generating it when none is saved.
func articleFor(ctx context.Context, a *app, req core.SearchRequest) (core.Article, error) {
	saved, err := a.store.GetSavedArticle(req.Topic, req.Style)
	if err != nil {
		return core.Article{}, err
	}
	if saved != nil {
		return *saved, nil
	}

	if err := a.engine.Search(ctx, req.Topic, req.Language, req.Style); err != nil {
		return core.Article{}, errReported{err}
	}
	article, ok := a.engine.CurrentArticle()
	if !ok {
		return core.Article{}, fmt.Errorf("no article generated for %q", req.Topic)
	}
	return article, nil
}
