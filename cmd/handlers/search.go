package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"aipedia/internal/config"
	"aipedia/internal/core"
	"aipedia/internal/cost"
	"aipedia/internal/logger"
	"aipedia/internal/prompt"
	"aipedia/internal/render"
)

type searchOptions struct {
	language   string
	style      string
	fromURL    string
	output     string
	share      bool
	save       bool
	noProgress bool
}

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [topic]",
		Short: "Generate an article about a topic",
		Long: `Generate a Wikipedia-style article and print it with its progress steps.

Supported languages: ` + strings.Join(prompt.Languages(), ", ") + `

Examples:
  # Generate an article
  aipedia search "black holes"

  # In French, for readers aged 11-16
  aipedia search "volcanoes" --lang fr --style age-11-16

  # Print a shareable link instead of searching
  aipedia search "volcanoes" --share

  # Open a shared link and export the article as HTML
  aipedia search --from-url 'https://aipedia.example/?q=Mars&lang=es' --output mars.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.language, "lang", "l", "en", "Article language code")
	cmd.Flags().StringVarP(&opts.style, "style", "s", "normal", "Writing style (normal, concise, formal, academic, age-0-10, ...)")
	cmd.Flags().StringVar(&opts.fromURL, "from-url", "", "Read topic, language and style from a share link")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Also write the article to a .md or .html file")
	cmd.Flags().BoolVar(&opts.share, "share", false, "Print a shareable link for the search and exit")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the article for later export")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Hide progress steps")

	return cmd
}

// searchRequest resolves the request from arguments and flags. A share link
// replaces all three of topic, language and style.
func searchRequest(args []string, opts searchOptions) (core.SearchRequest, error) {
	if opts.fromURL != "" {
		return ParseShareURL(opts.fromURL)
	}
	req, err := core.NewSearchRequest(strings.Join(args, " "), opts.language, core.ParseWritingStyle(opts.style))
	if err != nil {
		return core.SearchRequest{}, fmt.Errorf("a topic is required: %w", err)
	}
	return req, nil
}

func runSearch(cmd *cobra.Command, args []string, opts searchOptions) error {
	req, err := searchRequest(args, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.share {
		fmt.Fprintln(out, ShareQuery(req))
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := render.NewTerminalSink(out, render.TerminalOptions{HideProgress: opts.noProgress})
	a, err := newApp(config.Get(), sink)
	if err != nil {
		return err
	}
	defer a.Close()

	return searchAndKeep(ctx, a, req, opts, cmd.ErrOrStderr())
}

// searchAndKeep runs one search and writes or saves the result as requested.
func searchAndKeep(ctx context.Context, a *app, req core.SearchRequest, opts searchOptions, errOut io.Writer) error {
	if !opts.noProgress {
		fmt.Fprintf(errOut, "Estimated wait: ~%ds\n", cost.EstimateWaitTime(req.Topic))
	}

	logger.Debug("Starting search", "topic", req.Topic, "language", req.Language, "style", req.Style)
	if err := a.engine.Search(ctx, req.Topic, req.Language, req.Style); err != nil {
		// The sink has already shown the reader what went wrong.
		return errReported{err}
	}

	article, ok := a.engine.CurrentArticle()
	if !ok {
		return nil
	}

	if opts.output != "" {
		path, err := render.Export(article, opts.output)
		if err != nil {
			return fmt.Errorf("failed to export article: %w", err)
		}
		fmt.Fprintf(errOut, "Article written to %s\n", path)
	}

	if opts.save {
		if err := a.store.SaveArticle(a.engine.State().Request(), article); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Article saved; export it with: aipedia export %q --style %s\n", req.Topic, req.Style)
	}
	return nil
}

// errReported wraps an error the terminal sink already printed.
type errReported struct{ err error }

func (e errReported) Error() string { return e.err.Error() }
func (e errReported) Unwrap() error { return e.err }
