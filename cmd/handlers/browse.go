package handlers

import (
	"strings"

	"github.com/spf13/cobra"

	"aipedia/internal/config"
	"aipedia/internal/core"
	"aipedia/internal/tui"
)

// NewBrowseCmd creates the interactive browser command
func NewBrowseCmd() *cobra.Command {
	var (
		language string
		style    string
	)

	cmd := &cobra.Command{
		Use:   "browse [topic]",
		Short: "Browse articles interactively and follow wiki links",
		Long: `Launch the terminal browser. Bold terms and links in the article are wiki
links: select one with tab and press enter to open an article about it in the
context of the current one.

Keys:
  /        search            tab, shift+tab  select wiki link
  enter    follow link       a               narrate the article
  c        toggle caching    i               toggle AI image suggestion
  x        clear the cache   q               quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sink := tui.NewSink()
			a, err := newApp(config.Get(), sink)
			if err != nil {
				return err
			}
			defer a.Close()

			return tui.Run(cmd.Context(), a.engine, sink, tui.Options{
				Language:     language,
				Style:        core.ParseWritingStyle(style),
				InitialTopic: strings.Join(args, " "),
				Narrator:     a.narrator,
				SaveAudio:    a.narrator.SaveAudio,
				Prefs:        a.store,
				ClearCache:   a.cache.ClearAll,
			})
		},
	}

	cmd.Flags().StringVarP(&language, "lang", "l", "en", "Article language code")
	cmd.Flags().StringVarP(&style, "style", "s", "normal", "Writing style")

	return cmd
}
