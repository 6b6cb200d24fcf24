package handlers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aipedia/internal/core"
	"aipedia/internal/render"
	"aipedia/internal/store"
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	var (
		style  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <topic>",
		Short: "Write a saved article as Markdown or standalone HTML",
		Long: `Export an article saved with 'aipedia search --save'. The format follows the
output extension: .html and .htm give a standalone page, anything else Markdown.
Without --output the file is named after the article title.

Examples:
  aipedia export "black holes" --output black-holes.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.Join(args, " ")
			return withStore(func(st *store.Store) error {
				article, err := st.GetSavedArticle(topic, core.ParseWritingStyle(style))
				if err != nil {
					return err
				}
				if article == nil {
					return fmt.Errorf("no saved %s article for %q; run 'aipedia search %q --save' first", core.ParseWritingStyle(style), topic, topic)
				}

				target := output
				if target == "" {
					target = render.ExportFileName(article.Title, ".md")
				}
				path, err := render.Export(*article, target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Article written to %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&style, "style", "s", "normal", "Writing style the article was saved with")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (.md or .html)")

	return cmd
}
