package handlers

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"aipedia/internal/config"
	"aipedia/internal/core"
	"aipedia/internal/store"
)

// NewPrefsCmd creates the preferences command
func NewPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change saved preferences",
		Long: `Preferences override the configuration defaults and persist between runs.

Keys:
  caching_enabled       true|false  reuse articles within a session
  image_suggestion      true|false  let the model pick the photo search term
  suggestion_strategy   v1|v2       single term, or a ranked list of terms
  tts_provider          premium|free

Examples:
  aipedia prefs
  aipedia prefs set image_suggestion true`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			return withStore(func(st *store.Store) error {
				prefs, err := st.GetPreferences(defaultPreferences(cfg))
				if err != nil {
					return err
				}
				printPreferences(cmd.OutOrStdout(), prefs)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				if err := st.SetPreference(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
				return nil
			})
		},
	})

	return cmd
}

func printPreferences(w io.Writer, p core.Preferences) {
	fmt.Fprintf(w, "%-20s  %t\n", store.PrefCachingEnabled, p.CachingEnabled)
	fmt.Fprintf(w, "%-20s  %t\n", store.PrefImageSuggestion, p.ImageSuggestion)
	fmt.Fprintf(w, "%-20s  %s\n", store.PrefSuggestionStrategy, p.SuggestionStrategy)
	fmt.Fprintf(w, "%-20s  %s\n", store.PrefTTSProvider, p.TTSProvider)
}
