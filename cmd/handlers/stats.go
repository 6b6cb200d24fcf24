package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"aipedia/internal/config"
	"aipedia/internal/store"
)

// NewStatsCmd creates the storage statistics command
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show history and saved article statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				stats, err := st.GetStats()
				if err != nil {
					return fmt.Errorf("failed to get statistics: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:        %s\n", st.Path())
				fmt.Fprintf(out, "History entries: %d (max %d)\n", stats.HistoryCount, config.Get().History.MaxEntries)
				fmt.Fprintf(out, "Saved articles:  %d\n", stats.SavedCount)
				fmt.Fprintf(out, "Size:            %.2f KB\n", float64(stats.Size)/1024)
				if !stats.LastUpdated.IsZero() {
					fmt.Fprintf(out, "Last updated:    %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
}
