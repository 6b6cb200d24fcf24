package handlers

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"aipedia/internal/config"
	"aipedia/internal/core"
	"aipedia/internal/render"
	"aipedia/internal/store"
)

// NewHistoryCmd creates the search history command
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, re-run and manage recent searches",
		Long: `Recent searches are kept most recent first, one entry per topic.

Examples:
  aipedia history list
  aipedia history rerun 2
  aipedia history delete "black holes"
  aipedia history clear --confirm`,
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	cmd.AddCommand(newHistoryClearCmd())
	cmd.AddCommand(newHistoryRerunCmd())

	return cmd
}

func withStore(fn func(st *store.Store) error) error {
	st, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *store.Store) error {
				entries, err := st.ListHistory(limit)
				if err != nil {
					return err
				}
				printHistory(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of entries (0 for all)")
	return cmd
}

// printHistory writes a numbered table of entries.
func printHistory(w io.Writer, entries []core.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No searches yet")
		return
	}

	fmt.Fprintf(w, "%-3s  %-40s  %-4s  %-14s  %s\n", "#", "Topic", "Lang", "Style", "When")
	for i, e := range entries {
		topic := e.Topic
		if len([]rune(topic)) > 40 {
			topic = string([]rune(topic)[:37]) + "..."
		}
		fmt.Fprintf(w, "%-3d  %-40s  %-4s  %-14s  %s\n", i+1, topic, e.Language, e.DisplayStyle, e.Timestamp.Format("Jan 02 15:04"))
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <topic|id>",
		Short: "Delete one search from the history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.Join(args, " ")
			return withStore(func(st *store.Store) error {
				if err := st.DeleteHistoryByTopic(target); err != nil {
					if idErr := st.DeleteHistory(target); idErr != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q from history\n", target)
				return nil
			})
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the search history",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !confirm {
				fmt.Fprint(out, "This will remove every search from the history. Continue? [y/N]: ")
				var response string
				fmt.Fscanln(cmd.InOrStdin(), &response)
				if response != "y" && response != "Y" && response != "yes" {
					fmt.Fprintln(out, "History clear cancelled")
					return nil
				}
			}
			return withStore(func(st *store.Store) error {
				if err := st.ClearHistory(); err != nil {
					return err
				}
				fmt.Fprintln(out, "History cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Skip confirmation prompt")
	return cmd
}

// findHistoryEntry matches a 1-based position or a topic.
func findHistoryEntry(entries []core.HistoryEntry, target string) (core.HistoryEntry, bool) {
	if n, err := strconv.Atoi(target); err == nil {
		if n >= 1 && n <= len(entries) {
			return entries[n-1], true
		}
		return core.HistoryEntry{}, false
	}
	key := strings.Join(strings.Fields(strings.ToLower(target)), " ")
	for _, e := range entries {
		if strings.Join(strings.Fields(strings.ToLower(e.Topic)), " ") == key {
			return e, true
		}
	}
	return core.HistoryEntry{}, false
}

func newHistoryRerunCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "rerun <number|topic>",
		Short: "Run a past search again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			target := strings.Join(args, " ")

			sink := render.NewTerminalSink(cmd.OutOrStdout(), render.TerminalOptions{HideProgress: opts.noProgress})
			a, err := newApp(cfg, sink)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.ListHistory(0)
			if err != nil {
				return err
			}
			entry, ok := findHistoryEntry(entries, target)
			if !ok {
				return fmt.Errorf("no history entry matches %q", target)
			}

			req, err := core.NewSearchRequest(entry.Topic, entry.Language, entry.DisplayStyle)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return searchAndKeep(ctx, a, req, opts, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Also write the article to a .md or .html file")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the article for later export")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Hide progress steps")
	return cmd
}
