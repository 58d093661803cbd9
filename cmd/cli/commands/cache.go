package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// CacheCmd creates the cache command and its subcommands
func CacheCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear offline data",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "List cached entries and their age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.Fetcher.Entries(app.Ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nCache backend: %s (fresh for %s, kept for %s)\n\n",
				app.Cfg.CacheBackend, app.Fetcher.TTL(), app.Cfg.CacheRetention)
			if len(entries) == 0 {
				fmt.Fprintln(out, "No offline data.")
				return nil
			}
			for _, e := range entries {
				state := colorGreen + "fresh" + colorReset
				switch {
				case !e.Valid:
					state = colorRed + "unreadable" + colorReset
				case e.Age >= app.Fetcher.TTL():
					state = colorYellow + "stale" + colorReset
				}
				fmt.Fprintf(out, "  %-50s %-10s %s\n", e.Key, e.Age.Truncate(time.Second), state)
			}
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached schedule data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Fetcher.ClearCache(app.Ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cache cleared")
			return nil
		},
	}

	cmd.AddCommand(status, clear)
	return cmd
}
