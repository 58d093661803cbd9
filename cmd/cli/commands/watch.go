package commands

import (
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/core/badges"
	"github.com/cticu/cticu-schedule/pkg/scheduler"
)

// WatchCmd creates the watch command
func WatchCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep running, refreshing swap notifications and purging old cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var last atomic.Int64
			last.Store(-1)
			unsubscribe := sess.Badges.Subscribe(func(c badges.Counts) {
				if last.Swap(int64(c.Swap)) != int64(c.Swap) {
					printBadges(out, c)
				}
			})
			defer unsubscribe()

			sched, err := scheduler.New(scheduler.Options{
				BadgeRefreshSpec: app.Cfg.BadgeRefreshSpec,
				CachePurgeSpec:   app.Cfg.CachePurgeSpec,
				Retention:        app.Cfg.CacheRetention,
			}, sess, app.Fetcher, app.Logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nWatching as %s (badges %s, cache purge %s). Press Ctrl+C to stop.\n\n",
				sess.User.Username, app.Cfg.BadgeRefreshSpec, app.Cfg.CachePurgeSpec)

			sched.RunNow()
			sched.Start()

			select {
			case <-ctx.Done():
			case <-sess.Done():
				fmt.Fprintln(out, "Session expired, stopping.")
			}

			sched.Stop()
			app.Logger.Info("Watch stopped", zap.String("session_id", sess.ID))
			return nil
		},
	}
}
