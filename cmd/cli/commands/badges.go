package commands

import (
	"github.com/spf13/cobra"

	"github.com/cticu/cticu-schedule/pkg/apierr"
)

// BadgesCmd creates the badges command
func BadgesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "Check for new swap notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}
			sess.RefreshBadges(app.Ctx)
			if sess.Ended() {
				return explain(apierr.SessionExpired())
			}
			printBadges(cmd.OutOrStdout(), sess.Badges.Counts())
			return nil
		},
	}
}
