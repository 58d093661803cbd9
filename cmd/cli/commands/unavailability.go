package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cticu/cticu-schedule/pkg/core/calendar"
	"github.com/cticu/cticu-schedule/pkg/core/services"
)

// UnavailabilityCmd creates the unavailability command and its subcommands
func UnavailabilityCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unavailability",
		Short: "View and request days off",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List unavailable dates (yours, or every doctor's with --all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}
			all, _ := cmd.Flags().GetBool("all")
			doctor, _ := cmd.Flags().GetString("doctor")
			refresh, _ := cmd.Flags().GetBool("refresh")
			if doctor == "" && !all {
				doctor = sess.User.DoctorCode
			}

			unavailable, origin, err := services.GetUnavailability(app.Ctx, app.Fetcher, refresh)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			printStale(out, origin)

			minDate, label := services.UpcomingQuarter(app.Today())
			fmt.Fprintf(out, "\nRequests open from %s (%s)\n", calendar.FormatDate(minDate), label)

			doctors := make([]string, 0, len(unavailable))
			for d := range unavailable {
				if doctor == "" || strings.EqualFold(d, doctor) {
					doctors = append(doctors, d)
				}
			}
			sort.Strings(doctors)

			if len(doctors) == 0 {
				fmt.Fprintln(out, "\nNo unavailable dates.")
				return nil
			}
			for _, d := range doctors {
				dates := append([]string(nil), unavailable[d]...)
				sort.Strings(dates)
				fmt.Fprintf(out, "\n%s (%d):\n", d, len(dates))
				for _, date := range dates {
					fmt.Fprintf(out, "  %s\n", date)
				}
			}
			return nil
		},
	}
	list.Flags().Bool("all", false, "Show every doctor")
	list.Flags().String("doctor", "", "Show one doctor code")
	list.Flags().Bool("refresh", false, "Bypass the cache")

	add := &cobra.Command{
		Use:   "add <YYYY-MM-DD>...",
		Short: "Mark dates as unavailable",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}
			doctor, _ := cmd.Flags().GetString("doctor")

			err = services.AddUnavailability(app.Ctx, app.Client, app.Fetcher, sess.User, doctor, args, app.Today(), app.Logger)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %d date(s)\n", len(args))
			return nil
		},
	}
	add.Flags().String("doctor", "", "Doctor code (admins only; defaults to yours)")

	remove := &cobra.Command{
		Use:   "remove <YYYY-MM-DD>",
		Short: "Remove an unavailable date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}
			doctor, _ := cmd.Flags().GetString("doctor")

			err = services.RemoveUnavailability(app.Ctx, app.Client, app.Fetcher, sess.User, doctor, args[0], app.Logger)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", args[0])
			return nil
		},
	}
	remove.Flags().String("doctor", "", "Doctor code (admins only; defaults to yours)")

	cmd.AddCommand(list, add, remove)
	return cmd
}
