package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cticu/cticu-schedule/pkg/core/calendar"
	"github.com/cticu/cticu-schedule/pkg/core/model"
	"github.com/cticu/cticu-schedule/pkg/core/services"
)

// SwingCmd creates the swing command and its subcommands
func SwingCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swing",
		Short: "Swing shift planning",
	}

	list := &cobra.Command{
		Use:   "list [YYYY-MM]",
		Short: "List the month's swing shifts with assignments and census notes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.RequireSession(); err != nil {
				return err
			}
			var monthArg string
			if len(args) > 0 {
				monthArg = args[0]
			}
			month, err := parseMonth(monthArg, app.Today())
			if err != nil {
				return err
			}
			refresh, _ := cmd.Flags().GetBool("refresh")

			shifts, origin, err := services.ListSwingShifts(app.Ctx, app.Fetcher, month, app.Cfg.SwingShiftRRule, refresh)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			printStale(out, origin)
			start, end := calendar.SwingPlanningRange(app.Today())
			fmt.Fprintf(out, "\nSwing shifts for %s (planning window %s to %s)\n\n", month.Format("January 2006"), start, end)
			for _, s := range shifts {
				t, _ := calendar.ParseDate(s.Date)
				doctor := s.Doctor
				if doctor == "" {
					doctor = colorYellow + "unassigned" + colorReset
				}
				fmt.Fprintf(out, "  %s  %-10s", t.Format("Mon Jan 02"), doctor)
				if s.Detail.UnitCensus != "" || s.Detail.Cases != "" {
					fmt.Fprintf(out, "  census: %s  cases: %s", s.Detail.UnitCensus, s.Detail.Cases)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	list.Flags().Bool("refresh", false, "Bypass the cache")

	assign := &cobra.Command{
		Use:   "assign <YYYY-MM-DD> <doctor>",
		Short: "Assign a doctor to a swing shift (admins)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}
			err = services.AssignSwingShift(app.Ctx, app.Client, app.Fetcher, sess.User, args[0], args[1], app.Cfg.SwingShiftRRule, app.Logger)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s assigned to the swing shift on %s\n", args[1], args[0])
			return nil
		},
	}

	details := &cobra.Command{
		Use:   "details <YYYY-MM-DD>",
		Short: "Record census notes for a swing shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.RequireSession(); err != nil {
				return err
			}
			census, _ := cmd.Flags().GetString("census")
			cases, _ := cmd.Flags().GetString("cases")

			detail := model.SwingShiftDetail{UnitCensus: census, Cases: cases}
			if err := services.UpdateSwingDetails(app.Ctx, app.Client, app.Fetcher, args[0], detail, app.Logger); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Swing shift details saved for %s\n", args[0])
			return nil
		},
	}
	details.Flags().String("census", "", "Unit census")
	details.Flags().String("cases", "", "Cases")

	cmd.AddCommand(list, assign, details)
	return cmd
}
