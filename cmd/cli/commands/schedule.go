package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/core/calendar"
	"github.com/cticu/cticu-schedule/pkg/core/model"
	"github.com/cticu/cticu-schedule/pkg/core/services"
)

// DoctorsCmd creates the doctors command
func DoctorsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctors",
		Short: "List doctor codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.RequireSession(); err != nil {
				return err
			}
			refresh, _ := cmd.Flags().GetBool("refresh")

			doctors, origin, err := services.GetDoctors(app.Ctx, app.Fetcher, refresh)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			printStale(out, origin)
			fmt.Fprintf(out, "\nFound %d doctors:\n\n", len(doctors))
			for _, d := range doctors {
				fmt.Fprintf(out, "- %s\n", d)
			}
			return nil
		},
	}

	cmd.Flags().Bool("refresh", false, "Bypass the cache")
	return cmd
}

// ScheduleCmd creates the schedule command
func ScheduleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule [YYYY-MM]",
		Short: "Show the month's schedule as a calendar (defaults to this month)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
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

			doctor, _ := cmd.Flags().GetString("doctor")
			rawTypes, _ := cmd.Flags().GetStringSlice("shift")
			refresh, _ := cmd.Flags().GetBool("refresh")
			list, _ := cmd.Flags().GetBool("list")

			types, err := parseShiftTypes(rawTypes)
			if err != nil {
				return err
			}

			app.Logger.Debug("schedule command",
				zap.String("month", calendar.FormatDate(month)),
				zap.String("doctor", doctor),
				zap.Bool("list", list))

			if list {
				if doctor == "" {
					doctor = sess.User.DoctorCode
				}
				if doctor == "" {
					return fmt.Errorf("--list needs --doctor when your account has no doctor code")
				}
				return printDoctorShifts(cmd, app, month, doctor, types, refresh)
			}

			start, end := calendar.MonthBounds(month)
			schedule, origin, err := services.GetSchedules(app.Ctx, app.Fetcher, start, end, types, refresh)
			if err != nil {
				return explain(err)
			}

			holidays, _, err := services.GetHolidays(app.Ctx, app.Fetcher, start, end, refresh)
			if err != nil {
				// The grid is still useful without holiday markers
				app.Logger.Warn("Failed to load holidays", zap.Error(err))
				holidays = model.Holidays{}
			}

			out := cmd.OutOrStdout()
			printStale(out, origin)
			renderCalendar(out, month, schedule, holidays, types, calendarOptions{
				FirstDayMonday: app.Cfg.FirstDayMonday,
				Doctor:         doctor,
				Today:          app.Today(),
			})
			return nil
		},
	}

	cmd.Flags().String("doctor", "", "Only show shifts for this doctor code")
	cmd.Flags().StringSlice("shift", nil, "Shift types to show (5C, 5W, Night, Swing)")
	cmd.Flags().Bool("refresh", false, "Bypass the cache")
	cmd.Flags().Bool("list", false, "List a doctor's shifts over the next few months instead of a calendar")
	return cmd
}

// printDoctorShifts lists one doctor's shifts from month over MultiMonthCount months
func printDoctorShifts(cmd *cobra.Command, app *AppContext, month time.Time, doctor string, types []model.ShiftType, refresh bool) error {
	start, end := calendar.MultiMonthBounds(month, app.Cfg.MultiMonthCount)

	schedule, origin, err := services.GetSchedules(app.Ctx, app.Fetcher, start, end, types, refresh)
	if err != nil {
		return explain(err)
	}

	shifts := schedule.ForDoctor(strings.ToUpper(doctor))
	dates := make([]string, 0, len(shifts))
	for date := range shifts {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	out := cmd.OutOrStdout()
	printStale(out, origin)
	fmt.Fprintf(out, "\nShifts for %s from %s to %s:\n\n", strings.ToUpper(doctor), start, end)
	if len(dates) == 0 {
		fmt.Fprintln(out, "No shifts scheduled.")
		return nil
	}
	for _, date := range dates {
		t, _ := calendar.ParseDate(date)
		names := make([]string, len(shifts[date]))
		for i, st := range shifts[date] {
			names[i] = string(st)
		}
		fmt.Fprintf(out, "  %s  %s\n", t.Format("Mon Jan 02"), strings.Join(names, ", "))
	}
	return nil
}

// HolidaysCmd creates the holidays command
func HolidaysCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays [YYYY-MM]",
		Short: "List holidays over the next few months",
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

			start, end := calendar.MultiMonthBounds(month, app.Cfg.MultiMonthCount)
			holidays, origin, err := services.GetHolidays(app.Ctx, app.Fetcher, start, end, refresh)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			printStale(out, origin)
			printHolidays(out, holidays, start, end)
			return nil
		},
	}

	cmd.Flags().Bool("refresh", false, "Bypass the cache")
	return cmd
}

func printHolidays(out io.Writer, holidays model.Holidays, start, end string) {
	dates := make([]string, 0, len(holidays))
	for date := range holidays {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	fmt.Fprintf(out, "\nHolidays from %s to %s:\n\n", start, end)
	if len(dates) == 0 {
		fmt.Fprintln(out, "None.")
		return
	}
	for _, date := range dates {
		t, _ := calendar.ParseDate(date)
		fmt.Fprintf(out, "  %s  %s\n", t.Format("Mon Jan 02 2006"), holidays[date])
	}
}

// EventsCmd creates the events command
func EventsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events [YYYY-MM]",
		Short: "List your calendar events for a month",
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

			start, end := calendar.MonthBounds(month)
			events, origin, err := services.GetUserEvents(app.Ctx, app.Fetcher, start, end, refresh)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			printStale(out, origin)
			printEvents(out, events, month)
			return nil
		},
	}

	cmd.Flags().Bool("refresh", false, "Bypass the cache")
	return cmd
}

func printEvents(out io.Writer, events model.UserEvents, month time.Time) {
	dates := make([]string, 0, len(events))
	for date := range events {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	fmt.Fprintf(out, "\nEvents in %s:\n\n", month.Format("January 2006"))
	if len(dates) == 0 {
		fmt.Fprintln(out, "None.")
		return
	}
	for _, date := range dates {
		t, _ := calendar.ParseDate(date)
		for _, ev := range events[date] {
			fmt.Fprintf(out, "  %s  %s\n", t.Format("Mon Jan 02"), eventTitle(ev))
		}
	}
}

// eventTitle picks a readable label from a free-form event object
func eventTitle(ev map[string]any) string {
	for _, field := range []string{"title", "name", "type", "description"} {
		if s, ok := ev[field].(string); ok && s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(ev))
	for k := range ev {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, ev[k])
	}
	return strings.Join(parts, " ")
}
