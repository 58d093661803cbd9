package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cticu/cticu-schedule/pkg/cache"
	"github.com/cticu/cticu-schedule/pkg/core/badges"
	"github.com/cticu/cticu-schedule/pkg/core/calendar"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
)

const cellWidth = 11

// parseMonth accepts YYYY-MM; an empty string means the month containing now
func parseMonth(arg string, now time.Time) (time.Time, error) {
	if arg == "" {
		return calendar.MonthStart(now), nil
	}
	t, err := time.Parse("2006-01", arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("month must be YYYY-MM, got: %s", arg)
	}
	return t, nil
}

func parseShiftTypes(raw []string) ([]model.ShiftType, error) {
	var types []model.ShiftType
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			st, ok := model.ParseShiftType(part)
			if !ok {
				return nil, fmt.Errorf("unknown shift type %q (expected 5C, 5W, Night or Swing)", part)
			}
			types = append(types, st)
		}
	}
	return types, nil
}

func printStale(w io.Writer, origin cache.Origin) {
	if origin == cache.OriginStale {
		fmt.Fprintf(w, "%s⚠️  Offline: showing cached data%s\n", colorYellow, colorReset)
	}
}

func printBadges(w io.Writer, counts badges.Counts) {
	if counts.Swap == 0 {
		fmt.Fprintf(w, "%sNo new swap notifications%s\n", colorDim, colorReset)
		return
	}
	fmt.Fprintf(w, "%s🔔 %d new swap notification(s)%s\n", colorBold, counts.Swap, colorReset)
}

type calendarOptions struct {
	FirstDayMonday bool
	Doctor         string
	Today          time.Time
}

// renderCalendar draws a six week grid. Each cell has the day number followed by one
// line per shift type; with a doctor set, only that doctor's shifts are shown.
func renderCalendar(w io.Writer, month time.Time, schedule model.Schedule, holidays model.Holidays, types []model.ShiftType, opts calendarOptions) {
	if len(types) == 0 {
		types = model.AllShiftTypes
	}

	fmt.Fprintf(w, "\n%s%s%s\n\n", colorBold, month.Format("January 2006"), colorReset)

	weekdays := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if opts.FirstDayMonday {
		weekdays = append(weekdays[1:], weekdays[0])
	}
	for _, d := range weekdays {
		fmt.Fprintf(w, "%-*s", cellWidth, d)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", cellWidth*7))

	days := calendar.CalendarDays(month, opts.FirstDayMonday)
	for week := 0; week < len(days)/7; week++ {
		row := days[week*7 : week*7+7]
		if allNil(row) {
			continue
		}

		for _, d := range row {
			fmt.Fprint(w, dayHeader(d, holidays, opts.Today))
		}
		fmt.Fprintln(w)

		for _, st := range types {
			for _, d := range row {
				fmt.Fprintf(w, "%-*s", cellWidth, shiftCell(d, schedule, st, opts.Doctor))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	printHolidayLegend(w, month, holidays)
}

func allNil(row []*time.Time) bool {
	for _, d := range row {
		if d != nil {
			return false
		}
	}
	return true
}

func dayHeader(d *time.Time, holidays model.Holidays, today time.Time) string {
	if d == nil {
		return strings.Repeat(" ", cellWidth)
	}
	label := fmt.Sprintf("%2d", d.Day())
	if _, ok := holidays[calendar.FormatDate(*d)]; ok {
		label += " H"
	}
	padded := fmt.Sprintf("%-*s", cellWidth, label)
	if !today.IsZero() && calendar.IsToday(*d, today) {
		return colorGreen + colorBold + padded + colorReset
	}
	return padded
}

func shiftCell(d *time.Time, schedule model.Schedule, st model.ShiftType, doctor string) string {
	if d == nil {
		return ""
	}
	assigned, ok := schedule[calendar.FormatDate(*d)][st]
	if !ok || assigned == "" {
		return ""
	}
	if doctor != "" && !strings.EqualFold(assigned, doctor) {
		return ""
	}
	return fmt.Sprintf("%s %s", st, assigned)
}

func printHolidayLegend(w io.Writer, month time.Time, holidays model.Holidays) {
	var dates []string
	for date := range holidays {
		if t, err := calendar.ParseDate(date); err == nil && calendar.IsSameMonth(t, month) {
			dates = append(dates, date)
		}
	}
	if len(dates) == 0 {
		return
	}
	sort.Strings(dates)
	fmt.Fprintln(w, "Holidays (H):")
	for _, date := range dates {
		fmt.Fprintf(w, "  %s  %s\n", date, holidays[date])
	}
}

func statusColor(s model.Status) string {
	switch s {
	case model.StatusApproved:
		return colorGreen
	case model.StatusDenied:
		return colorRed
	default:
		return colorYellow
	}
}

// formatRequest renders one request as a header line plus one line per shift
func formatRequest(r model.ShiftChangeRequest, unseen bool) string {
	var sb strings.Builder
	marker := "  "
	if unseen {
		marker = "● "
	}
	requester := displayName(r.RequesterName, r.RequesterUsername)
	fmt.Fprintf(&sb, "%s#%d %s%-8s%s by %s", marker, r.ID, statusColor(r.Status), r.Status, colorReset, requester)
	if r.SubmittedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.SubmittedAt); err == nil {
			fmt.Fprintf(&sb, " on %s", t.Format("Jan 02 15:04"))
		}
	}
	sb.WriteString("\n")
	for _, s := range r.Shifts {
		fmt.Fprintf(&sb, "     %s %-5s %s → %s\n", s.Date, s.ShiftType, s.FromDoctor, s.ToDoctor)
	}
	if r.Notes != "" {
		fmt.Fprintf(&sb, "     %s\"%s\"%s\n", colorDim, r.Notes, colorReset)
	}
	return sb.String()
}
