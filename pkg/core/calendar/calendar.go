// Package calendar holds the date arithmetic used by the schedule views.
//
// Dates are civil dates represented as midnight UTC, so arithmetic never crosses a
// daylight saving boundary.
package calendar

import (
	"fmt"
	"regexp"
	"time"

	"github.com/teambition/rrule-go"
)

const DateLayout = "2006-01-02"

// CalendarCells is the fixed size of a month grid (6 weeks of 7 days)
const CalendarCells = 42

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidDate reports whether s has the YYYY-MM-DD shape the API expects
func ValidDate(s string) bool {
	return datePattern.MatchString(s)
}

func ParseDate(s string) (time.Time, error) {
	if !ValidDate(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Date returns the civil date of t in its own location
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the first and last day of t's month
func MonthBounds(t time.Time) (start, end string) {
	return MultiMonthBounds(t, 1)
}

// MultiMonthBounds spans count months starting with t's month
func MultiMonthBounds(t time.Time, count int) (start, end string) {
	if count < 1 {
		count = 1
	}
	first := MonthStart(t)
	last := first.AddDate(0, count, -1)
	return FormatDate(first), FormatDate(last)
}

// DaysInMonth lists every day of t's month
func DaysInMonth(t time.Time) []time.Time {
	first := MonthStart(t)
	var days []time.Time
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// CalendarDays lays t's month out on a 42-cell grid. Cells outside the month are
// nil. Weeks start on Sunday unless firstDayMonday is set.
func CalendarDays(t time.Time, firstDayMonday bool) []*time.Time {
	first := MonthStart(t)
	offset := int(first.Weekday())
	if firstDayMonday {
		offset = (offset + 6) % 7
	}

	cells := make([]*time.Time, CalendarCells)
	for i, day := range DaysInMonth(first) {
		d := day
		cells[offset+i] = &d
	}
	return cells
}

func IsSameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// IsToday compares the civil date of d with the civil date of now
func IsToday(d, now time.Time) bool {
	return Date(d).Equal(Date(now))
}

// NextQuarterStart is the first day of the quarter after the one containing now
func NextQuarterStart(now time.Time) time.Time {
	quarter := (int(now.Month()) - 1) / 3
	return time.Date(now.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 3, 0)
}

// QuarterName formats as "Q1 2027"
func QuarterName(t time.Time) string {
	return fmt.Sprintf("Q%d %d", (int(t.Month())-1)/3+1, t.Year())
}

// SwingPlanningRange runs from the start of the current month to the end of the next quarter
func SwingPlanningRange(now time.Time) (start, end string) {
	next := NextQuarterStart(now)
	return FormatDate(MonthStart(now)), FormatDate(next.AddDate(0, 3, -1))
}

// SwingShiftDates expands the recurrence rule over month's days
func SwingShiftDates(month time.Time, rule string) ([]time.Time, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse swing shift rule: %w", err)
	}

	first := MonthStart(month)
	last := first.AddDate(0, 1, -1)
	r.DTStart(first)

	var dates []time.Time
	for _, occurrence := range r.Between(first, last, true) {
		dates = append(dates, Date(occurrence))
	}
	return dates, nil
}
