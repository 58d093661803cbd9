package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cticu/cticu-schedule/pkg/core/model"
)

func TestParseMonth(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	m, err := parseMonth("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), m)

	m, err = parseMonth("2027-02", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), m)

	_, err = parseMonth("Feb 2027", now)
	assert.Error(t, err)
}

func TestParseShiftTypes(t *testing.T) {
	types, err := parseShiftTypes([]string{"night,5c", "Swing"})
	require.NoError(t, err)
	assert.Equal(t, []model.ShiftType{model.ShiftNight, model.Shift5C, model.ShiftSwing}, types)

	_, err = parseShiftTypes([]string{"day"})
	assert.Error(t, err)
}

func TestParseShiftChange(t *testing.T) {
	sc, err := parseShiftChange("2026-11-03:night:a1:b1")
	require.NoError(t, err)
	assert.Equal(t, model.ShiftChange{Date: "2026-11-03", ShiftType: model.ShiftNight, FromDoctor: "A1", ToDoctor: "B1"}, sc)

	_, err = parseShiftChange("2026-11-03:night:a1")
	assert.Error(t, err)
	_, err = parseShiftChange("2026-11-03:day:a1:b1")
	assert.Error(t, err)
}

func TestParseRequestID(t *testing.T) {
	id, err := parseRequestID("#42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseRequestID("0")
	assert.Error(t, err)
	_, err = parseRequestID("abc")
	assert.Error(t, err)
}

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{`swaps list`, []string{"swaps", "list"}, false},
		{`swaps create --notes "family event" --shift 2026-11-03:Night:A1:B1`, []string{"swaps", "create", "--notes", "family event", "--shift", "2026-11-03:Night:A1:B1"}, false},
		{`swing details 2026-11-03 --cases 'CABG x2'`, []string{"swing", "details", "2026-11-03", "--cases", "CABG x2"}, false},
		{`login "doc1`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommandLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadLine_SharesReader(t *testing.T) {
	in := strings.NewReader("old-secret\r\nnew-secret\nnew-secret")

	for _, want := range []string{"old-secret", "new-secret", "new-secret"} {
		got, err := readLine(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRenderCalendar(t *testing.T) {
	var buf bytes.Buffer
	schedule := model.Schedule{
		"2026-11-02": {model.ShiftNight: "A1", model.Shift5C: "B1"},
		"2026-11-26": {model.ShiftNight: "B1"},
	}
	holidays := model.Holidays{"2026-11-26": "Thanksgiving", "2026-12-25": "Christmas Day"}

	renderCalendar(&buf, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), schedule, holidays,
		[]model.ShiftType{model.ShiftNight}, calendarOptions{Doctor: "A1"})
	out := buf.String()

	assert.Contains(t, out, "November 2026")
	assert.True(t, strings.Index(out, "Sun") < strings.Index(out, "Mon"), "weeks start on Sunday by default")
	assert.Contains(t, out, "Night A1")
	assert.NotContains(t, out, "Night B1", "other doctors are hidden")
	assert.NotContains(t, out, "5C B1", "unselected shift types are hidden")
	assert.Contains(t, out, "26 H")
	assert.Contains(t, out, "2026-11-26  Thanksgiving")
	assert.NotContains(t, out, "Christmas")
}

func TestRenderCalendar_MondayFirst(t *testing.T) {
	var buf bytes.Buffer
	renderCalendar(&buf, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), model.Schedule{}, nil, nil,
		calendarOptions{FirstDayMonday: true})

	header := strings.Split(buf.String(), "\n")[3]
	assert.True(t, strings.HasPrefix(header, "Mon"))
	assert.Contains(t, header, "Sun")
}

func TestFormatRequest(t *testing.T) {
	r := model.ShiftChangeRequest{
		ID:                7,
		RequesterUsername: "doc2",
		RequesterName:     "Dr Two",
		Status:            model.StatusApproved,
		SubmittedAt:       "2026-10-03T08:15:00Z",
		Notes:             "wedding",
		Shifts:            []model.ShiftChange{{Date: "2026-11-03", ShiftType: model.ShiftNight, FromDoctor: "B1", ToDoctor: "A1"}},
	}

	out := formatRequest(r, true)
	assert.True(t, strings.HasPrefix(out, "● #7"))
	assert.Contains(t, out, "Dr Two (doc2)")
	assert.Contains(t, out, "Oct 03 08:15")
	assert.Contains(t, out, "2026-11-03 Night B1 → A1")
	assert.Contains(t, out, `"wedding"`)

	assert.True(t, strings.HasPrefix(formatRequest(r, false), "  #7"))
}

func TestRunInteractive(t *testing.T) {
	var got []string
	root := &cobra.Command{Use: "cticu"}
	group := &cobra.Command{Use: "swaps"}
	approve := &cobra.Command{
		Use:  "approve <id>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, _ := cmd.Flags().GetString("note")
			got = append(got, args[0]+":"+note)
			return nil
		},
	}
	approve.Flags().String("note", "", "")
	group.AddCommand(approve)
	root.AddCommand(group)

	in := strings.NewReader(strings.Join([]string{
		"swaps approve 12 --note ok",
		"swaps approve 13",
		"swaps",
		"nope",
		"swaps approve",
		"exit",
		"swaps approve 99",
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, runInteractive(root, in, &out, func() string { return "> " }))

	assert.Equal(t, []string{"12:ok", "13:"}, got, "flags reset between commands")
	assert.Contains(t, out.String(), "swaps needs a subcommand")
	assert.Contains(t, out.String(), "Unknown command: nope")
	assert.Contains(t, out.String(), "accepts 1 arg(s)")
	assert.Contains(t, out.String(), "Goodbye")
}

func TestExplain(t *testing.T) {
	assert.NoError(t, explain(nil))
	assert.Contains(t, explain(context.Canceled).Error(), "context canceled")
}
