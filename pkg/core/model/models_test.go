package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchedule_Filter(t *testing.T) {
	s := Schedule{
		"2025-01-06": {Shift5C: "A1", Shift5W: "B1", ShiftNight: "C1"},
		"2025-01-07": {ShiftSwing: "A1"},
	}

	filtered := s.Filter([]ShiftType{Shift5C, ShiftSwing})

	assert.Equal(t, DayAssignments{Shift5C: "A1"}, filtered["2025-01-06"])
	assert.Equal(t, DayAssignments{ShiftSwing: "A1"}, filtered["2025-01-07"])
	// Original untouched
	assert.Len(t, s["2025-01-06"], 3)
}

func TestSchedule_FilterEmptyKeepsAll(t *testing.T) {
	s := Schedule{"2025-01-06": {Shift5C: "A1", Shift5W: "B1"}}
	assert.Equal(t, s, s.Filter(nil))
}

func TestSchedule_ForDoctor(t *testing.T) {
	s := Schedule{
		"2025-01-06": {Shift5C: "A1", ShiftSwing: "A1", Shift5W: "B1"},
		"2025-01-07": {Shift5W: "B1"},
	}

	got := s.ForDoctor("A1")
	assert.Equal(t, map[string][]ShiftType{"2025-01-06": {Shift5C, ShiftSwing}}, got)
}

func TestShiftChangeRequest_Involves(t *testing.T) {
	r := ShiftChangeRequest{Shifts: []ShiftChange{{FromDoctor: "B1", ToDoctor: "A1"}}}

	assert.True(t, r.Involves("A1"))
	assert.True(t, r.Involves("b1"))
	assert.False(t, r.Involves("C1"))
	assert.False(t, r.Involves(""))
}

func TestParseShiftType(t *testing.T) {
	st, ok := ParseShiftType("night")
	assert.True(t, ok)
	assert.Equal(t, ShiftNight, st)

	_, ok = ParseShiftType("Day")
	assert.False(t, ok)
}

func TestStatus_IsResolved(t *testing.T) {
	assert.False(t, StatusPending.IsResolved())
	assert.True(t, StatusApproved.IsResolved())
	assert.True(t, StatusDenied.IsResolved())
}
