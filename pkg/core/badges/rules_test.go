package badges

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cticu/cticu-schedule/pkg/core/model"
)

var (
	admin = Identity{Username: "boss", Role: model.RoleAdmin}
	doc1  = Identity{Username: "doc1", Role: model.RoleUser, DoctorCode: "A1"}
)

func swap(from, to string) []model.ShiftChange {
	return []model.ShiftChange{{Date: "2026-11-02", ShiftType: model.ShiftNight, FromDoctor: from, ToDoctor: to}}
}

func TestCountUnseen_Admin(t *testing.T) {
	requests := []model.ShiftChangeRequest{
		{ID: 1, Status: model.StatusPending},
		{ID: 2, Status: model.StatusApproved},
	}
	assert.Equal(t, 1, CountUnseen(requests, admin, SeenSet{}))
}

func TestCountUnseen_AdminIgnoresSeenState(t *testing.T) {
	requests := []model.ShiftChangeRequest{
		{ID: 1, Status: model.StatusPending},
		{ID: 3, Status: model.StatusPending},
		{ID: 4, Status: model.StatusDenied},
	}
	seen := SeenSet{}
	for _, r := range requests {
		seen.Add(KeyOf(r))
	}
	assert.Equal(t, 2, CountUnseen(requests, admin, seen))
}

func TestCountUnseen_RegularUser(t *testing.T) {
	tests := []struct {
		name     string
		request  model.ShiftChangeRequest
		expected int
	}{
		{
			name:     "own pending request is suppressed",
			request:  model.ShiftChangeRequest{ID: 5, RequesterUsername: "doc1", Status: model.StatusPending, Shifts: swap("A1", "B1")},
			expected: 0,
		},
		{
			name:     "own approved request notifies",
			request:  model.ShiftChangeRequest{ID: 5, RequesterUsername: "doc1", Status: model.StatusApproved, Shifts: swap("A1", "B1")},
			expected: 1,
		},
		{
			name:     "own denied request notifies",
			request:  model.ShiftChangeRequest{ID: 5, RequesterUsername: "doc1", Status: model.StatusDenied, Shifts: swap("A1", "B1")},
			expected: 1,
		},
		{
			name:     "counterparty pending notifies",
			request:  model.ShiftChangeRequest{ID: 6, RequesterUsername: "doc2", Status: model.StatusPending, Shifts: swap("B1", "A1")},
			expected: 1,
		},
		{
			name:     "counterparty as from_doctor notifies",
			request:  model.ShiftChangeRequest{ID: 7, RequesterUsername: "doc2", Status: model.StatusApproved, Shifts: swap("A1", "B1")},
			expected: 1,
		},
		{
			name:     "counterparty code in another case notifies",
			request:  model.ShiftChangeRequest{ID: 9, RequesterUsername: "doc2", Status: model.StatusPending, Shifts: swap("b1", "a1")},
			expected: 1,
		},
		{
			name:     "unrelated request is ignored",
			request:  model.ShiftChangeRequest{ID: 8, RequesterUsername: "doc2", Status: model.StatusPending, Shifts: swap("B1", "C1")},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountUnseen([]model.ShiftChangeRequest{tt.request}, doc1, SeenSet{})
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCountUnseen_NoDoctorCodeMatchesNothing(t *testing.T) {
	nurse := Identity{Username: "nurse", Role: model.RoleUser}
	requests := []model.ShiftChangeRequest{
		{ID: 1, RequesterUsername: "doc2", Status: model.StatusPending, Shifts: swap("", "B1")},
	}
	assert.Equal(t, 0, CountUnseen(requests, nurse, SeenSet{}))
}

func TestCountUnseen_StatusChangeResurfaces(t *testing.T) {
	seen := SeenSet{}
	seen.Add(SeenKey{ID: 6, Status: model.StatusPending})

	pending := []model.ShiftChangeRequest{{ID: 6, RequesterUsername: "doc2", Status: model.StatusPending, Shifts: swap("B1", "A1")}}
	assert.Equal(t, 0, CountUnseen(pending, doc1, seen))

	approved := []model.ShiftChangeRequest{{ID: 6, RequesterUsername: "doc2", Status: model.StatusApproved, Shifts: swap("B1", "A1")}}
	assert.Equal(t, 1, CountUnseen(approved, doc1, seen))
}
