package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/core/badges"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

func shift(date string, st model.ShiftType, from, to string) model.ShiftChange {
	return model.ShiftChange{Date: date, ShiftType: st, FromDoctor: from, ToDoctor: to}
}

func sampleRequests() []model.ShiftChangeRequest {
	return []model.ShiftChangeRequest{
		{ID: 1, RequesterUsername: "doc1", Status: model.StatusApproved, SubmittedAt: "2026-10-01T08:00:00Z",
			Shifts: []model.ShiftChange{shift("2026-11-02", model.Shift5C, "A1", "C1")}},
		{ID: 2, RequesterUsername: "doc2", Status: model.StatusPending, SubmittedAt: "2026-10-03T08:00:00Z",
			Shifts: []model.ShiftChange{shift("2026-11-03", model.ShiftNight, "B1", "A1")}},
		{ID: 3, RequesterUsername: "doc3", Status: model.StatusPending, SubmittedAt: "2026-10-02T08:00:00Z",
			Shifts: []model.ShiftChange{shift("2026-11-04", model.Shift5W, "C1", "D1")}},
		{ID: 4, RequesterUsername: "doc3", Status: model.StatusDenied, SubmittedAt: "2026-09-30T08:00:00Z",
			Shifts: []model.ShiftChange{shift("2026-11-05", model.Shift5W, "C1", "doc1")}},
	}
}

func ids(requests []model.ShiftChangeRequest) []int64 {
	out := make([]int64, len(requests))
	for i, r := range requests {
		out[i] = r.ID
	}
	return out
}

func TestParseSwapView(t *testing.T) {
	v, err := ParseSwapView("Admin")
	require.NoError(t, err)
	assert.Equal(t, ViewAdmin, v)

	_, err = ParseSwapView("everyone")
	assert.Error(t, err)
}

func TestFilterSwapRequests(t *testing.T) {
	mine := FilterSwapRequests(sampleRequests(), doc1, ViewMine)
	assert.Equal(t, []int64{2, 1, 4}, ids(mine), "own, counterparty and legacy username matches, newest first")

	all := FilterSwapRequests(sampleRequests(), admin, ViewAdmin)
	assert.Equal(t, []int64{2, 3, 1, 4}, ids(all))
}

func TestOpenSwapInbox_RegularUserMarksEverythingSeen(t *testing.T) {
	api := newAPI(t)
	api.SetRequests(sampleRequests())
	client, sess := signIn(t, api, "doc1")
	ctx := context.Background()

	sess.RefreshBadges(ctx)
	require.Equal(t, 2, sess.Badges.Counts().Swap, "own resolved request and counterparty pending request")

	inbox, err := OpenSwapInbox(ctx, client, sess, ViewMine, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 4}, ids(inbox.Requests))
	assert.Equal(t, map[int64]bool{1: true, 2: true}, inbox.Unseen)
	assert.Equal(t, badges.Counts{}, inbox.Badges)

	// Opening again shows nothing new
	inbox, err = OpenSwapInbox(ctx, client, sess, ViewMine, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, inbox.Unseen)
}

// listOnly serves a fixed request list; other calls are not expected
type listOnly struct {
	SwapClient
	requests []model.ShiftChangeRequest
}

func (l listOnly) ListShiftChangeRequests(context.Context) ([]model.ShiftChangeRequest, error) {
	return l.requests, nil
}

func TestOpenSwapInbox_MarksShownRequestsWhenRefreshFails(t *testing.T) {
	api := newAPI(t)
	_, sess := signIn(t, api, "doc1")
	ctx := context.Background()

	// The engine's last good fetch saw no requests
	sess.RefreshBadges(ctx)
	require.Empty(t, sess.Badges.PendingRequests())

	api.FailWith(http.StatusServiceUnavailable)
	inbox, err := OpenSwapInbox(ctx, listOnly{requests: sampleRequests()}, sess, ViewMine, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 4}, ids(inbox.Requests))
	assert.Equal(t, badges.Counts{}, inbox.Badges)

	api.FailWith(0)
	api.SetRequests(sampleRequests())
	sess.RefreshBadges(ctx)
	assert.Equal(t, 0, sess.Badges.Counts().Swap, "requests shown in the inbox stay seen")
}

func TestOpenSwapInbox_AdminKeepsPendingCount(t *testing.T) {
	api := newAPI(t)
	api.SetRequests(sampleRequests())
	client, sess := signIn(t, api, "boss")

	inbox, err := OpenSwapInbox(context.Background(), client, sess, ViewAdmin, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, inbox.Requests, 4)
	assert.Equal(t, 2, inbox.Badges.Swap)
	assert.Equal(t, map[int64]bool{2: true, 3: true}, inbox.Unseen)
}

func TestCreateSwapRequest(t *testing.T) {
	api := newAPI(t)
	client, sess := signIn(t, api, "doc1")
	ctx := context.Background()

	tests := []struct {
		name    string
		req     model.NewShiftChangeRequest
		wantErr error
	}{
		{"no shifts", model.NewShiftChangeRequest{}, nil},
		{"bad date", model.NewShiftChangeRequest{Shifts: []model.ShiftChange{shift("11/03/2026", model.Shift5C, "A1", "B1")}}, nil},
		{"same doctor", model.NewShiftChangeRequest{Shifts: []model.ShiftChange{shift("2026-11-03", model.Shift5C, "A1", "A1")}}, nil},
		{"not a participant", model.NewShiftChangeRequest{Shifts: []model.ShiftChange{shift("2026-11-03", model.Shift5C, "B1", "C1")}}, ErrNotParticipating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CreateSwapRequest(ctx, client, sess, tt.req, zap.NewNop())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
	assert.Empty(t, api.Requests())

	err := CreateSwapRequest(ctx, client, sess, model.NewShiftChangeRequest{
		Shifts: []model.ShiftChange{shift("2026-11-03", model.Shift5C, "A1", "B1")},
		Notes:  "conference",
	}, zap.NewNop())
	require.NoError(t, err)

	sess.Wait()
	require.Len(t, api.Requests(), 1)
	assert.Equal(t, "doc1", api.Requests()[0].RequesterUsername)
	assert.Equal(t, 0, sess.Badges.Counts().Swap, "own pending request does not count")
	assert.Len(t, sess.Badges.PendingRequests(), 1)
}

func TestApproveAndDenySwapRequest(t *testing.T) {
	api := newAPI(t)
	api.SetRequests(sampleRequests())
	ctx := context.Background()

	userClient, userSess := signIn(t, api, "doc1")
	assert.ErrorIs(t, ApproveSwapRequest(ctx, userClient, userSess, 2, zap.NewNop()), ErrAdminOnly)

	adminClient, adminSess := signIn(t, api, "boss")
	require.NoError(t, ApproveSwapRequest(ctx, adminClient, adminSess, 2, zap.NewNop()))
	require.NoError(t, DenySwapRequest(ctx, adminClient, adminSess, 3, zap.NewNop()))

	assert.ErrorIs(t, DenySwapRequest(ctx, adminClient, adminSess, 2, zap.NewNop()), ErrNotPending)
	assert.ErrorIs(t, ApproveSwapRequest(ctx, adminClient, adminSess, 99, zap.NewNop()), ErrRequestNotFound)

	adminSess.Wait()
	statuses := map[int64]model.Status{}
	for _, r := range api.Requests() {
		statuses[r.ID] = r.Status
	}
	assert.Equal(t, model.StatusApproved, statuses[2])
	assert.Equal(t, model.StatusDenied, statuses[3])
	assert.Equal(t, 0, adminSess.Badges.Counts().Swap, "nothing left pending")
}

func TestAcknowledgeSwapRequest(t *testing.T) {
	api := newAPI(t)
	api.SetRequests(sampleRequests())
	client, sess := signIn(t, api, "doc1")
	ctx := context.Background()

	assert.ErrorIs(t, AcknowledgeSwapRequest(ctx, client, sess, 2, zap.NewNop()), ErrStillPending)
	assert.False(t, api.Acknowledged(2))

	require.NoError(t, AcknowledgeSwapRequest(ctx, client, sess, 1, zap.NewNop()))
	assert.True(t, api.Acknowledged(1))

	sess.Wait()
	assert.True(t, sess.Badges.IsSeen(sampleRequests()[0]))
	assert.Equal(t, 1, sess.Badges.Counts().Swap, "counterparty request still unseen")
}
