package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cticu/cticu-schedule/pkg/apierr"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

func newStaticServer(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestListShiftChangeRequests(t *testing.T) {
	client, api := loggedInClient(t)
	api.SetRequests([]model.ShiftChangeRequest{
		{ID: 1, RequesterUsername: "doc2", Status: model.StatusPending, Shifts: []model.ShiftChange{
			{Date: "2026-11-02", ShiftType: model.ShiftNight, FromDoctor: "B1", ToDoctor: "A1"},
		}},
	})

	requests, err := client.ListShiftChangeRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, int64(1), requests[0].ID)
	assert.Equal(t, model.ShiftNight, requests[0].Shifts[0].ShiftType)
}

func TestListShiftChangeRequests_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null", `null`},
		{"object", `{"requests":[]}`},
		{"wrong element type", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, api := loggedInClient(t)
			api.SetRequestsBody(tt.body)

			_, err := client.ListShiftChangeRequests(context.Background())
			assert.ErrorIs(t, err, apierr.ErrMalformedResponse)
		})
	}
}

func TestShiftChangeRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	client, api := loggedInClient(t)
	api.AddUser("admin-pass", model.User{Username: "boss", Role: model.RoleAdmin})

	err := client.CreateShiftChangeRequest(ctx, model.NewShiftChangeRequest{
		Shifts: []model.ShiftChange{{Date: "2026-11-03", ShiftType: model.Shift5W, FromDoctor: "A1", ToDoctor: "B1"}},
		Notes:  "family event",
	})
	require.NoError(t, err)

	created := api.Requests()
	require.Len(t, created, 1)
	assert.Equal(t, "doc1", created[0].RequesterUsername)
	assert.Equal(t, model.StatusPending, created[0].Status)

	// Regular users cannot resolve requests
	err = client.ApproveShiftChangeRequest(ctx, created[0].ID)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindAPI))
	assert.Equal(t, http.StatusForbidden, apierr.StatusCode(err))
	assert.Contains(t, err.Error(), "Admin access required")

	admin, _ := newTestClient(t, api)
	ok, err := admin.Login(ctx, "boss", "admin-pass")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, admin.DenyShiftChangeRequest(ctx, created[0].ID))
	assert.Equal(t, model.StatusDenied, api.Requests()[0].Status)

	err = admin.ApproveShiftChangeRequest(ctx, created[0].ID)
	assert.Equal(t, http.StatusConflict, apierr.StatusCode(err))

	require.NoError(t, client.AcknowledgeShiftChangeRequest(ctx, created[0].ID))
	assert.True(t, api.Acknowledged(created[0].ID))
}

func TestUnavailabilityEndpoints(t *testing.T) {
	ctx := context.Background()
	client, api := loggedInClient(t)

	require.NoError(t, client.AddUnavailability(ctx, "A1", []string{"2026-11-05", "2026-11-04"}))
	assert.Equal(t, []string{"2026-11-04", "2026-11-05"}, api.Unavailability()["A1"])

	require.NoError(t, client.RemoveUnavailability(ctx, "A1", "2026-11-04"))
	assert.Equal(t, []string{"2026-11-05"}, api.Unavailability()["A1"])
}

func TestUpdateScheduleAndSwingDetails(t *testing.T) {
	ctx := context.Background()
	client, api := loggedInClient(t)

	require.NoError(t, client.UpdateSchedule(ctx, "2026-11-02", model.ShiftSwing, "A1"))
	data, err := client.GetJSON(ctx, "/api/schedules?startDate=2026-11-01&endDate=2026-11-30")
	require.NoError(t, err)
	assert.JSONEq(t, `{"2026-11-02":{"Swing":"A1"}}`, string(data))

	detail := model.SwingShiftDetail{UnitCensus: "14", Cases: "2 CABG"}
	require.NoError(t, client.UpdateSwingShiftDetails(ctx, "2026-11-02", detail))
	assert.Equal(t, detail, api.SwingDetails()["2026-11-02"])
}
