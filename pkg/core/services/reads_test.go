package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cticu/cticu-schedule/pkg/apierr"
	"github.com/cticu/cticu-schedule/pkg/cache"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

func TestScheduleKey(t *testing.T) {
	assert.Equal(t, "schedules_2026-11-01_2026-11-30", ScheduleKey("2026-11-01", "2026-11-30", nil))
	assert.Equal(t, "schedules_2026-11-01_2026-11-30_Night,Swing",
		ScheduleKey("2026-11-01", "2026-11-30", []model.ShiftType{model.ShiftSwing, model.ShiftNight}))
}

func TestReads_InvalidDate(t *testing.T) {
	api := newAPI(t)
	client, _ := signIn(t, api, "doc1")
	fetcher, _ := newFetcher(client)
	ctx := context.Background()

	_, _, err := GetSchedules(ctx, fetcher, "2026-11-1", "2026-11-30", nil, false)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindAPI))
	assert.Contains(t, err.Error(), msgInvalidDate)

	_, _, err = GetHolidays(ctx, fetcher, "2026-11-01", "30/11/2026", false)
	assert.True(t, apierr.Is(err, apierr.KindAPI))

	_, _, err = GetUserEvents(ctx, fetcher, "", "2026-11-30", false)
	assert.True(t, apierr.Is(err, apierr.KindAPI))

	assert.Zero(t, api.Hits("/api/schedules"))
}

func TestGetSchedules_FiltersAndCaches(t *testing.T) {
	api := newAPI(t)
	api.SetSchedule(model.Schedule{
		"2026-11-02": {model.ShiftNight: "A1", model.Shift5C: "B1"},
		"2026-12-01": {model.ShiftNight: "B1"},
	})
	client, _ := signIn(t, api, "doc1")
	fetcher, store := newFetcher(client)
	ctx := context.Background()

	schedule, origin, err := GetSchedules(ctx, fetcher, "2026-11-01", "2026-11-30", []model.ShiftType{model.ShiftNight}, false)
	require.NoError(t, err)
	assert.Equal(t, cache.OriginNetwork, origin)
	assert.Equal(t, model.Schedule{"2026-11-02": {model.ShiftNight: "A1"}}, schedule)

	_, origin, err = GetSchedules(ctx, fetcher, "2026-11-01", "2026-11-30", []model.ShiftType{model.ShiftNight}, false)
	require.NoError(t, err)
	assert.Equal(t, cache.OriginCache, origin)
	assert.Equal(t, 1, api.Hits("/api/schedules"))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"schedules_2026-11-01_2026-11-30_Night"}, keys)
}

func TestGetHolidays_ServesStaleWhenOffline(t *testing.T) {
	api := newAPI(t)
	api.SetHolidays(model.Holidays{"2026-12-25": "Christmas Day", "2027-01-01": "New Year's Day"})
	client, _ := signIn(t, api, "doc1")
	fetcher, _ := newFetcher(client)
	ctx := context.Background()

	holidays, _, err := GetHolidays(ctx, fetcher, "2026-12-01", "2026-12-31", false)
	require.NoError(t, err)
	assert.Equal(t, model.Holidays{"2026-12-25": "Christmas Day"}, holidays)

	api.Close()

	holidays, origin, err := GetHolidays(ctx, fetcher, "2026-12-01", "2026-12-31", true)
	require.NoError(t, err)
	assert.Equal(t, cache.OriginStale, origin)
	assert.Equal(t, model.Holidays{"2026-12-25": "Christmas Day"}, holidays)

	_, _, err = GetHolidays(ctx, fetcher, "2027-01-01", "2027-01-31", false)
	assert.True(t, apierr.Is(err, apierr.KindNetwork), "no cached entry for this range")
}

func TestGetDoctorsAndUnavailability(t *testing.T) {
	api := newAPI(t)
	api.SetDoctors([]string{"A1", "B1", "C1"})
	api.SetUnavailability(model.Unavailability{"A1": {"2027-01-04"}})
	client, _ := signIn(t, api, "doc1")
	fetcher, _ := newFetcher(client)
	ctx := context.Background()

	doctors, _, err := GetDoctors(ctx, fetcher, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1", "C1"}, doctors)

	unavailable, _, err := GetUnavailability(ctx, fetcher, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"2027-01-04"}, unavailable["A1"])
}
