package services

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/cticu/cticu-schedule/pkg/apierr"
	"github.com/cticu/cticu-schedule/pkg/cache"
	"github.com/cticu/cticu-schedule/pkg/core/calendar"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

const msgInvalidDate = "Invalid date format. Expected YYYY-MM-DD"

func validateRange(start, end string) error {
	if !calendar.ValidDate(start) || !calendar.ValidDate(end) {
		return apierr.API(msgInvalidDate, 0)
	}
	return nil
}

func rangePath(path, start, end string, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("startDate", start)
	q.Set("endDate", end)
	return path + "?" + q.Encode()
}

// ScheduleKey is "schedules_<start>_<end>", suffixed with the sorted shift types
// when the view is limited to a subset.
func ScheduleKey(start, end string, shiftTypes []model.ShiftType) string {
	if len(shiftTypes) == 0 {
		return cache.NamespaceSchedules.Key(start, end)
	}
	names := make([]string, len(shiftTypes))
	for i, st := range shiftTypes {
		names[i] = string(st)
	}
	sort.Strings(names)
	return cache.NamespaceSchedules.Key(start, end, strings.Join(names, ","))
}

func GetDoctors(ctx context.Context, fetcher *cache.Fetcher, forceRefresh bool) ([]string, cache.Origin, error) {
	return cache.FetchWithOrigin[[]string](ctx, fetcher, cache.NamespaceDoctors.Key(), "/api/doctors", forceRefresh)
}

// GetSchedules returns assignments between start and end, limited to shiftTypes when given
func GetSchedules(ctx context.Context, fetcher *cache.Fetcher, start, end string, shiftTypes []model.ShiftType, forceRefresh bool) (model.Schedule, cache.Origin, error) {
	if err := validateRange(start, end); err != nil {
		return nil, 0, err
	}

	extra := url.Values{}
	if len(shiftTypes) > 0 {
		names := make([]string, len(shiftTypes))
		for i, st := range shiftTypes {
			names[i] = string(st)
		}
		extra.Set("shiftTypes", strings.Join(names, ","))
	}

	schedule, origin, err := cache.FetchWithOrigin[model.Schedule](
		ctx, fetcher, ScheduleKey(start, end, shiftTypes), rangePath("/api/schedules", start, end, extra), forceRefresh,
	)
	if err != nil {
		return nil, 0, err
	}
	return schedule.Filter(shiftTypes), origin, nil
}

func GetHolidays(ctx context.Context, fetcher *cache.Fetcher, start, end string, forceRefresh bool) (model.Holidays, cache.Origin, error) {
	if err := validateRange(start, end); err != nil {
		return nil, 0, err
	}
	return cache.FetchWithOrigin[model.Holidays](
		ctx, fetcher, cache.NamespaceHolidays.Key(start, end), rangePath("/api/holidays", start, end, nil), forceRefresh,
	)
}

func GetUnavailability(ctx context.Context, fetcher *cache.Fetcher, forceRefresh bool) (model.Unavailability, cache.Origin, error) {
	return cache.FetchWithOrigin[model.Unavailability](ctx, fetcher, cache.NamespaceUnavailability.Key(), "/api/unavailability", forceRefresh)
}

func GetUserEvents(ctx context.Context, fetcher *cache.Fetcher, start, end string, forceRefresh bool) (model.UserEvents, cache.Origin, error) {
	if err := validateRange(start, end); err != nil {
		return nil, 0, err
	}
	return cache.FetchWithOrigin[model.UserEvents](
		ctx, fetcher, cache.NamespaceUserEvents.Key(start, end), rangePath("/api/user-events", start, end, nil), forceRefresh,
	)
}

func GetSwingShiftDetails(ctx context.Context, fetcher *cache.Fetcher, start, end string, forceRefresh bool) (model.SwingShiftDetails, cache.Origin, error) {
	if err := validateRange(start, end); err != nil {
		return nil, 0, err
	}
	return cache.FetchWithOrigin[model.SwingShiftDetails](
		ctx, fetcher, cache.NamespaceSwingDetails.Key(start, end), rangePath("/api/swing-shift-details", start, end, nil), forceRefresh,
	)
}
