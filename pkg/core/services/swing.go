package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/cache"
	"github.com/cticu/cticu-schedule/pkg/core/calendar"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

var (
	ErrNotSwingDate    = errors.New("date is not a swing shift day")
	ErrAdminAssignOnly = errors.New("only administrators can assign swing shifts")
)

type SwingClient interface {
	UpdateSchedule(ctx context.Context, date string, shift model.ShiftType, doctor string) error
	UpdateSwingShiftDetails(ctx context.Context, date string, detail model.SwingShiftDetail) error
}

// SwingShift is one swing day in a month. Doctor is empty when unassigned.
type SwingShift struct {
	Date   string
	Doctor string
	Detail model.SwingShiftDetail
}

// ListSwingShifts expands the recurrence rule for month and joins each date with its
// assignment and census notes. The origin is stale when either read fell back to cache.
func ListSwingShifts(ctx context.Context, fetcher *cache.Fetcher, month time.Time, rule string, forceRefresh bool) ([]SwingShift, cache.Origin, error) {
	dates, err := calendar.SwingShiftDates(month, rule)
	if err != nil {
		return nil, 0, err
	}

	start, end := calendar.MonthBounds(month)
	schedule, schedOrigin, err := GetSchedules(ctx, fetcher, start, end, []model.ShiftType{model.ShiftSwing}, forceRefresh)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load swing assignments: %w", err)
	}
	details, detailOrigin, err := GetSwingShiftDetails(ctx, fetcher, start, end, forceRefresh)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load swing shift details: %w", err)
	}

	shifts := make([]SwingShift, 0, len(dates))
	for _, d := range dates {
		date := calendar.FormatDate(d)
		shifts = append(shifts, SwingShift{
			Date:   date,
			Doctor: schedule[date][model.ShiftSwing],
			Detail: details[date],
		})
	}

	return shifts, combineOrigins(schedOrigin, detailOrigin), nil
}

// combineOrigins reports stale if any read was stale, network if any went out
func combineOrigins(origins ...cache.Origin) cache.Origin {
	combined := cache.OriginCache
	for _, o := range origins {
		switch o {
		case cache.OriginStale:
			return cache.OriginStale
		case cache.OriginNetwork:
			combined = cache.OriginNetwork
		}
	}
	return combined
}

func isSwingDate(date time.Time, rule string) (bool, error) {
	dates, err := calendar.SwingShiftDates(date, rule)
	if err != nil {
		return false, err
	}
	for _, d := range dates {
		if d.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

// AssignSwingShift puts doctor on the swing shift of date. Admin only.
func AssignSwingShift(ctx context.Context, client SwingClient, fetcher *cache.Fetcher, user model.User, date, doctor, rule string, logger *zap.Logger) error {
	if !user.IsAdmin() {
		return ErrAdminAssignOnly
	}
	t, err := calendar.ParseDate(date)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDateArgs, date)
	}
	ok, err := isSwingDate(t, rule)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSwingDate, date)
	}

	if err := client.UpdateSchedule(ctx, date, model.ShiftSwing, doctor); err != nil {
		return fmt.Errorf("failed to assign swing shift: %w", err)
	}
	invalidate(ctx, fetcher, cache.NamespaceSchedules, logger)

	logger.Info("Assigned swing shift", zap.String("date", date), zap.String("doctor", doctor))
	return nil
}

// UpdateSwingDetails records census notes for a swing day
func UpdateSwingDetails(ctx context.Context, client SwingClient, fetcher *cache.Fetcher, date string, detail model.SwingShiftDetail, logger *zap.Logger) error {
	if !calendar.ValidDate(date) {
		return fmt.Errorf("%w: %q", ErrInvalidDateArgs, date)
	}

	if err := client.UpdateSwingShiftDetails(ctx, date, detail); err != nil {
		return fmt.Errorf("failed to update swing shift details: %w", err)
	}
	invalidate(ctx, fetcher, cache.NamespaceSwingDetails, logger)

	logger.Info("Updated swing shift details", zap.String("date", date))
	return nil
}
