package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/cache"
	"github.com/cticu/cticu-schedule/pkg/core/calendar"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

var (
	ErrNoDoctorCode    = errors.New("your account is not linked to a doctor code")
	ErrOtherDoctor     = errors.New("only administrators can change another doctor's unavailability")
	ErrBeforeMinDate   = errors.New("unavailability can only be requested from the upcoming quarter")
	ErrNoDates         = errors.New("no dates given")
	ErrInvalidDateArgs = errors.New("invalid date format, expected YYYY-MM-DD")
)

type UnavailabilityClient interface {
	AddUnavailability(ctx context.Context, doctor string, dates []string) error
	RemoveUnavailability(ctx context.Context, doctor, date string) error
}

// UpcomingQuarter is the first date regular users may mark unavailable, with its label
func UpcomingQuarter(now time.Time) (time.Time, string) {
	start := calendar.NextQuarterStart(now)
	return start, calendar.QuarterName(start)
}

// resolveDoctor picks the doctor an unavailability change applies to. An empty
// doctor means the signed-in user's own code.
func resolveDoctor(user model.User, doctor string) (string, error) {
	if doctor == "" {
		if user.DoctorCode == "" {
			return "", ErrNoDoctorCode
		}
		return user.DoctorCode, nil
	}
	if strings.EqualFold(doctor, user.DoctorCode) {
		return user.DoctorCode, nil
	}
	if !user.IsAdmin() {
		return "", ErrOtherDoctor
	}
	return doctor, nil
}

// AddUnavailability marks dates as unavailable for doctor. Regular users are limited
// to their own code and to dates from the upcoming quarter on.
func AddUnavailability(ctx context.Context, client UnavailabilityClient, fetcher *cache.Fetcher, user model.User, doctor string, dates []string, now time.Time, logger *zap.Logger) error {
	doctor, err := resolveDoctor(user, doctor)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		return ErrNoDates
	}

	minDate, label := UpcomingQuarter(now)
	var cleaned []string
	for _, d := range dates {
		t, err := calendar.ParseDate(d)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDateArgs, d)
		}
		if !user.IsAdmin() && t.Before(minDate) {
			return fmt.Errorf("%w (%s starts %s): %s", ErrBeforeMinDate, label, calendar.FormatDate(minDate), d)
		}
		cleaned = append(cleaned, calendar.FormatDate(t))
	}
	slices.Sort(cleaned)
	cleaned = slices.Compact(cleaned)

	if err := client.AddUnavailability(ctx, doctor, cleaned); err != nil {
		return fmt.Errorf("failed to add unavailability: %w", err)
	}
	invalidate(ctx, fetcher, cache.NamespaceUnavailability, logger)

	logger.Info("Added unavailability", zap.String("doctor", doctor), zap.Strings("dates", cleaned))
	return nil
}

func RemoveUnavailability(ctx context.Context, client UnavailabilityClient, fetcher *cache.Fetcher, user model.User, doctor, date string, logger *zap.Logger) error {
	doctor, err := resolveDoctor(user, doctor)
	if err != nil {
		return err
	}
	if !calendar.ValidDate(date) {
		return fmt.Errorf("%w: %q", ErrInvalidDateArgs, date)
	}

	if err := client.RemoveUnavailability(ctx, doctor, date); err != nil {
		return fmt.Errorf("failed to remove unavailability: %w", err)
	}
	invalidate(ctx, fetcher, cache.NamespaceUnavailability, logger)

	logger.Info("Removed unavailability", zap.String("doctor", doctor), zap.String("date", date))
	return nil
}

// invalidate drops a namespace after a successful write. A failure only leaves
// stale data until the TTL runs out, so it is logged and not returned.
func invalidate(ctx context.Context, fetcher *cache.Fetcher, n cache.Namespace, logger *zap.Logger) {
	if fetcher == nil {
		return
	}
	if err := fetcher.ClearNamespace(ctx, n); err != nil {
		logger.Warn("Failed to invalidate cache", zap.String("namespace", string(n)), zap.Error(err))
	}
}
