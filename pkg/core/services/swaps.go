package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/core/badges"
	"github.com/cticu/cticu-schedule/pkg/core/model"
	"github.com/cticu/cticu-schedule/pkg/core/session"
)

var validate = validator.New()

var (
	ErrAdminOnly        = errors.New("only administrators can approve or deny swaps")
	ErrRequestNotFound  = errors.New("shift change request not found")
	ErrStillPending     = errors.New("only completed requests can be dismissed")
	ErrNotPending       = errors.New("request has already been resolved")
	ErrNotParticipating = errors.New("you must be on one side of every shift in the request")
)

// SwapClient is the API surface used by the swap use cases
type SwapClient interface {
	ListShiftChangeRequests(ctx context.Context) ([]model.ShiftChangeRequest, error)
	CreateShiftChangeRequest(ctx context.Context, req model.NewShiftChangeRequest) error
	ApproveShiftChangeRequest(ctx context.Context, id int64) error
	DenyShiftChangeRequest(ctx context.Context, id int64) error
	AcknowledgeShiftChangeRequest(ctx context.Context, id int64) error
}

// SwapView selects which requests a screen shows
type SwapView string

const (
	ViewMine  SwapView = "mine"
	ViewAdmin SwapView = "admin"
)

func ParseSwapView(s string) (SwapView, error) {
	switch SwapView(strings.ToLower(s)) {
	case ViewMine:
		return ViewMine, nil
	case ViewAdmin:
		return ViewAdmin, nil
	default:
		return "", fmt.Errorf("unknown view %q (expected mine or admin)", s)
	}
}

// FilterSwapRequests applies the view. "mine" keeps requests the user created or is
// named in; "admin" keeps everything. Results are newest first.
func FilterSwapRequests(requests []model.ShiftChangeRequest, user model.User, view SwapView) []model.ShiftChangeRequest {
	var out []model.ShiftChangeRequest
	for _, r := range requests {
		if view == ViewAdmin || isMine(r, user) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt > out[j].SubmittedAt
	})
	return out
}

func isMine(r model.ShiftChangeRequest, user model.User) bool {
	if r.RequesterUsername == user.Username || r.Involves(user.DoctorCode) {
		return true
	}
	// Older requests named the recipient by username
	for _, s := range r.Shifts {
		if strings.EqualFold(s.ToDoctor, user.Username) {
			return true
		}
	}
	return false
}

// ListSwapRequests fetches the live list and applies the view
func ListSwapRequests(ctx context.Context, client SwapClient, user model.User, view SwapView) ([]model.ShiftChangeRequest, error) {
	requests, err := client.ListShiftChangeRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shift change requests: %w", err)
	}
	return FilterSwapRequests(requests, user, view), nil
}

// SwapInbox is what the swap screen shows on open
type SwapInbox struct {
	Requests []model.ShiftChangeRequest
	Unseen   map[int64]bool // requests that were counted in the badge before opening
	Badges   badges.Counts
}

// OpenSwapInbox lists requests for the view and refreshes the badge. For regular
// users everything listed is then marked seen; admins keep their pending count.
func OpenSwapInbox(ctx context.Context, client SwapClient, sess *session.Session, view SwapView, logger *zap.Logger) (*SwapInbox, error) {
	requests, err := ListSwapRequests(ctx, client, sess.User, view)
	if err != nil {
		return nil, err
	}

	sess.RefreshBadges(ctx)

	who := sess.Identity()
	unseen := make(map[int64]bool)
	for _, r := range requests {
		if !sess.Badges.IsSeen(r) && badges.CountUnseen([]model.ShiftChangeRequest{r}, who, badges.SeenSet{}) > 0 {
			unseen[r.ID] = true
		}
	}

	if !who.IsAdmin() {
		// The shown list is marked too in case the refresh failed and the
		// engine still holds an older fetch
		sess.Badges.MarkAllRequestsAsSeen()
		sess.Badges.MarkAsSeen(requests)
		logger.Debug("Marked swap requests as seen", zap.Int("unseen", len(unseen)))
	}

	return &SwapInbox{Requests: requests, Unseen: unseen, Badges: sess.Badges.Counts()}, nil
}

// CreateSwapRequest validates and submits a new request. Regular users must be on
// one side of every shift.
func CreateSwapRequest(ctx context.Context, client SwapClient, sess *session.Session, req model.NewShiftChangeRequest, logger *zap.Logger) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid swap request: %w", err)
	}

	if !sess.User.IsAdmin() {
		for _, s := range req.Shifts {
			if !strings.EqualFold(s.FromDoctor, sess.User.DoctorCode) && !strings.EqualFold(s.ToDoctor, sess.User.DoctorCode) {
				return ErrNotParticipating
			}
		}
	}

	if err := client.CreateShiftChangeRequest(ctx, req); err != nil {
		return fmt.Errorf("failed to create swap request: %w", err)
	}

	logger.Info("Created swap request", zap.Int("shifts", len(req.Shifts)))
	sess.RefreshBadgesAsync(ctx)
	return nil
}

func ApproveSwapRequest(ctx context.Context, client SwapClient, sess *session.Session, id int64, logger *zap.Logger) error {
	return resolveSwapRequest(ctx, client, sess, id, model.StatusApproved, logger)
}

func DenySwapRequest(ctx context.Context, client SwapClient, sess *session.Session, id int64, logger *zap.Logger) error {
	return resolveSwapRequest(ctx, client, sess, id, model.StatusDenied, logger)
}

func resolveSwapRequest(ctx context.Context, client SwapClient, sess *session.Session, id int64, status model.Status, logger *zap.Logger) error {
	if !sess.User.IsAdmin() {
		return ErrAdminOnly
	}

	req, err := findRequest(ctx, client, id)
	if err != nil {
		return err
	}
	if req.Status != model.StatusPending {
		return fmt.Errorf("%w (status %s)", ErrNotPending, req.Status)
	}

	if status == model.StatusApproved {
		err = client.ApproveShiftChangeRequest(ctx, id)
	} else {
		err = client.DenyShiftChangeRequest(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("failed to mark request %d %s: %w", id, status, err)
	}

	logger.Info("Resolved swap request", zap.Int64("id", id), zap.String("status", string(status)))
	sess.RefreshBadgesAsync(ctx)
	return nil
}

// AcknowledgeSwapRequest dismisses a completed request from the user's list
func AcknowledgeSwapRequest(ctx context.Context, client SwapClient, sess *session.Session, id int64, logger *zap.Logger) error {
	req, err := findRequest(ctx, client, id)
	if err != nil {
		return err
	}
	if !req.Status.IsResolved() {
		return ErrStillPending
	}

	if err := client.AcknowledgeShiftChangeRequest(ctx, id); err != nil {
		return fmt.Errorf("failed to dismiss request %d: %w", id, err)
	}

	sess.Badges.MarkRequestAsSeen(req.ID, req.Status)
	logger.Info("Dismissed swap request", zap.Int64("id", id))
	sess.RefreshBadgesAsync(ctx)
	return nil
}

func findRequest(ctx context.Context, client SwapClient, id int64) (*model.ShiftChangeRequest, error) {
	requests, err := client.ListShiftChangeRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shift change requests: %w", err)
	}
	for i := range requests {
		if requests[i].ID == id {
			return &requests[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrRequestNotFound, id)
}
