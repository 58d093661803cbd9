package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cticu/cticu-schedule/pkg/apierr"
	"github.com/cticu/cticu-schedule/pkg/core/model"
)

const shiftChangeRequestsPath = "/api/shift-change-requests"

// ListShiftChangeRequests always goes to the network. A body that is not a JSON
// array (including null) is reported as apierr.ErrMalformedResponse.
func (c *Client) ListShiftChangeRequests(ctx context.Context) ([]model.ShiftChangeRequest, error) {
	data, err := c.GetJSON(ctx, shiftChangeRequestsPath)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: shift change requests is not an array", apierr.ErrMalformedResponse)
	}

	var requests []model.ShiftChangeRequest
	if err := json.Unmarshal(trimmed, &requests); err != nil {
		return nil, fmt.Errorf("%w: %v", apierr.ErrMalformedResponse, err)
	}
	return requests, nil
}

func (c *Client) CreateShiftChangeRequest(ctx context.Context, req model.NewShiftChangeRequest) error {
	return c.sendJSON(ctx, http.MethodPost, shiftChangeRequestsPath, req, nil)
}

func (c *Client) ApproveShiftChangeRequest(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("%s/%d/approve", shiftChangeRequestsPath, id), nil, nil)
}

func (c *Client) DenyShiftChangeRequest(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("%s/%d/deny", shiftChangeRequestsPath, id), nil, nil)
}

// AcknowledgeShiftChangeRequest dismisses a resolved request for the requester
func (c *Client) AcknowledgeShiftChangeRequest(ctx context.Context, id int64) error {
	return c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("%s/%d/acknowledge", shiftChangeRequestsPath, id), nil, nil)
}

func (c *Client) AddUnavailability(ctx context.Context, doctor string, dates []string) error {
	body := struct {
		Doctor string   `json:"doctor"`
		Dates  []string `json:"dates"`
	}{doctor, dates}
	return c.sendJSON(ctx, http.MethodPost, "/api/unavailability", body, nil)
}

func (c *Client) RemoveUnavailability(ctx context.Context, doctor, date string) error {
	body := struct {
		Doctor string `json:"doctor"`
		Date   string `json:"date"`
	}{doctor, date}
	return c.sendJSON(ctx, http.MethodDelete, "/api/unavailability", body, nil)
}

// UpdateSchedule assigns doctor to the given shift on date
func (c *Client) UpdateSchedule(ctx context.Context, date string, shift model.ShiftType, doctor string) error {
	body := struct {
		Date   string          `json:"date"`
		Shift  model.ShiftType `json:"shift"`
		Doctor string          `json:"doctor"`
	}{date, shift, doctor}
	return c.sendJSON(ctx, http.MethodPut, "/api/schedules", body, nil)
}

func (c *Client) UpdateSwingShiftDetails(ctx context.Context, date string, detail model.SwingShiftDetail) error {
	body := struct {
		Date       string `json:"date"`
		UnitCensus string `json:"unitCensus"`
		Cases      string `json:"cases"`
	}{date, detail.UnitCensus, detail.Cases}
	return c.sendJSON(ctx, http.MethodPut, "/api/swing-shift-details", body, nil)
}
