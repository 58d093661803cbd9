package model

import (
	"slices"
	"strings"
)

type ShiftType string

const (
	Shift5W    ShiftType = "5W"
	Shift5C    ShiftType = "5C"
	ShiftNight ShiftType = "Night"
	ShiftSwing ShiftType = "Swing"
)

// AllShiftTypes lists shift types in display order
var AllShiftTypes = []ShiftType{Shift5C, Shift5W, ShiftNight, ShiftSwing}

func (s ShiftType) IsValid() bool {
	return slices.Contains(AllShiftTypes, s)
}

// ParseShiftType matches a shift type case-insensitively ("night" -> Night)
func ParseShiftType(s string) (ShiftType, bool) {
	for _, st := range AllShiftTypes {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

func (s Status) IsResolved() bool {
	return s == StatusApproved || s == StatusDenied
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the signed-in account as returned by the login endpoint
type User struct {
	Username   string `json:"username"`
	Name       string `json:"name,omitempty"`
	Role       Role   `json:"role"`
	DoctorCode string `json:"doctorCode,omitempty"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DayAssignments maps a shift type to the doctor code working it
type DayAssignments map[ShiftType]string

// Schedule maps a YYYY-MM-DD date to that day's assignments
type Schedule map[string]DayAssignments

// Filter returns a copy holding only the given shift types. An empty filter keeps everything.
func (s Schedule) Filter(types []ShiftType) Schedule {
	out := make(Schedule, len(s))
	for date, day := range s {
		kept := make(DayAssignments, len(day))
		for st, doctor := range day {
			if len(types) == 0 || slices.Contains(types, st) {
				kept[st] = doctor
			}
		}
		out[date] = kept
	}
	return out
}

// ForDoctor returns the dates and shift types assigned to a doctor code
func (s Schedule) ForDoctor(code string) map[string][]ShiftType {
	out := make(map[string][]ShiftType)
	for date, day := range s {
		for _, st := range AllShiftTypes {
			if doctor, ok := day[st]; ok && doctor == code {
				out[date] = append(out[date], st)
			}
		}
	}
	return out
}

// Holidays maps a date to the holiday name
type Holidays map[string]string

// Unavailability maps a doctor code to the dates they cannot work
type Unavailability map[string][]string

// UserEvents maps a date to free-form event objects
type UserEvents map[string][]map[string]any

// SwingShiftDetail holds the census notes recorded for a swing shift
type SwingShiftDetail struct {
	UnitCensus string `json:"unitCensus,omitempty"`
	Cases      string `json:"cases,omitempty"`
}

// SwingShiftDetails maps a date to its swing shift notes
type SwingShiftDetails map[string]SwingShiftDetail

// ShiftChange is one shift moving from one doctor to another
type ShiftChange struct {
	Date       string    `json:"date" validate:"required,datetime=2006-01-02"`
	ShiftType  ShiftType `json:"shift_type" validate:"required,oneof=5W 5C Night Swing"`
	FromDoctor string    `json:"from_doctor" validate:"required"`
	ToDoctor   string    `json:"to_doctor" validate:"required,nefield=FromDoctor"`
}

// ShiftChangeRequest is a swap proposal awaiting or past admin review
type ShiftChangeRequest struct {
	ID                int64         `json:"id"`
	RequesterUsername string        `json:"requester_username"`
	RequesterName     string        `json:"requester_name,omitempty"`
	Shifts            []ShiftChange `json:"shifts"`
	Notes             string        `json:"notes,omitempty"`
	Status            Status        `json:"status"`
	SubmittedAt       string        `json:"submitted_at"`
	ApproverUsername  string        `json:"approver_username,omitempty"`
	ResolvedAt        string        `json:"resolved_at,omitempty"`
}

// Involves reports whether the doctor code is on either side of any shift in the request.
// Codes compare case-insensitively: older rows carry lower-case codes entered by hand.
func (r ShiftChangeRequest) Involves(doctorCode string) bool {
	if doctorCode == "" {
		return false
	}
	for _, shift := range r.Shifts {
		if strings.EqualFold(shift.FromDoctor, doctorCode) || strings.EqualFold(shift.ToDoctor, doctorCode) {
			return true
		}
	}
	return false
}

// NewShiftChangeRequest is the body posted to create a request
type NewShiftChangeRequest struct {
	Shifts []ShiftChange `json:"shifts" validate:"required,min=1,dive"`
	Notes  string        `json:"notes,omitempty" validate:"max=1000"`
}
