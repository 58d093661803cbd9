// Package fakeapi is an in-process stand-in for the scheduling backend used by tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/cticu/cticu-schedule/pkg/core/model"
)

var signingKey = []byte("fakeapi-signing-key")

type account struct {
	password string
	user     model.User
}

// Server serves the backend routes from in-memory state. All setters are safe to call
// while requests are in flight.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	accounts       map[string]account
	tokens         map[string]string
	tokenTTL       time.Duration
	statusOverride int
	hits           map[string]int
	nextID         int64

	doctors        []string
	schedule       model.Schedule
	holidays       model.Holidays
	unavailability model.Unavailability
	userEvents     model.UserEvents
	swingDetails   model.SwingShiftDetails
	requests       []model.ShiftChangeRequest
	requestsBody   []byte
	acknowledged   map[int64]bool
	requestsHook   func()
}

func New() *Server {
	s := &Server{
		accounts:       make(map[string]account),
		tokens:         make(map[string]string),
		tokenTTL:       time.Hour,
		hits:           make(map[string]int),
		nextID:         100,
		schedule:       make(model.Schedule),
		holidays:       make(model.Holidays),
		unavailability: make(model.Unavailability),
		userEvents:     make(model.UserEvents),
		swingDetails:   make(model.SwingShiftDetails),
		acknowledged:   make(map[int64]bool),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.countHits)

	r.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.overrideStatus, s.requireAuth)
	api.HandleFunc("/user", s.handleUser).Methods("GET")
	api.HandleFunc("/user/change-password", s.handleChangePassword).Methods("POST")
	api.HandleFunc("/doctors", s.handleDoctors).Methods("GET")
	api.HandleFunc("/schedules", s.handleGetSchedules).Methods("GET")
	api.HandleFunc("/schedules", s.handlePutSchedule).Methods("PUT")
	api.HandleFunc("/holidays", s.handleHolidays).Methods("GET")
	api.HandleFunc("/unavailability", s.handleGetUnavailability).Methods("GET")
	api.HandleFunc("/unavailability", s.handleAddUnavailability).Methods("POST")
	api.HandleFunc("/unavailability", s.handleRemoveUnavailability).Methods("DELETE")
	api.HandleFunc("/user-events", s.handleUserEvents).Methods("GET")
	api.HandleFunc("/swing-shift-details", s.handleGetSwingDetails).Methods("GET")
	api.HandleFunc("/swing-shift-details", s.handlePutSwingDetails).Methods("PUT")
	api.HandleFunc("/shift-change-requests", s.handleListRequests).Methods("GET")
	api.HandleFunc("/shift-change-requests", s.handleCreateRequest).Methods("POST")
	api.HandleFunc("/shift-change-requests/{id:[0-9]+}/approve", s.handleResolve(model.StatusApproved)).Methods("PUT")
	api.HandleFunc("/shift-change-requests/{id:[0-9]+}/deny", s.handleResolve(model.StatusDenied)).Methods("PUT")
	api.HandleFunc("/shift-change-requests/{id:[0-9]+}/acknowledge", s.handleAcknowledge).Methods("POST")

	return r
}

// AddUser registers an account that can log in
func (s *Server) AddUser(password string, user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[user.Username] = account{password: password, user: user}
}

// SetTokenTTL controls the exp claim of issued tokens. A negative TTL issues tokens
// that are already expired.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

// FailWith makes every authenticated route answer with status. Zero restores normal behavior.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusOverride = status
}

// RevokeTokens invalidates every issued token so the next call gets a 401
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// Hits returns how many GET requests reached path
func (s *Server) Hits(path string) int {
	return s.MethodHits(http.MethodGet, path)
}

// MethodHits returns how many requests with method reached path
func (s *Server) MethodHits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

func (s *Server) SetDoctors(doctors []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors = doctors
}

func (s *Server) SetSchedule(schedule model.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = schedule
}

func (s *Server) SetHolidays(holidays model.Holidays) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays = holidays
}

func (s *Server) SetUnavailability(u model.Unavailability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailability = u
}

func (s *Server) Unavailability() model.Unavailability {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.Unavailability, len(s.unavailability))
	for doctor, dates := range s.unavailability {
		out[doctor] = append([]string(nil), dates...)
	}
	return out
}

func (s *Server) SetUserEvents(events model.UserEvents) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userEvents = events
}

func (s *Server) SetSwingDetails(details model.SwingShiftDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swingDetails = details
}

func (s *Server) SwingDetails() model.SwingShiftDetails {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.SwingShiftDetails, len(s.swingDetails))
	for date, d := range s.swingDetails {
		out[date] = d
	}
	return out
}

func (s *Server) SetRequests(requests []model.ShiftChangeRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = requests
	s.requestsBody = nil
}

// SetRequestsBody replaces the shift change list with a raw body, for malformed responses
func (s *Server) SetRequestsBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestsBody = []byte(body)
}

// OnListRequests runs fn inside the list handler before it responds
func (s *Server) OnListRequests(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestsHook = fn
}

func (s *Server) Requests() []model.ShiftChangeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ShiftChangeRequest(nil), s.requests...)
}

func (s *Server) Acknowledged(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acknowledged[id]
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) overrideStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := s.statusOverride
		s.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		username, ok := s.tokens[raw]
		s.mu.Unlock()
		if raw == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		r.Header.Set("X-Fake-User", username)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[body.Username]
	ttl := s.tokenTTL
	s.mu.Unlock()

	if !ok || acct.password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}

	claims := jwt.MapClaims{
		"sub": acct.user.Username,
		"exp": time.Now().Add(ttl).Unix(),
		"jti": strconv.FormatInt(time.Now().UnixNano(), 10),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.tokens[token] = acct.user.Username
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": acct.user})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct := s.accounts[r.Header.Get("X-Fake-User")]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, acct.user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if len(body.NewPassword) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Password must be at least 8 characters"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	username := r.Header.Get("X-Fake-User")
	acct := s.accounts[username]
	if acct.password != body.CurrentPassword {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Current password is incorrect"})
		return
	}
	acct.password = body.NewPassword
	s.accounts[username] = acct
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDoctors(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.doctors)
}

func (s *Server) handleGetSchedules(w http.ResponseWriter, r *http.Request) {
	start, end := r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate")
	var types []model.ShiftType
	if raw := r.URL.Query().Get("shiftTypes"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			types = append(types, model.ShiftType(t))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.Schedule)
	for date, day := range s.schedule.Filter(types) {
		if inRange(date, start, end) {
			out[date] = day
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date   string          `json:"date"`
		Shift  model.ShiftType `json:"shift"`
		Doctor string          `json:"doctor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Shift.IsValid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	day := s.schedule[body.Date]
	if day == nil {
		day = make(model.DayAssignments)
		s.schedule[body.Date] = day
	}
	day[body.Shift] = body.Doctor
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	start, end := r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.Holidays)
	for date, name := range s.holidays {
		if inRange(date, start, end) {
			out[date] = name
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetUnavailability(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.unavailability)
}

func (s *Server) handleAddUnavailability(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Doctor string   `json:"doctor"`
		Dates  []string `json:"dates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Doctor == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.unavailability[body.Doctor]
	for _, d := range body.Dates {
		if !slices.Contains(existing, d) {
			existing = append(existing, d)
		}
	}
	sort.Strings(existing)
	s.unavailability[body.Doctor] = existing
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRemoveUnavailability(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Doctor string `json:"doctor"`
		Date   string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []string
	for _, d := range s.unavailability[body.Doctor] {
		if d != body.Date {
			kept = append(kept, d)
		}
	}
	s.unavailability[body.Doctor] = kept
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleUserEvents(w http.ResponseWriter, r *http.Request) {
	start, end := r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.UserEvents)
	for date, events := range s.userEvents {
		if inRange(date, start, end) {
			out[date] = events
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSwingDetails(w http.ResponseWriter, r *http.Request) {
	start, end := r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(model.SwingShiftDetails)
	for date, d := range s.swingDetails {
		if inRange(date, start, end) {
			out[date] = d
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutSwingDetails(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date       string `json:"date"`
		UnitCensus string `json:"unitCensus"`
		Cases      string `json:"cases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Date == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.swingDetails[body.Date] = model.SwingShiftDetail{UnitCensus: body.UnitCensus, Cases: body.Cases}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hook := s.requestsHook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requestsBody != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(s.requestsBody)
		return
	}
	out := s.requests
	if out == nil {
		out = []model.ShiftChangeRequest{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body model.NewShiftChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Shifts) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "At least one shift is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	username := r.Header.Get("X-Fake-User")
	s.nextID++
	req := model.ShiftChangeRequest{
		ID:                s.nextID,
		RequesterUsername: username,
		RequesterName:     s.accounts[username].user.Name,
		Shifts:            body.Shifts,
		Notes:             body.Notes,
		Status:            model.StatusPending,
		SubmittedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	s.requests = append(s.requests, req)
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleResolve(status model.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.accounts[r.Header.Get("X-Fake-User")].user.Role != model.RoleAdmin {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Admin access required"})
			return
		}
		for i := range s.requests {
			if s.requests[i].ID != id {
				continue
			}
			if s.requests[i].Status != model.StatusPending {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "Request already resolved"})
				return
			}
			s.requests[i].Status = status
			s.requests[i].ApproverUsername = r.Header.Get("X-Fake-User")
			s.requests[i].ResolvedAt = time.Now().UTC().Format(time.RFC3339)
			writeJSON(w, http.StatusOK, s.requests[i])
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("Request %d not found", id)})
	}
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.acknowledged[id] = true
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func inRange(date, start, end string) bool {
	return (start == "" || date >= start) && (end == "" || date <= end)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
