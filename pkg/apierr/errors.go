// Package apierr defines the error taxonomy shared by the API client and the cache layer.
//
// Every failure that crosses the client boundary is an *Error tagged with a Kind, so
// callers can switch on the kind instead of probing concrete types.
package apierr

import (
	"errors"
	"fmt"
)

// Kind discriminates the three failure classes the client can produce.
type Kind int

const (
	// KindNetwork is a transport failure: the server could not be reached.
	KindNetwork Kind = iota + 1
	// KindAuth is an authentication failure, including an expired session.
	KindAuth
	// KindAPI is a non-2xx HTTP response or an otherwise unusable reply.
	KindAPI
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

// Auth error codes
const (
	CodeSessionExpired   = "SESSION_EXPIRED"
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeInvalidResponse  = "INVALID_RESPONSE"
)

// ErrMalformedResponse marks a 2xx response whose body does not have the expected shape.
var ErrMalformedResponse = errors.New("malformed response")

// Error is the tagged error value returned by the client and the fetcher.
type Error struct {
	Kind       Kind
	Code       string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Network returns a KindNetwork error wrapping the transport failure.
func Network(message string, err error) *Error {
	return &Error{Kind: KindNetwork, Message: message, Err: err}
}

// Auth returns a KindAuth error with the given code (may be empty).
func Auth(message, code string) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: message}
}

// SessionExpired is the error returned when the server rejects the stored token.
func SessionExpired() *Error {
	return Auth("Session expired", CodeSessionExpired)
}

// API returns a KindAPI error carrying the HTTP status code (0 when there is none).
func API(message string, statusCode int) *Error {
	return &Error{Kind: KindAPI, Message: message, StatusCode: statusCode}
}

// Unexpected normalizes an unclassified failure into a generic KindAPI error.
func Unexpected(message string, err error) *Error {
	return &Error{Kind: KindAPI, Message: message, Err: err}
}

// KindOf reports the kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsSessionExpired reports whether err is an auth error with CodeSessionExpired.
func IsSessionExpired(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuth && e.Code == CodeSessionExpired
}
