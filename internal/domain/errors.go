package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation is returned for input rejected before or by the backend.
	ErrValidation = errors.New("validation error")
	// ErrAuth covers a missing, invalid or insufficient-role credential.
	ErrAuth = errors.New("not authorized")
	// ErrNotFound is returned when an id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a status change is rejected by policy.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNetwork wraps transport failures, timeouts and unexpected responses.
	ErrNetwork = errors.New("network error")
	// ErrInFlight is returned when a booking already has a pending mutation.
	ErrInFlight = errors.New("operation already in progress")
)

// APIError is a non-2xx answer of the backend.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	kind       error
}

// NewAPIError classifies a response status into one of the sentinel errors.
// Status-change operations report client errors as invalid transitions.
func NewAPIError(op string, statusCode int, message string, statusChange bool) *APIError {
	return &APIError{
		Op:         op,
		StatusCode: statusCode,
		Message:    message,
		kind:       classify(statusCode, statusChange),
	}
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.kind }

func classify(code int, statusChange bool) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuth
	case code == http.StatusNotFound:
		return ErrNotFound
	case statusChange && (code == http.StatusBadRequest || code == http.StatusConflict || code == http.StatusUnprocessableEntity):
		return ErrInvalidTransition
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrNetwork
	}
}

// Validationf builds an ErrValidation with a message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Authf builds an ErrAuth with a message.
func Authf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuth, fmt.Sprintf(format, args...))
}

// Notice maps an error to the text shown to the user.
func Notice(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrValidation) {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "Please check the booking details and try again."
	}

	if errors.Is(err, ErrAuth) {
		return "You are not allowed to do that. Please sign in with the right account."
	}

	if errors.Is(err, ErrNotFound) {
		return "This booking no longer exists."
	}

	if errors.Is(err, ErrInvalidTransition) {
		return "This status change is not allowed."
	}

	if errors.Is(err, ErrInFlight) {
		return "Another change to this booking is still being saved."
	}

	return "Something went wrong while talking to the server. Please try again."
}
