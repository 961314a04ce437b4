package models

import "strings"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// StatusAll is the filter value that matches every status.
const StatusAll = "all"

// ParseStatus normalizes s and reports whether it names a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, true
	}
	return "", false
}

func (s Status) String() string { return string(s) }

// Role is the role claim of an authenticated session.
type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
)

// ParseRole normalizes s into a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleUser, RoleOwner:
		return r, true
	}
	return "", false
}

// ServiceOptions is the fixed set of service labels offered by the booking form.
var ServiceOptions = []string{"Wash & Fold", "Dry Clean", "Ironing", "Pickup & Delivery"}

// IsServiceOption reports whether s is one of ServiceOptions.
func IsServiceOption(s string) bool {
	for _, opt := range ServiceOptions {
		if opt == s {
			return true
		}
	}
	return false
}

const (
	// DefaultAPIBaseURL is used when no base URL is configured.
	DefaultAPIBaseURL = "http://localhost:5000"

	// DefaultRequestTimeout is the transport timeout in seconds.
	DefaultRequestTimeout = 10

	// DefaultSessionTTL is how long a persisted session is kept, in seconds.
	DefaultSessionTTL = 7 * 24 * 60 * 60

	// DefaultSessionKey identifies the persisted session of this client.
	DefaultSessionKey = "default"

	// DefaultPollInterval is the refresher period in seconds.
	DefaultPollInterval = 30

	// LaundriesCacheTTL is how long the public laundry list is cached, in seconds.
	LaundriesCacheTTL = 5 * 60
)
