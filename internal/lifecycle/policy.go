// Package lifecycle drives every booking mutation: it checks the transition
// policy, applies optimistic changes to a view's store and reconciles them
// with the backend.
package lifecycle

import (
	"fmt"

	"laundrmate/internal/domain"
	"laundrmate/internal/models"
)

// Policy decides which session may do what to a booking.
type Policy struct {
	AllowReopen bool
}

// CheckTransition returns nil when s may move b to status to.
// Illegal moves yield domain.ErrInvalidTransition, legal moves by the wrong
// actor yield domain.ErrAuth.
func (p Policy) CheckTransition(s *models.Session, b models.Booking, to models.Status) error {
	if s == nil {
		return domain.Authf("sign in to change a booking")
	}
	if _, ok := models.ParseStatus(string(to)); !ok {
		return domain.Validationf("unknown status %q", to)
	}

	from := b.Status
	if from == "" {
		from = models.StatusPending
	}
	if from == to {
		return fmt.Errorf("%w: booking %d is already %s", domain.ErrInvalidTransition, b.ID, to)
	}

	switch {
	case from == models.StatusPending && to == models.StatusConfirmed:
		return requireOwner(s, "confirm")
	case from == models.StatusPending && to == models.StatusCancelled:
		if s.IsOwner() || ownsBooking(s, b) {
			return nil
		}
		return domain.Authf("only the owner or the booking's user can cancel")
	case from == models.StatusConfirmed && to == models.StatusCancelled:
		return requireOwner(s, "cancel a confirmed booking")
	case to == models.StatusPending:
		if !p.AllowReopen {
			return fmt.Errorf("%w: re-opening bookings is disabled", domain.ErrInvalidTransition)
		}
		return requireOwner(s, "re-open")
	}
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
}

// CheckDelete allows owners and the booking's own user.
func (p Policy) CheckDelete(s *models.Session, b models.Booking) error {
	if s == nil {
		return domain.Authf("sign in to delete a booking")
	}
	if s.IsOwner() || ownsBooking(s, b) {
		return nil
	}
	return domain.Authf("only the owner or the booking's user can delete")
}

// CheckEdit allows non-status edits by owners and the booking's own user.
func (p Policy) CheckEdit(s *models.Session, b models.Booking, u models.BookingUpdate) error {
	if s == nil {
		return domain.Authf("sign in to edit a booking")
	}
	if u.HasStatus() {
		return domain.Validationf("status changes go through a transition")
	}
	if u.IsEmpty() {
		return domain.Validationf("nothing to update")
	}
	if s.IsOwner() || ownsBooking(s, b) {
		return nil
	}
	return domain.Authf("only the owner or the booking's user can edit")
}

// Allowed lists the statuses s may move b to, for rendering actions.
func (p Policy) Allowed(s *models.Session, b models.Booking) []models.Status {
	var out []models.Status
	for _, to := range []models.Status{models.StatusPending, models.StatusConfirmed, models.StatusCancelled} {
		if p.CheckTransition(s, b, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

func requireOwner(s *models.Session, action string) error {
	if s.IsOwner() {
		return nil
	}
	return domain.Authf("only owners can %s", action)
}

// ownsBooking matches the session user against the booking. An unknown id
// on either side is left to the backend to decide.
func ownsBooking(s *models.Session, b models.Booking) bool {
	if s.Role != models.RoleUser {
		return false
	}
	return s.UserID == 0 || b.UserID == 0 || s.UserID == b.UserID
}
