package gateway

import (
	"context"
	"fmt"
	"net/http"

	"laundrmate/internal/domain"
	"laundrmate/internal/models"
)

func (c *Client) CreateBooking(ctx context.Context, payload models.BookingCreate) (*models.Booking, error) {
	if payload.LaundryID <= 0 {
		return nil, domain.Validationf("laundryId is required")
	}
	if p, ok := payload.Price.Get(); ok && p < 0 {
		return nil, domain.Validationf("price must not be negative")
	}

	var out models.Booking
	if err := c.do(ctx, request{
		op:     "create_booking",
		method: http.MethodPost,
		path:   "/api/bookings",
		body:   payload,
		auth:   true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMyBookings(ctx context.Context) ([]models.Booking, error) {
	var out listEnvelope[models.Booking]
	if err := c.do(ctx, request{
		op:     "list_my_bookings",
		method: http.MethodGet,
		path:   "/api/bookings/me",
		auth:   true,
	}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListOwnedBookings lists bookings made against the caller's laundries.
// Non-owner sessions are rejected without a request.
func (c *Client) ListOwnedBookings(ctx context.Context) ([]models.Booking, error) {
	if err := c.requireOwner("list_owned_bookings"); err != nil {
		return nil, err
	}

	var out listEnvelope[models.Booking]
	if err := c.do(ctx, request{
		op:     "list_owned_bookings",
		method: http.MethodGet,
		path:   "/api/bookings/owner",
		auth:   true,
	}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	if id <= 0 {
		return nil, domain.Validationf("invalid booking id %d", id)
	}

	var out models.Booking
	if err := c.do(ctx, request{
		op:     "get_booking",
		method: http.MethodGet,
		path:   bookingPath(id),
		auth:   true,
	}, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, fmt.Errorf("get_booking: %w: reply carried no booking", domain.ErrNetwork)
	}
	return &out, nil
}

// UpdateBooking edits the mutable fields of a booking. A status in the
// payload is only accepted from owner sessions.
func (c *Client) UpdateBooking(ctx context.Context, id int64, payload models.BookingUpdate) (*models.Booking, error) {
	if id <= 0 {
		return nil, domain.Validationf("invalid booking id %d", id)
	}
	if payload.IsEmpty() {
		return nil, domain.Validationf("nothing to update")
	}
	if payload.HasStatus() {
		if err := c.requireOwner("update_booking"); err != nil {
			return nil, err
		}
		st, ok := payload.Status.Get()
		if !ok {
			return nil, domain.Validationf("status cannot be cleared")
		}
		if _, ok := models.ParseStatus(string(st)); !ok {
			return nil, domain.Validationf("unknown status %q", st)
		}
	}
	if p, ok := payload.Price.Get(); ok && p < 0 {
		return nil, domain.Validationf("price must not be negative")
	}

	var out models.Booking
	if err := c.do(ctx, request{
		op:     "update_booking",
		method: http.MethodPut,
		path:   bookingPath(id),
		body:   payload,
		auth:   true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchBookingStatus moves a booking to status. Client errors of the backend
// are reported as domain.ErrInvalidTransition. The returned record has a zero
// ID when the backend acknowledged without echoing the booking.
func (c *Client) PatchBookingStatus(ctx context.Context, id int64, status models.Status) (*models.Booking, error) {
	if id <= 0 {
		return nil, domain.Validationf("invalid booking id %d", id)
	}
	st, ok := models.ParseStatus(string(status))
	if !ok {
		return nil, domain.Validationf("unknown status %q", status)
	}

	var out models.Booking
	if err := c.do(ctx, request{
		op:           "patch_booking_status",
		method:       http.MethodPatch,
		path:         bookingPath(id) + "/status",
		body:         map[string]models.Status{"status": st},
		auth:         true,
		statusChange: true,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBooking(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.Validationf("invalid booking id %d", id)
	}
	return c.do(ctx, request{
		op:     "delete_booking",
		method: http.MethodDelete,
		path:   bookingPath(id),
		auth:   true,
	}, nil)
}

func (c *Client) requireOwner(op string) error {
	s := c.session.Current()
	if s == nil {
		return domain.Authf("%s: no active session", op)
	}
	if !s.IsOwner() {
		return domain.Authf("%s: owner role required", op)
	}
	return nil
}

func bookingPath(id int64) string {
	return fmt.Sprintf("/api/bookings/%d", id)
}
