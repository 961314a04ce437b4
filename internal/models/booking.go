package models

import "time"

type Booking struct {
	ID          int64      `json:"id"`
	LaundryID   int64      `json:"laundryId"`
	UserID      int64      `json:"userId"`
	Status      Status     `json:"status"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	ServiceType *string    `json:"serviceType,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Price       *Decimal   `json:"price,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitzero"`
	UpdatedAt   time.Time  `json:"updatedAt,omitzero"`

	// Laundry is the server-embedded display copy; the client never writes it.
	Laundry *Laundry `json:"Laundry,omitempty"`
}

// Clone returns a deep copy so that callers cannot alias store internals.
func (b Booking) Clone() Booking {
	out := b
	out.ScheduledAt = clonePtr(b.ScheduledAt)
	out.ServiceType = clonePtr(b.ServiceType)
	out.Notes = clonePtr(b.Notes)
	out.Price = clonePtr(b.Price)
	if b.Laundry != nil {
		l := b.Laundry.Clone()
		out.Laundry = &l
	}
	return out
}

// BookingCreate is the payload of POST /api/bookings.
type BookingCreate struct {
	LaundryID   int64            `json:"laundryId"`
	ScheduledAt Field[time.Time] `json:"scheduledAt,omitzero"`
	ServiceType Field[string]    `json:"serviceType,omitzero"`
	Notes       Field[string]    `json:"notes,omitzero"`
	Price       Field[Decimal]   `json:"price,omitzero"`
}

// BookingUpdate is the payload of PUT /api/bookings/:id and the shape of an
// in-memory patch. Status is honoured only for owner sessions.
type BookingUpdate struct {
	ScheduledAt Field[time.Time] `json:"scheduledAt,omitzero"`
	ServiceType Field[string]    `json:"serviceType,omitzero"`
	Notes       Field[string]    `json:"notes,omitzero"`
	Price       Field[Decimal]   `json:"price,omitzero"`
	Status      Field[Status]    `json:"status,omitzero"`
}

// StatusUpdate builds a patch that only changes the status.
func StatusUpdate(s Status) BookingUpdate {
	return BookingUpdate{Status: Set(s)}
}

// IsEmpty reports whether the update carries no field at all.
func (u BookingUpdate) IsEmpty() bool {
	return !u.ScheduledAt.Present() && !u.ServiceType.Present() &&
		!u.Notes.Present() && !u.Price.Present() && !u.Status.Present()
}

// HasStatus reports whether the update tries to change the status.
func (u BookingUpdate) HasStatus() bool {
	return u.Status.Present()
}

// ApplyTo shallow-merges the present fields into b.
// A null status is ignored: status is never cleared.
func (u BookingUpdate) ApplyTo(b *Booking) {
	u.ScheduledAt.Assign(&b.ScheduledAt)
	u.ServiceType.Assign(&b.ServiceType)
	u.Notes.Assign(&b.Notes)
	u.Price.Assign(&b.Price)
	if s, ok := u.Status.Get(); ok {
		b.Status = s
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
