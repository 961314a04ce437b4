package domain

import (
	"context"

	"laundrmate/internal/models"
)

// BookingGateway is the remote booking API.
type BookingGateway interface {
	CreateBooking(ctx context.Context, payload models.BookingCreate) (*models.Booking, error)
	ListMyBookings(ctx context.Context) ([]models.Booking, error)
	ListOwnedBookings(ctx context.Context) ([]models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBooking(ctx context.Context, id int64, payload models.BookingUpdate) (*models.Booking, error)
	PatchBookingStatus(ctx context.Context, id int64, status models.Status) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

// LaundryGateway is the remote laundry catalogue.
type LaundryGateway interface {
	ListLaundries(ctx context.Context) ([]models.Laundry, error)
	ListMyLaundries(ctx context.Context) ([]models.Laundry, error)
	CreateLaundry(ctx context.Context, in models.LaundryInput) (*models.Laundry, error)
	UpdateLaundry(ctx context.Context, id int64, in models.LaundryInput) (*models.Laundry, error)
	DeleteLaundry(ctx context.Context, id int64) error
}

// SessionReader gives read access to the current identity.
// Current returns nil when nobody is logged in.
type SessionReader interface {
	Current() *models.Session
}

// SessionRepository persists a session between client runs.
type SessionRepository interface {
	GetSession(ctx context.Context, key string) (*models.Session, error)
	SetSession(ctx context.Context, key string, session *models.Session) error
	ClearSession(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
