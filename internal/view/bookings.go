package view

import (
	"context"
	"sync"

	"laundrmate/internal/lifecycle"
	"laundrmate/internal/models"
	"laundrmate/internal/search"

	"github.com/rs/zerolog"
)

// BookingsList is the filterable list of "mine" or "owned" bookings.
type BookingsList struct {
	base
	scope lifecycle.Scope

	qmu   sync.RWMutex
	query search.Query
}

func NewBookingsList(c *lifecycle.Controller, scope lifecycle.Scope, logger *zerolog.Logger) *BookingsList {
	v := &BookingsList{scope: scope}
	v.init("bookings_"+string(scope), c, logger)
	return v
}

func (v *BookingsList) Scope() lifecycle.Scope { return v.scope }

// Open loads the list. It can be called again to refresh.
func (v *BookingsList) Open(ctx context.Context) error {
	return v.load(ctx, v.scope)
}

func (v *BookingsList) SetQuery(q search.Query) {
	v.qmu.Lock()
	v.query = q
	v.qmu.Unlock()
}

func (v *BookingsList) Query() search.Query {
	v.qmu.RLock()
	defer v.qmu.RUnlock()
	return v.query
}

// Visible returns the filtered rows to render.
func (v *BookingsList) Visible() []models.Booking {
	return search.Bookings(v.store.Snapshot(), v.Query())
}

func (v *BookingsList) Confirm(ctx context.Context, id int64) (*models.Booking, error) {
	return v.transition(ctx, id, models.StatusConfirmed)
}

func (v *BookingsList) Cancel(ctx context.Context, id int64) (*models.Booking, error) {
	return v.transition(ctx, id, models.StatusCancelled)
}

func (v *BookingsList) Reopen(ctx context.Context, id int64) (*models.Booking, error) {
	return v.transition(ctx, id, models.StatusPending)
}

func (v *BookingsList) Delete(ctx context.Context, id int64) error {
	return v.remove(ctx, id)
}

// BookingDetail shows a single booking.
type BookingDetail struct {
	base
	id int64
}

func NewBookingDetail(c *lifecycle.Controller, id int64, logger *zerolog.Logger) *BookingDetail {
	v := &BookingDetail{id: id}
	v.init("booking_detail", c, logger)
	return v
}

func (v *BookingDetail) Open(ctx context.Context) error {
	v.setLoading(true)
	defer v.setLoading(false)
	_, err := v.controller.LoadOne(ctx, v.store, v.id)
	return v.report(err)
}

// Booking returns the shown record; false once it was deleted.
func (v *BookingDetail) Booking() (models.Booking, bool) {
	return v.store.Get(v.id)
}

func (v *BookingDetail) Transition(ctx context.Context, to models.Status) (*models.Booking, error) {
	return v.transition(ctx, v.id, to)
}

func (v *BookingDetail) Delete(ctx context.Context) error {
	return v.remove(ctx, v.id)
}

func (v *BookingDetail) Allowed() []models.Status {
	return v.Actions(v.id)
}
