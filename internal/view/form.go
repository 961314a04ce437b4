package view

import (
	"context"
	"strconv"
	"strings"
	"time"

	"laundrmate/internal/domain"
	"laundrmate/internal/lifecycle"
	"laundrmate/internal/models"

	"github.com/rs/zerolog"
)

// FormInput is the raw text of the booking form. Empty strings mean
// "not given".
type FormInput struct {
	LaundryID   string
	ScheduledAt string
	ServiceType string
	Notes       string
	Price       string
}

// scheduleLayouts are accepted for ScheduledAt, most specific first.
var scheduleLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// BookingForm creates a booking, or edits one when opened with an id.
type BookingForm struct {
	base
	editID int64
}

func NewBookingForm(c *lifecycle.Controller, logger *zerolog.Logger) *BookingForm {
	v := &BookingForm{}
	v.init("booking_form", c, logger)
	return v
}

// NewEditForm edits booking id.
func NewEditForm(c *lifecycle.Controller, id int64, logger *zerolog.Logger) *BookingForm {
	v := &BookingForm{editID: id}
	v.init("booking_form", c, logger)
	return v
}

func (v *BookingForm) Editing() bool { return v.editID > 0 }

// ServiceOptions are the labels the form offers.
func (v *BookingForm) ServiceOptions() []string {
	return append([]string(nil), models.ServiceOptions...)
}

// Submit validates in and sends it.
func (v *BookingForm) Submit(ctx context.Context, in FormInput) (*models.Booking, error) {
	if v.Editing() {
		u, err := ParseUpdate(in)
		if err != nil {
			return nil, v.report(err)
		}
		b, err := v.controller.Edit(ctx, v.store, v.editID, u)
		return b, v.report(err)
	}

	payload, err := ParseCreate(in)
	if err != nil {
		return nil, v.report(err)
	}
	b, err := v.controller.Create(ctx, v.store, payload)
	return b, v.report(err)
}

// ParseCreate turns form text into a create payload.
func ParseCreate(in FormInput) (models.BookingCreate, error) {
	var out models.BookingCreate

	id, err := strconv.ParseInt(strings.TrimSpace(in.LaundryID), 10, 64)
	if err != nil || id <= 0 {
		return out, domain.Validationf("choose a laundry")
	}
	out.LaundryID = id

	if out.ScheduledAt, err = parseSchedule(in.ScheduledAt, false); err != nil {
		return out, err
	}
	if out.ServiceType, err = parseService(in.ServiceType, false); err != nil {
		return out, err
	}
	out.Notes = parseText(in.Notes, false)
	if out.Price, err = parsePrice(in.Price, false); err != nil {
		return out, err
	}
	return out, nil
}

// ParseUpdate turns form text into an edit payload. A single "-" clears a
// field.
func ParseUpdate(in FormInput) (models.BookingUpdate, error) {
	var (
		out models.BookingUpdate
		err error
	)
	if out.ScheduledAt, err = parseSchedule(in.ScheduledAt, true); err != nil {
		return out, err
	}
	if out.ServiceType, err = parseService(in.ServiceType, true); err != nil {
		return out, err
	}
	out.Notes = parseText(in.Notes, true)
	if out.Price, err = parsePrice(in.Price, true); err != nil {
		return out, err
	}
	return out, nil
}

const clearMarker = "-"

func parseSchedule(raw string, clearable bool) (models.Field[time.Time], error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return models.Field[time.Time]{}, nil
	case clearable && raw == clearMarker:
		return models.Null[time.Time](), nil
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return models.Set(t), nil
		}
	}
	return models.Field[time.Time]{}, domain.Validationf("invalid date %q", raw)
}

func parseService(raw string, clearable bool) (models.Field[string], error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return models.Field[string]{}, nil
	case clearable && raw == clearMarker:
		return models.Null[string](), nil
	}
	for _, opt := range models.ServiceOptions {
		if strings.EqualFold(opt, raw) {
			return models.Set(opt), nil
		}
	}
	return models.Field[string]{}, domain.Validationf("unknown service %q", raw)
}

func parseText(raw string, clearable bool) models.Field[string] {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return models.Field[string]{}
	case clearable && trimmed == clearMarker:
		return models.Null[string]()
	}
	return models.Set(trimmed)
}

func parsePrice(raw string, clearable bool) (models.Field[models.Decimal], error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return models.Field[models.Decimal]{}, nil
	case clearable && raw == clearMarker:
		return models.Null[models.Decimal](), nil
	}
	d, err := models.ParseDecimal(raw)
	if err != nil {
		return models.Field[models.Decimal]{}, domain.Validationf("invalid price %q", raw)
	}
	if d < 0 {
		return models.Field[models.Decimal]{}, domain.Validationf("price must not be negative")
	}
	return models.Set(d), nil
}
