// Package search filters booking and laundry snapshots for display.
// All functions are pure: inputs are never modified and source order is kept.
package search

import (
	"strconv"
	"strings"

	"laundrmate/internal/models"
)

// Query selects bookings. Zero values match everything.
type Query struct {
	Text      string
	Status    string
	LaundryID int64
}

// Bookings returns the records of snapshot that match q, in source order.
func Bookings(snapshot []models.Booking, q Query) []models.Booking {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	status := strings.ToLower(strings.TrimSpace(q.Status))

	out := make([]models.Booking, 0, len(snapshot))
	for _, b := range snapshot {
		if status != "" && status != models.StatusAll && strings.ToLower(string(b.Status)) != status {
			continue
		}
		if q.LaundryID != 0 && b.LaundryID != q.LaundryID {
			continue
		}
		if text != "" && !strings.Contains(bookingHaystack(b), text) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Laundries returns the laundries whose name, description, address or
// coordinates contain text.
func Laundries(list []models.Laundry, text string) []models.Laundry {
	text = strings.ToLower(strings.TrimSpace(text))

	out := make([]models.Laundry, 0, len(list))
	for _, l := range list {
		if text != "" && !strings.Contains(laundryHaystack(l), text) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func bookingHaystack(b models.Booking) string {
	parts := []string{strconv.FormatInt(b.ID, 10), string(b.Status)}
	if b.ServiceType != nil {
		parts = appendText(parts, *b.ServiceType)
	}
	if b.Notes != nil {
		parts = appendText(parts, *b.Notes)
	}
	if b.Laundry != nil {
		parts = appendText(parts, b.Laundry.Name)
		if b.Laundry.Address != nil {
			parts = appendText(parts, *b.Laundry.Address)
		}
		parts = appendText(parts, b.Laundry.Description)
		parts = appendCoord(parts, b.Laundry.Lat)
		parts = appendCoord(parts, b.Laundry.Lng)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func laundryHaystack(l models.Laundry) string {
	parts := appendText(nil, l.Name)
	parts = appendText(parts, l.Description)
	if l.Address != nil {
		parts = appendText(parts, *l.Address)
	}
	parts = appendCoord(parts, l.Lat)
	parts = appendCoord(parts, l.Lng)
	return strings.ToLower(strings.Join(parts, " "))
}

func appendText(parts []string, v string) []string {
	if v == "" {
		return parts
	}
	return append(parts, v)
}

func appendCoord(parts []string, d *models.Decimal) []string {
	if d == nil {
		return parts
	}
	return append(parts, strconv.FormatFloat(d.Float64(), 'f', -1, 64))
}
