package view

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"laundrmate/internal/domain"
	"laundrmate/internal/lifecycle"
	"laundrmate/internal/models"
	"laundrmate/internal/search"

	"github.com/rs/zerolog"
)

// LaundryCount is the number of bookings made against one laundry.
type LaundryCount struct {
	Laundry  models.Laundry
	Total    int
	ByStatus map[models.Status]int
}

type laundrySet struct {
	mu   sync.RWMutex
	list []models.Laundry
}

func (s *laundrySet) set(list []models.Laundry) {
	s.mu.Lock()
	s.list = list
	s.mu.Unlock()
}

func (s *laundrySet) get() []models.Laundry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Laundry, 0, len(s.list))
	for _, l := range s.list {
		out = append(out, l.Clone())
	}
	return out
}

func (s *laundrySet) upsert(l models.Laundry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == l.ID {
			s.list[i] = l
			return
		}
	}
	s.list = append(s.list, l)
}

func (s *laundrySet) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

// OwnerDashboard shows an owner's laundries and the bookings made against
// them.
type OwnerDashboard struct {
	base
	laundries domain.LaundryGateway
	owned     laundrySet
}

func NewOwnerDashboard(c *lifecycle.Controller, laundries domain.LaundryGateway, logger *zerolog.Logger) *OwnerDashboard {
	v := &OwnerDashboard{laundries: laundries}
	v.init("owner_dashboard", c, logger)
	return v
}

// Open loads laundries first, then bookings. A laundry failure does not
// stop the bookings from loading.
func (v *OwnerDashboard) Open(ctx context.Context) error {
	v.setLoading(true)
	defer v.setLoading(false)

	list, lerr := v.laundries.ListMyLaundries(ctx)
	if lerr == nil && !v.store.Detached() {
		v.owned.set(list)
	}
	berr := v.controller.Load(ctx, v.store, lifecycle.ScopeOwned)

	if lerr != nil {
		return v.report(fmt.Errorf("load laundries: %w", lerr))
	}
	return v.report(berr)
}

func (v *OwnerDashboard) Laundries() []models.Laundry { return v.owned.get() }

func (v *OwnerDashboard) Bookings() []models.Booking { return v.store.Snapshot() }

// Counts returns one row per laundry, including laundries without bookings,
// ordered by laundry name. Bookings of unknown laundries get a row of
// their own using the embedded laundry copy.
func (v *OwnerDashboard) Counts() []LaundryCount {
	rows := make(map[int64]*LaundryCount)
	for _, l := range v.owned.get() {
		rows[l.ID] = &LaundryCount{Laundry: l, ByStatus: make(map[models.Status]int)}
	}
	for _, b := range v.store.Snapshot() {
		row, ok := rows[b.LaundryID]
		if !ok {
			l := models.Laundry{ID: b.LaundryID}
			if b.Laundry != nil {
				l = b.Laundry.Clone()
			}
			row = &LaundryCount{Laundry: l, ByStatus: make(map[models.Status]int)}
			rows[b.LaundryID] = row
		}
		row.Total++
		row.ByStatus[b.Status]++
	}

	out := make([]LaundryCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Laundry.Name != out[j].Laundry.Name {
			return out[i].Laundry.Name < out[j].Laundry.Name
		}
		return out[i].Laundry.ID < out[j].Laundry.ID
	})
	return out
}

func (v *OwnerDashboard) Total() int { return v.store.Len() }

func (v *OwnerDashboard) Confirm(ctx context.Context, id int64) (*models.Booking, error) {
	return v.transition(ctx, id, models.StatusConfirmed)
}

func (v *OwnerDashboard) Cancel(ctx context.Context, id int64) (*models.Booking, error) {
	return v.transition(ctx, id, models.StatusCancelled)
}

func (v *OwnerDashboard) CreateLaundry(ctx context.Context, in models.LaundryInput) (*models.Laundry, error) {
	l, err := v.laundries.CreateLaundry(ctx, in)
	if err != nil {
		return nil, v.report(err)
	}
	v.owned.upsert(*l)
	return l, v.report(nil)
}

func (v *OwnerDashboard) UpdateLaundry(ctx context.Context, id int64, in models.LaundryInput) (*models.Laundry, error) {
	l, err := v.laundries.UpdateLaundry(ctx, id, in)
	if err != nil {
		return nil, v.report(err)
	}
	v.owned.upsert(*l)
	return l, v.report(nil)
}

func (v *OwnerDashboard) DeleteLaundry(ctx context.Context, id int64) error {
	if err := v.laundries.DeleteLaundry(ctx, id); err != nil {
		return v.report(err)
	}
	v.owned.remove(id)
	return v.report(nil)
}

// UserDashboard shows the caller's bookings and the public catalogue.
type UserDashboard struct {
	base
	laundries domain.LaundryGateway
	catalogue laundrySet
}

func NewUserDashboard(c *lifecycle.Controller, laundries domain.LaundryGateway, logger *zerolog.Logger) *UserDashboard {
	v := &UserDashboard{laundries: laundries}
	v.init("user_dashboard", c, logger)
	return v
}

func (v *UserDashboard) Open(ctx context.Context) error {
	v.setLoading(true)
	defer v.setLoading(false)

	list, lerr := v.laundries.ListLaundries(ctx)
	if lerr == nil && !v.store.Detached() {
		v.catalogue.set(list)
	}
	berr := v.controller.Load(ctx, v.store, lifecycle.ScopeMine)

	if lerr != nil {
		return v.report(fmt.Errorf("load laundries: %w", lerr))
	}
	return v.report(berr)
}

func (v *UserDashboard) Bookings() []models.Booking { return v.store.Snapshot() }

// Laundries returns the catalogue entries matching text.
func (v *UserDashboard) Laundries(text string) []models.Laundry {
	return search.Laundries(v.catalogue.get(), text)
}

// Upcoming returns bookings that are not cancelled, soonest first.
// Bookings without a date go last.
func (v *UserDashboard) Upcoming() []models.Booking {
	var out []models.Booking
	for _, b := range v.store.Snapshot() {
		if b.Status != models.StatusCancelled {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ScheduledAt, out[j].ScheduledAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
	return out
}

func (v *UserDashboard) Cancel(ctx context.Context, id int64) (*models.Booking, error) {
	return v.transition(ctx, id, models.StatusCancelled)
}

func (v *UserDashboard) Delete(ctx context.Context, id int64) error {
	return v.remove(ctx, id)
}
