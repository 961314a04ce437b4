package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"laundrmate/internal/domain"
	"laundrmate/internal/lifecycle"
	"laundrmate/internal/models"
	"laundrmate/internal/search"
	"laundrmate/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory stand-in for the REST API.
type fakeBackend struct {
	mu        sync.Mutex
	bookings  map[int64]models.Booking
	laundries []models.Laundry
	nextID    int64
	failPatch error
}

func newFakeBackend(list ...models.Booking) *fakeBackend {
	f := &fakeBackend{bookings: make(map[int64]models.Booking), nextID: 100}
	for _, b := range list {
		f.bookings[b.ID] = b
	}
	return f
}

func (f *fakeBackend) sorted() []models.Booking {
	out := make([]models.Booking, 0, len(f.bookings))
	for id := int64(0); id <= f.nextID; id++ {
		if b, ok := f.bookings[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (f *fakeBackend) CreateBooking(_ context.Context, p models.BookingCreate) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b := models.Booking{ID: f.nextID, LaundryID: p.LaundryID, Status: models.StatusPending,
		ServiceType: p.ServiceType.Ptr(), Notes: p.Notes.Ptr(), Price: p.Price.Ptr(), ScheduledAt: p.ScheduledAt.Ptr()}
	f.bookings[b.ID] = b
	return &b, nil
}

func (f *fakeBackend) ListMyBookings(context.Context) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(), nil
}

func (f *fakeBackend) ListOwnedBookings(context.Context) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(), nil
}

func (f *fakeBackend) GetBooking(_ context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.NewAPIError("get_booking", 404, "Booking not found", false)
	}
	return &b, nil
}

func (f *fakeBackend) UpdateBooking(_ context.Context, id int64, u models.BookingUpdate) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.NewAPIError("update_booking", 404, "", false)
	}
	u.ApplyTo(&b)
	f.bookings[id] = b
	return &b, nil
}

func (f *fakeBackend) PatchBookingStatus(_ context.Context, id int64, s models.Status) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPatch != nil {
		return nil, f.failPatch
	}
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.NewAPIError("patch_booking_status", 404, "", true)
	}
	b.Status = s
	f.bookings[id] = b
	return &b, nil
}

func (f *fakeBackend) DeleteBooking(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[id]; !ok {
		return domain.NewAPIError("delete_booking", 404, "", false)
	}
	delete(f.bookings, id)
	return nil
}

func (f *fakeBackend) ListLaundries(context.Context) ([]models.Laundry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Laundry(nil), f.laundries...), nil
}

func (f *fakeBackend) ListMyLaundries(ctx context.Context) ([]models.Laundry, error) {
	return f.ListLaundries(ctx)
}

func (f *fakeBackend) CreateLaundry(_ context.Context, in models.LaundryInput) (*models.Laundry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := models.Laundry{ID: int64(len(f.laundries) + 1), Name: in.Name, Description: in.Description}
	f.laundries = append(f.laundries, l)
	return &l, nil
}

func (f *fakeBackend) UpdateLaundry(_ context.Context, id int64, in models.LaundryInput) (*models.Laundry, error) {
	l := models.Laundry{ID: id, Name: in.Name}
	return &l, nil
}

func (f *fakeBackend) DeleteLaundry(context.Context, int64) error { return nil }

var (
	owner = &models.Session{Token: "o", Role: models.RoleOwner, UserID: 1}
	user  = &models.Session{Token: "u", Role: models.RoleUser, UserID: 2}
)

func controller(f *fakeBackend, s *models.Session) *lifecycle.Controller {
	return lifecycle.NewController(f, session.Static{Session: s}, nil,
		lifecycle.Options{AllowReopen: true, SerializePerBooking: true}, nil)
}

func strp(s string) *string { return &s }

func seed() *fakeBackend {
	return newFakeBackend(
		models.Booking{ID: 1, LaundryID: 10, UserID: 2, Status: models.StatusPending, ServiceType: strp("Dry Clean"),
			Laundry: &models.Laundry{ID: 10, Name: "Sunny Suds"}},
		models.Booking{ID: 2, LaundryID: 20, UserID: 2, Status: models.StatusConfirmed,
			Laundry: &models.Laundry{ID: 20, Name: "Bubble Bros"}},
		models.Booking{ID: 3, LaundryID: 10, UserID: 3, Status: models.StatusCancelled},
	)
}

func TestBookingsList_FilterAndTransition(t *testing.T) {
	ctx := context.Background()
	f := seed()
	v := NewBookingsList(controller(f, owner), lifecycle.ScopeOwned, nil)
	require.NoError(t, v.Open(ctx))
	assert.Len(t, v.Visible(), 3)

	v.SetQuery(search.Query{LaundryID: 10})
	assert.Len(t, v.Visible(), 2)

	v.SetQuery(search.Query{Text: "dry", Status: "pending"})
	rows := v.Visible()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)

	_, err := v.Confirm(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, v.Visible())
	assert.Empty(t, v.Notice())

	v.SetQuery(search.Query{Status: "confirmed"})
	assert.Len(t, v.Visible(), 2)
}

func TestBookingsList_FailureSetsNotice(t *testing.T) {
	ctx := context.Background()
	f := seed()
	f.failPatch = domain.NewAPIError("patch_booking_status", 409, "", true)

	v := NewBookingsList(controller(f, owner), lifecycle.ScopeOwned, nil)
	require.NoError(t, v.Open(ctx))

	_, err := v.Cancel(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, "This status change is not allowed.", v.Notice())

	b, ok := v.Store().Get(2)
	require.True(t, ok)
	assert.Equal(t, models.StatusConfirmed, b.Status)
}

func TestViewsAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := seed()
	c := controller(f, owner)

	list := NewBookingsList(c, lifecycle.ScopeOwned, nil)
	detail := NewBookingDetail(c, 1, nil)
	require.NoError(t, list.Open(ctx))
	require.NoError(t, detail.Open(ctx))

	_, err := detail.Transition(ctx, models.StatusConfirmed)
	require.NoError(t, err)

	inDetail, _ := detail.Booking()
	inList, _ := list.Store().Get(1)
	assert.Equal(t, models.StatusConfirmed, inDetail.Status)
	assert.Equal(t, models.StatusPending, inList.Status)

	require.NoError(t, list.Open(ctx))
	inList, _ = list.Store().Get(1)
	assert.Equal(t, models.StatusConfirmed, inList.Status)
}

func TestBookingDetail(t *testing.T) {
	ctx := context.Background()
	f := seed()
	v := NewBookingDetail(controller(f, user), 1, nil)

	require.NoError(t, v.Open(ctx))
	assert.Equal(t, []models.Status{models.StatusCancelled}, v.Allowed())

	require.NoError(t, v.Delete(ctx))
	_, ok := v.Booking()
	assert.False(t, ok)

	missing := NewBookingDetail(controller(f, user), 999, nil)
	err := missing.Open(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "This booking no longer exists.", missing.Notice())
}

func TestClosedViewIgnoresLateMutations(t *testing.T) {
	ctx := context.Background()
	f := seed()
	v := NewBookingsList(controller(f, owner), lifecycle.ScopeOwned, nil)
	require.NoError(t, v.Open(ctx))
	v.Close()

	_, err := v.Confirm(ctx, 1)
	require.NoError(t, err)
	b, _ := v.Store().Get(1)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, models.StatusConfirmed, f.bookings[1].Status)
}

func TestOwnerDashboard_Counts(t *testing.T) {
	ctx := context.Background()
	f := seed()
	f.laundries = []models.Laundry{{ID: 10, Name: "Sunny Suds"}, {ID: 30, Name: "Aqua"}}

	v := NewOwnerDashboard(controller(f, owner), f, nil)
	require.NoError(t, v.Open(ctx))

	counts := v.Counts()
	require.Len(t, counts, 3)
	assert.Equal(t, "Aqua", counts[0].Laundry.Name)
	assert.Zero(t, counts[0].Total)
	assert.Equal(t, "Bubble Bros", counts[1].Laundry.Name)
	assert.Equal(t, 1, counts[1].Total)
	assert.Equal(t, "Sunny Suds", counts[2].Laundry.Name)
	assert.Equal(t, 2, counts[2].Total)
	assert.Equal(t, 1, counts[2].ByStatus[models.StatusCancelled])
	assert.Equal(t, 3, v.Total())

	l, err := v.CreateLaundry(ctx, models.LaundryInput{Name: "New Spot"})
	require.NoError(t, err)
	assert.Len(t, v.Laundries(), 3)
	require.NoError(t, v.DeleteLaundry(ctx, l.ID))
	assert.Len(t, v.Laundries(), 2)
}

func TestUserDashboard(t *testing.T) {
	ctx := context.Background()
	f := seed()
	f.laundries = []models.Laundry{{ID: 10, Name: "Sunny Suds"}, {ID: 20, Name: "Bubble Bros", Description: "eco"}}

	later := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	sooner := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	f.bookings[1] = func() models.Booking { b := f.bookings[1]; b.ScheduledAt = &later; return b }()
	f.bookings[2] = func() models.Booking { b := f.bookings[2]; b.ScheduledAt = &sooner; return b }()

	v := NewUserDashboard(controller(f, user), f, nil)
	require.NoError(t, v.Open(ctx))

	assert.Len(t, v.Bookings(), 3)
	up := v.Upcoming()
	require.Len(t, up, 2)
	assert.Equal(t, int64(2), up[0].ID)
	assert.Equal(t, int64(1), up[1].ID)

	found := v.Laundries("ECO")
	require.Len(t, found, 1)
	assert.Equal(t, int64(20), found[0].ID)
}

func TestBookingForm_Create(t *testing.T) {
	ctx := context.Background()
	f := seed()
	form := NewBookingForm(controller(f, user), nil)

	b, err := form.Submit(ctx, FormInput{LaundryID: "7", ServiceType: "ironing", Price: "12.50", ScheduledAt: "2026-05-01 09:30"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), b.LaundryID)
	assert.Equal(t, "Ironing", *b.ServiceType)
	assert.InDelta(t, 12.5, b.Price.Float64(), 0.001)
	require.NotNil(t, b.ScheduledAt)
	assert.Equal(t, 30, b.ScheduledAt.Minute())

	_, err = form.Submit(ctx, FormInput{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "Please check the booking details and try again.", form.Notice())
}

func TestBookingForm_Edit(t *testing.T) {
	ctx := context.Background()
	f := seed()
	form := NewEditForm(controller(f, user), 1, nil)
	require.True(t, form.Editing())

	b, err := form.Submit(ctx, FormInput{Notes: "no softener", ServiceType: "-"})
	require.NoError(t, err)
	assert.Equal(t, "no softener", *b.Notes)
	assert.Nil(t, b.ServiceType)
	assert.Equal(t, models.StatusPending, b.Status)
}

func TestParseCreate(t *testing.T) {
	tests := []struct {
		name    string
		in      FormInput
		wantErr bool
	}{
		{"Minimal", FormInput{LaundryID: "3"}, false},
		{"MissingLaundry", FormInput{}, true},
		{"BadLaundry", FormInput{LaundryID: "abc"}, true},
		{"NegativePrice", FormInput{LaundryID: "3", Price: "-2"}, true},
		{"BadPrice", FormInput{LaundryID: "3", Price: "cheap"}, true},
		{"UnknownService", FormInput{LaundryID: "3", ServiceType: "Starching"}, true},
		{"BadDate", FormInput{LaundryID: "3", ScheduledAt: "tomorrow"}, true},
		{"RFC3339Date", FormInput{LaundryID: "3", ScheduledAt: "2026-05-01T09:30:00Z"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCreate(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseUpdate_AbsentFieldsStayAbsent(t *testing.T) {
	u, err := ParseUpdate(FormInput{Notes: "x"})
	require.NoError(t, err)
	assert.True(t, u.Notes.Present())
	assert.False(t, u.Price.Present())
	assert.False(t, u.ScheduledAt.Present())
	assert.False(t, u.HasStatus())

	u, err = ParseUpdate(FormInput{Price: "-"})
	require.NoError(t, err)
	assert.True(t, u.Price.IsNull())
}
