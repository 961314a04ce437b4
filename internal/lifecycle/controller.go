package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"laundrmate/internal/domain"
	"laundrmate/internal/events"
	"laundrmate/internal/metrics"
	"laundrmate/internal/models"
	"laundrmate/internal/store"

	"github.com/rs/zerolog"
)

// Scope selects which booking list a view loads.
type Scope string

const (
	ScopeMine  Scope = "mine"
	ScopeOwned Scope = "owned"
)

type Options struct {
	AllowReopen         bool
	SerializePerBooking bool
	// RefetchTimeout bounds the re-read after a failed optimistic mutation.
	RefetchTimeout time.Duration
}

const defaultRefetchTimeout = 10 * time.Second

// errNoRecord reports a successful create whose reply did not carry the booking.
var errNoRecord = errors.New("reply carried no booking")

// Controller is shared by every view. Each call names the store of the view
// it acts for; stores of other views are not touched.
type Controller struct {
	gateway  domain.BookingGateway
	session  domain.SessionReader
	eventBus domain.EventPublisher
	policy   Policy
	serial   bool
	refetch  time.Duration
	logger   *zerolog.Logger

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewController(gateway domain.BookingGateway, session domain.SessionReader, eventBus domain.EventPublisher, opts Options, logger *zerolog.Logger) *Controller {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.RefetchTimeout <= 0 {
		opts.RefetchTimeout = defaultRefetchTimeout
	}
	return &Controller{
		gateway:  gateway,
		session:  session,
		eventBus: eventBus,
		policy:   Policy{AllowReopen: opts.AllowReopen},
		serial:   opts.SerializePerBooking,
		refetch:  opts.RefetchTimeout,
		logger:   logger,
		inFlight: make(map[int64]struct{}),
	}
}

func (c *Controller) Policy() Policy { return c.policy }

// Session returns the current identity or nil.
func (c *Controller) Session() *models.Session { return c.session.Current() }

// Load fetches the list of scope into st. Responses that lose the race to a
// newer load, or arrive after st is detached, are dropped.
func (c *Controller) Load(ctx context.Context, st *store.Collection, scope Scope) error {
	st = orScratch(st)
	ticket := st.BeginLoad()

	var (
		list []models.Booking
		err  error
	)
	switch scope {
	case ScopeOwned:
		list, err = c.gateway.ListOwnedBookings(ctx)
	case ScopeMine:
		list, err = c.gateway.ListMyBookings(ctx)
	default:
		return fmt.Errorf("unknown scope %q", scope)
	}
	if err != nil {
		return fmt.Errorf("load %s bookings: %w", scope, err)
	}

	if !st.CommitLoad(ticket, list) {
		c.logger.Debug().Str("view", st.Name()).Msg("discarded stale booking list")
	}
	return nil
}

// LoadOne fetches a single booking into st, replacing its contents.
func (c *Controller) LoadOne(ctx context.Context, st *store.Collection, id int64) (*models.Booking, error) {
	st = orScratch(st)
	ticket := st.BeginLoad()
	b, err := c.gateway.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %d: %w", id, err)
	}
	st.CommitLoad(ticket, []models.Booking{*b})
	return b, nil
}

// Create submits a new booking. The store only changes after the backend
// accepted it.
func (c *Controller) Create(ctx context.Context, st *store.Collection, payload models.BookingCreate) (*models.Booking, error) {
	st = orScratch(st)
	s := c.session.Current()
	if s == nil {
		return nil, domain.Authf("sign in to book")
	}

	b, err := c.gateway.CreateBooking(ctx, payload)
	if err != nil {
		c.logger.Warn().Err(err).Int64("laundry_id", payload.LaundryID).Msg("create booking failed")
		return nil, fmt.Errorf("create booking: %w", err)
	}
	if b == nil || b.ID <= 0 {
		c.logger.Warn().Int64("laundry_id", payload.LaundryID).Msg("create booking reply carried no booking")
		return nil, fmt.Errorf("create booking: %w: %w", domain.ErrNetwork, errNoRecord)
	}
	st.Upsert(*b)

	c.publish(events.EventBookingCreated, *b, "", "create", s, nil)
	return b, nil
}

// Edit changes the non-status fields of a booking. Not optimistic.
func (c *Controller) Edit(ctx context.Context, st *store.Collection, id int64, u models.BookingUpdate) (*models.Booking, error) {
	st = orScratch(st)
	s := c.session.Current()
	current, err := c.lookup(ctx, st, id)
	if err != nil {
		return nil, err
	}
	if err := c.policy.CheckEdit(s, current, u); err != nil {
		return nil, err
	}

	updated, err := c.gateway.UpdateBooking(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("edit booking %d: %w", id, err)
	}

	local := current.Clone()
	u.ApplyTo(&local)
	merged, ok := settle(local, updated, id)
	if !ok {
		merged = c.reread(ctx, id, local)
	}
	st.Upsert(merged)

	c.publish(events.EventBookingUpdated, merged, "", "edit", s, nil)
	return &merged, nil
}

func (c *Controller) Confirm(ctx context.Context, st *store.Collection, id int64) (*models.Booking, error) {
	return c.Transition(ctx, st, id, models.StatusConfirmed)
}

func (c *Controller) Cancel(ctx context.Context, st *store.Collection, id int64) (*models.Booking, error) {
	return c.Transition(ctx, st, id, models.StatusCancelled)
}

func (c *Controller) Reopen(ctx context.Context, st *store.Collection, id int64) (*models.Booking, error) {
	return c.Transition(ctx, st, id, models.StatusPending)
}

// Transition moves a booking to status to. The store shows the new status
// before the backend answers; a failure restores the server's record.
func (c *Controller) Transition(ctx context.Context, st *store.Collection, id int64, to models.Status) (*models.Booking, error) {
	st = orScratch(st)
	op := "transition"
	s := c.session.Current()
	if s == nil {
		return nil, domain.Authf("sign in to change a booking")
	}

	current, err := c.lookup(ctx, st, id)
	if err != nil {
		return nil, err
	}
	if err := c.policy.CheckTransition(s, current, to); err != nil {
		return nil, err
	}

	if !c.acquire(id) {
		return nil, fmt.Errorf("booking %d: %w", id, domain.ErrInFlight)
	}
	defer c.release(id)

	st.Patch(id, models.StatusUpdate(to))

	updated, err := c.gateway.PatchBookingStatus(ctx, id, to)
	if err != nil {
		c.rollback(ctx, st, id, op, current, err)
		return nil, fmt.Errorf("set booking %d to %s: %w", id, to, err)
	}

	local := current.Clone()
	local.Status = to
	merged, _ := settle(local, updated, id)
	st.Upsert(merged)

	c.publish(events.EventBookingStatusChanged, merged, current.Status, op, s, nil)
	return &merged, nil
}

// Delete removes a booking optimistically.
func (c *Controller) Delete(ctx context.Context, st *store.Collection, id int64) error {
	st = orScratch(st)
	op := "delete"
	s := c.session.Current()
	if s == nil {
		return domain.Authf("sign in to delete a booking")
	}

	current, err := c.lookup(ctx, st, id)
	if err != nil {
		return err
	}
	if err := c.policy.CheckDelete(s, current); err != nil {
		return err
	}

	if !c.acquire(id) {
		return fmt.Errorf("booking %d: %w", id, domain.ErrInFlight)
	}
	defer c.release(id)

	st.Remove(id)

	if err := c.gateway.DeleteBooking(ctx, id); err != nil {
		c.rollback(ctx, st, id, op, current, err)
		return fmt.Errorf("delete booking %d: %w", id, err)
	}

	c.publish(events.EventBookingDeleted, current, current.Status, op, s, nil)
	return nil
}

// lookup returns the store copy of id, fetching it when the view has not
// loaded it yet.
func (c *Controller) lookup(ctx context.Context, st *store.Collection, id int64) (models.Booking, error) {
	if b, ok := st.Get(id); ok {
		return b, nil
	}
	b, err := c.gateway.GetBooking(ctx, id)
	if err != nil {
		return models.Booking{}, fmt.Errorf("load booking %d: %w", id, err)
	}
	st.Upsert(*b)
	return *b, nil
}

// rollback re-reads the record after a failed optimistic mutation. When the
// re-read fails too, the record is dropped from the view.
func (c *Controller) rollback(ctx context.Context, st *store.Collection, id int64, op string, previous models.Booking, cause error) {
	metrics.IncRollback(op)

	// The caller's deadline may be what failed the mutation.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refetch)
	defer cancel()

	fresh, err := c.gateway.GetBooking(rctx, id)
	if err != nil {
		st.Remove(id)
		c.logger.Warn().Err(err).Int64("booking_id", id).Str("op", op).Msg("re-fetch after failed mutation failed, record removed")
	} else {
		st.Upsert(reconcile(previous, *fresh))
	}

	c.logger.Error().Err(cause).Int64("booking_id", id).Str("op", op).Msg("optimistic mutation rolled back")
	c.publish(events.EventBookingRolledBack, previous, previous.Status, op, c.session.Current(), cause)
}

func (c *Controller) acquire(id int64) bool {
	if !c.serial {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return false
	}
	c.inFlight[id] = struct{}{}
	return true
}

func (c *Controller) release(id int64) {
	if !c.serial {
		return
	}
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}

func (c *Controller) publish(eventType string, b models.Booking, previous models.Status, op string, s *models.Session, cause error) {
	if c.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:      b.ID,
		LaundryID:      b.LaundryID,
		UserID:         b.UserID,
		Status:         string(b.Status),
		PreviousStatus: string(previous),
		Op:             op,
	}
	if s != nil {
		payload.ChangedBy = string(s.Role)
	}
	if cause != nil {
		payload.Error = cause.Error()
		payload.Notice = domain.Notice(cause)
	}

	if err := c.eventBus.PublishJSON(eventType, payload); err != nil {
		c.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}

// reread fetches id after a mutation whose reply held no record, keeping
// fallback when the read fails.
func (c *Controller) reread(ctx context.Context, id int64, fallback models.Booking) models.Booking {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refetch)
	defer cancel()

	fresh, err := c.gateway.GetBooking(rctx, id)
	if err != nil || fresh == nil || fresh.ID != id {
		c.logger.Debug().Err(err).Int64("booking_id", id).Msg("re-read after mutation failed, keeping local copy")
		return fallback
	}
	return reconcile(fallback, *fresh)
}

// settle picks the record to keep after a successful mutation of id. A reply
// that is not that booking leaves local in place.
func settle(local models.Booking, reply *models.Booking, id int64) (models.Booking, bool) {
	if reply == nil || reply.ID != id {
		return local, false
	}
	return reconcile(local, *reply), true
}

// orScratch stands in a throwaway collection for callers without a view.
func orScratch(st *store.Collection) *store.Collection {
	if st == nil {
		return store.New("scratch")
	}
	return st
}

// reconcile takes the server record but keeps the embedded laundry when the
// response left it out.
func reconcile(local, server models.Booking) models.Booking {
	out := server.Clone()
	if out.Laundry == nil && local.Laundry != nil {
		l := local.Laundry.Clone()
		out.Laundry = &l
	}
	return out
}
