// Package store holds the in-memory booking snapshot a view renders from.
package store

import (
	"sync"

	"laundrmate/internal/metrics"
	"laundrmate/internal/models"
)

// Observer is notified after every applied mutation.
type Observer func()

// Ticket identifies one list load. Only the latest ticket may commit.
type Ticket uint64

// Collection is an ordered id → Booking map. Every operation holds the lock
// for its whole duration, so readers never see a half-applied mutation.
type Collection struct {
	mu        sync.RWMutex
	name      string
	byID      map[int64]models.Booking
	order     []int64
	observers []Observer

	latest   Ticket
	detached bool
}

// New creates an empty collection. name labels the discarded-load metric.
func New(name string) *Collection {
	return &Collection{
		name: name,
		byID: make(map[int64]models.Booking),
	}
}

func (c *Collection) Name() string { return c.name }

// Subscribe registers an observer.
func (c *Collection) Subscribe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// ReplaceAll swaps the contents for list, keeping list order. Later
// duplicates of an id replace earlier ones in place.
func (c *Collection) ReplaceAll(list []models.Booking) {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return
	}
	c.replaceLocked(list)
	observers := c.snapshotObservers()
	c.mu.Unlock()

	notify(observers)
}

// Upsert replaces the record with the same id or appends a new one. Records
// without an id are ignored.
func (c *Collection) Upsert(b models.Booking) {
	if b.ID <= 0 {
		return
	}
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return
	}
	if _, ok := c.byID[b.ID]; !ok {
		c.order = append(c.order, b.ID)
	}
	c.byID[b.ID] = b.Clone()
	observers := c.snapshotObservers()
	c.mu.Unlock()

	notify(observers)
}

// Remove deletes id and reports whether it was present.
func (c *Collection) Remove(id int64) bool {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return false
	}
	if _, ok := c.byID[id]; !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.byID, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	observers := c.snapshotObservers()
	c.mu.Unlock()

	notify(observers)
	return true
}

// Patch merges the present fields of u into the record. Absent ids are a
// no-op and report false.
func (c *Collection) Patch(id int64, u models.BookingUpdate) bool {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return false
	}
	b, ok := c.byID[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	b = b.Clone()
	u.ApplyTo(&b)
	c.byID[id] = b
	observers := c.snapshotObservers()
	c.mu.Unlock()

	notify(observers)
	return true
}

// Get returns a copy of the record.
func (c *Collection) Get(id int64) (models.Booking, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.byID[id]
	if !ok {
		return models.Booking{}, false
	}
	return b.Clone(), true
}

// Snapshot returns a copy of every record in source order.
func (c *Collection) Snapshot() []models.Booking {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Booking, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Clone())
	}
	return out
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// BeginLoad starts a list load and supersedes every earlier ticket.
func (c *Collection) BeginLoad() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest++
	return c.latest
}

// CommitLoad applies list when t is still the latest ticket and the
// collection is attached. It reports whether list was applied.
func (c *Collection) CommitLoad(t Ticket, list []models.Booking) bool {
	c.mu.Lock()
	if c.detached || t != c.latest {
		c.mu.Unlock()
		metrics.IncDiscardedLoad(c.name)
		return false
	}
	c.replaceLocked(list)
	observers := c.snapshotObservers()
	c.mu.Unlock()

	notify(observers)
	return true
}

// Current reports whether t is still the latest ticket of an attached
// collection, so callers can skip work for results that would be dropped.
func (c *Collection) Current(t Ticket) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.detached && t == c.latest
}

// Detach marks the owning view gone. Later mutations are discarded and
// observers are dropped.
func (c *Collection) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
	c.observers = nil
}

func (c *Collection) Detached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detached
}

func (c *Collection) replaceLocked(list []models.Booking) {
	byID := make(map[int64]models.Booking, len(list))
	order := make([]int64, 0, len(list))
	for _, b := range list {
		if b.ID <= 0 {
			continue
		}
		if _, ok := byID[b.ID]; !ok {
			order = append(order, b.ID)
		}
		byID[b.ID] = b.Clone()
	}
	c.byID = byID
	c.order = order
}

func (c *Collection) snapshotObservers() []Observer {
	return append([]Observer(nil), c.observers...)
}

func notify(observers []Observer) {
	for _, o := range observers {
		o()
	}
}
