// Package view holds the screen controllers of the client. Each view owns
// its own booking store and goes through the shared lifecycle controller for
// every mutation.
package view

import (
	"context"
	"sync"

	"laundrmate/internal/domain"
	"laundrmate/internal/lifecycle"
	"laundrmate/internal/models"
	"laundrmate/internal/store"

	"github.com/rs/zerolog"
)

type base struct {
	name       string
	controller *lifecycle.Controller
	store      *store.Collection
	logger     *zerolog.Logger

	mu      sync.Mutex
	notice  string
	loading bool
}

func (b *base) init(name string, c *lifecycle.Controller, logger *zerolog.Logger) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("view", name).Logger()
	b.name = name
	b.controller = c
	b.store = store.New(name)
	b.logger = &l
}

// Store exposes the view's snapshot for rendering.
func (b *base) Store() *store.Collection { return b.store }

// Notice returns the last user-facing message, or "".
func (b *base) Notice() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notice
}

func (b *base) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Close unmounts the view. Results still in flight are dropped.
func (b *base) Close() {
	b.store.Detach()
}

func (b *base) setLoading(v bool) {
	b.mu.Lock()
	b.loading = v
	b.mu.Unlock()
}

// report records err as the view's notice and returns it unchanged.
func (b *base) report(err error) error {
	b.mu.Lock()
	if err != nil {
		b.notice = domain.Notice(err)
	} else {
		b.notice = ""
	}
	b.mu.Unlock()
	if err != nil {
		b.logger.Warn().Err(err).Msg("view action failed")
	}
	return err
}

func (b *base) load(ctx context.Context, scope lifecycle.Scope) error {
	b.setLoading(true)
	defer b.setLoading(false)
	return b.report(b.controller.Load(ctx, b.store, scope))
}

func (b *base) transition(ctx context.Context, id int64, to models.Status) (*models.Booking, error) {
	bk, err := b.controller.Transition(ctx, b.store, id, to)
	return bk, b.report(err)
}

func (b *base) remove(ctx context.Context, id int64) error {
	return b.report(b.controller.Delete(ctx, b.store, id))
}

// Actions lists the statuses the current session may move id to.
func (b *base) Actions(id int64) []models.Status {
	bk, ok := b.store.Get(id)
	if !ok {
		return nil
	}
	return b.controller.Policy().Allowed(b.controller.Session(), bk)
}
