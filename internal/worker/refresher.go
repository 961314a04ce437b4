package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"laundrmate/internal/domain"

	"github.com/rs/zerolog"
)

// RefreshFunc re-fetches one view.
type RefreshFunc func(ctx context.Context) error

// Refresher keeps a view current by polling. Failures back off per the
// retry policy; after MaxRetries consecutive failures it falls back to the
// regular interval. Authorization failures stop it.
type Refresher struct {
	name     string
	refresh  RefreshFunc
	interval time.Duration
	retry    RetryPolicy
	logger   *zerolog.Logger

	mu       sync.Mutex
	runs     int
	failures int
	lastErr  error
	lastRun  time.Time

	// wait is replaced in tests.
	wait func(ctx context.Context, d time.Duration) bool
}

func NewRefresher(name string, refresh RefreshFunc, interval time.Duration, retry RetryPolicy, logger *zerolog.Logger) *Refresher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	l := logger.With().Str("component", "refresher").Str("view", name).Logger()
	return &Refresher{
		name:     name,
		refresh:  refresh,
		interval: interval,
		retry:    retry,
		logger:   &l,
		wait:     sleepCtx,
	}
}

// Start runs until ctx is done or the session is rejected. The first
// refresh happens immediately.
func (r *Refresher) Start(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Msg("refresher started")
	defer r.logger.Info().Msg("refresher stopped")

	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := r.refresh(ctx)
		r.record(err)

		next := r.interval
		switch {
		case err == nil:
			attempt = 0
		case errors.Is(err, domain.ErrAuth):
			r.logger.Error().Err(err).Msg("refresh rejected, stopping")
			return err
		default:
			attempt++
			if r.retry.Exhausted(attempt) {
				r.logger.Error().Err(err).Int("attempt", attempt).Msg("refresh keeps failing, back to regular interval")
				attempt = 0
			} else {
				next = r.retry.NextDelay(attempt)
				r.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("refresh failed")
			}
		}

		if !r.wait(ctx, next) {
			return nil
		}
	}
}

// Stats is a point-in-time view of the refresher.
type Stats struct {
	Runs     int
	Failures int
	LastErr  error
	LastRun  time.Time
}

func (r *Refresher) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Runs: r.runs, Failures: r.failures, LastErr: r.lastErr, LastRun: r.lastRun}
}

func (r *Refresher) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	r.lastRun = time.Now()
	r.lastErr = err
	if err != nil {
		r.failures++
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
