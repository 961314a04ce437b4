package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"laundrmate/internal/domain"
	"laundrmate/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository writes to the primary and falls back when it fails.
type FailoverSessionRepository struct {
	primary  domain.SessionRepository
	fallback domain.SessionRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session repository failed, falling back")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// shouldProbe reports whether a downed primary is due for a recovery attempt.
func (r *FailoverSessionRepository) shouldProbe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, key string) (*models.Session, error) {
	if !r.isDown.Load() {
		session, err := r.primary.GetSession(ctx, key)
		if err == nil {
			return session, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		session, err := r.primary.GetSession(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			r.logger.Info().Msg("Primary session repository recovered")
			return session, nil
		}
	}

	return r.fallback.GetSession(ctx, key)
}

// SetSession writes through to the fallback so a later outage still finds it.
func (r *FailoverSessionRepository) SetSession(ctx context.Context, key string, session *models.Session) error {
	if !r.isDown.Load() {
		err := r.primary.SetSession(ctx, key, session)
		if err == nil {
			if ferr := r.fallback.SetSession(ctx, key, session); ferr != nil {
				r.logger.Warn().Err(ferr).Msg("Fallback session write failed")
			}
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetSession(ctx, key, session)
}

// ClearSession clears both stores so a stale copy cannot resurface after recovery.
func (r *FailoverSessionRepository) ClearSession(ctx context.Context, key string) error {
	if !r.isDown.Load() {
		if err := r.primary.ClearSession(ctx, key); err != nil {
			r.markDown(err)
		}
	}

	return r.fallback.ClearSession(ctx, key)
}
