// Package session holds the authenticated identity of the client and lets
// dependents read it through domain.SessionReader.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"laundrmate/internal/domain"
	"laundrmate/internal/models"

	"github.com/rs/zerolog"
)

// Listener is called after the session changes; s is nil after logout.
type Listener func(s *models.Session)

// Store is the single source of the current identity. It is safe for
// concurrent use; a repository, when set, keeps the identity across runs.
type Store struct {
	mu        sync.RWMutex
	current   *models.Session
	listeners []Listener

	repo   domain.SessionRepository
	key    string
	now    func() time.Time
	logger *zerolog.Logger
}

var _ domain.SessionReader = (*Store)(nil)

// NewStore builds a store. repo may be nil for a process-lifetime session.
func NewStore(repo domain.SessionRepository, key string, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if key == "" {
		key = models.DefaultSessionKey
	}
	return &Store{repo: repo, key: key, now: time.Now, logger: logger}
}

// Current returns a copy of the active session or nil.
func (s *Store) Current() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	if s.current.Expired(s.now()) {
		return nil
	}
	c := *s.current
	return &c
}

// Subscribe registers l for future changes.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Set activates a session and persists it.
func (s *Store) Set(ctx context.Context, session *models.Session) error {
	if session == nil || session.Token == "" {
		return domain.Authf("empty session token")
	}
	c := *session
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	if s.repo != nil {
		if err := s.repo.SetSession(ctx, s.key, &c); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}

	s.mu.Lock()
	s.current = &c
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Info().Str("role", string(c.Role)).Int64("user_id", c.UserID).Msg("session started")
	notify(listeners, &c)
	return nil
}

// Clear ends the session. The in-memory identity is dropped even when the
// repository fails, so a failed logout never leaves the client authorized.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	var err error
	if s.repo != nil {
		if rerr := s.repo.ClearSession(ctx, s.key); rerr != nil {
			err = fmt.Errorf("clear persisted session: %w", rerr)
		}
	}

	s.logger.Info().Msg("session cleared")
	notify(listeners, nil)
	return err
}

// Restore loads a persisted session. Expired sessions are discarded.
// It reports whether a session is active afterwards.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.repo == nil {
		return s.Current() != nil, nil
	}

	stored, err := s.repo.GetSession(ctx, s.key)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if stored == nil {
		return false, nil
	}
	if stored.Expired(s.now()) {
		s.logger.Info().Time("expired_at", stored.ExpiresAt).Msg("persisted session expired")
		if err := s.repo.ClearSession(ctx, s.key); err != nil {
			return false, fmt.Errorf("clear expired session: %w", err)
		}
		return false, nil
	}

	s.mu.Lock()
	s.current = stored
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	notify(listeners, stored)
	return true, nil
}

func notify(listeners []Listener, s *models.Session) {
	for _, l := range listeners {
		if s == nil {
			l(nil)
			continue
		}
		c := *s
		l(&c)
	}
}

// Static is a fixed SessionReader, handy for tests and one-off calls.
type Static struct {
	Session *models.Session
}

func (s Static) Current() *models.Session {
	if s.Session == nil {
		return nil
	}
	c := *s.Session
	return &c
}
