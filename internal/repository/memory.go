package repository

import (
	"context"
	"sync"
	"time"

	"laundrmate/internal/models"
)

type memoryEntry struct {
	session   models.Session
	expiresAt time.Time
}

type MemorySessionRepository struct {
	sessions sync.Map
	ttl      time.Duration
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		ttl: ttl,
	}
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, key string) (*models.Session, error) {
	val, ok := r.sessions.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		r.sessions.Delete(key)
		return nil, nil
	}
	s := entry.session
	return &s, nil
}

func (r *MemorySessionRepository) SetSession(ctx context.Context, key string, session *models.Session) error {
	entry := &memoryEntry{session: *session}
	if r.ttl > 0 {
		entry.expiresAt = time.Now().Add(r.ttl)
	}
	r.sessions.Store(key, entry)
	return nil
}

func (r *MemorySessionRepository) ClearSession(ctx context.Context, key string) error {
	r.sessions.Delete(key)
	return nil
}
