package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"laundrmate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteRepo(t *testing.T, ttl time.Duration) *SQLiteSessionRepository {
	t.Helper()
	repo, err := NewSQLiteSessionRepository(filepath.Join(t.TempDir(), "nested", "session.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteSessionRepository(t *testing.T) {
	repo := setupSQLiteRepo(t, time.Hour)
	ctx := context.Background()

	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	session := &models.Session{
		Token:     "tok",
		Role:      models.RoleOwner,
		UserID:    17,
		Email:     "owner@example.com",
		ExpiresAt: expires,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, repo.SetSession(ctx, "default", session))

	got, err := repo.GetSession(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, models.RoleOwner, got.Role)
	assert.Equal(t, int64(17), got.UserID)
	assert.Equal(t, "owner@example.com", got.Email)
	assert.True(t, expires.Equal(got.ExpiresAt))

	// Upsert replaces the stored identity.
	require.NoError(t, repo.SetSession(ctx, "default", &models.Session{Token: "tok2", Role: models.RoleUser}))
	got, err = repo.GetSession(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "tok2", got.Token)
	assert.True(t, got.ExpiresAt.IsZero())

	require.NoError(t, repo.ClearSession(ctx, "default"))
	got, err = repo.GetSession(ctx, "default")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteSessionRepository_StoredUntil(t *testing.T) {
	repo := setupSQLiteRepo(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.SetSession(ctx, "old", &models.Session{Token: "t", Role: models.RoleUser}))
	_, err := repo.db.Exec(`UPDATE sessions SET stored_until = ? WHERE key = ?`, time.Now().Add(-time.Minute).Unix(), "old")
	require.NoError(t, err)

	got, err := repo.GetSession(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, got)
}
