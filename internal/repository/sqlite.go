package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"laundrmate/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSessionRepository keeps the session in a local file so the CLI stays
// logged in between runs.
type SQLiteSessionRepository struct {
	db  *sql.DB
	ttl time.Duration
}

func NewSQLiteSessionRepository(path string, ttl time.Duration) (*SQLiteSessionRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to session database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
            key TEXT PRIMARY KEY,
            token TEXT NOT NULL,
            role TEXT NOT NULL,
            user_id INTEGER NOT NULL DEFAULT 0,
            email TEXT,
            expires_at INTEGER NOT NULL DEFAULT 0,
            created_at INTEGER NOT NULL,
            stored_until INTEGER NOT NULL DEFAULT 0
        )`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &SQLiteSessionRepository{db: db, ttl: ttl}, nil
}

func (r *SQLiteSessionRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteSessionRepository) GetSession(ctx context.Context, key string) (*models.Session, error) {
	var (
		s           models.Session
		role        string
		email       sql.NullString
		expiresAt   int64
		createdAt   int64
		storedUntil int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token, role, user_id, email, expires_at, created_at, stored_until
         FROM sessions WHERE key = ?`, key,
	).Scan(&s.Token, &role, &s.UserID, &email, &expiresAt, &createdAt, &storedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if storedUntil > 0 && time.Now().Unix() > storedUntil {
		if err := r.ClearSession(ctx, key); err != nil {
			return nil, err
		}
		return nil, nil
	}

	s.Role = models.Role(role)
	s.Email = email.String
	if expiresAt > 0 {
		s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &s, nil
}

func (r *SQLiteSessionRepository) SetSession(ctx context.Context, key string, session *models.Session) error {
	var expiresAt, storedUntil int64
	if !session.ExpiresAt.IsZero() {
		expiresAt = session.ExpiresAt.Unix()
	}
	if r.ttl > 0 {
		storedUntil = time.Now().Add(r.ttl).Unix()
	}
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (
                key, token, role, user_id, email, expires_at, created_at, stored_until
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(key) DO UPDATE SET
                token = excluded.token,
                role = excluded.role,
                user_id = excluded.user_id,
                email = excluded.email,
                expires_at = excluded.expires_at,
                created_at = excluded.created_at,
                stored_until = excluded.stored_until`,
		key, session.Token, string(session.Role), session.UserID, session.Email,
		expiresAt, createdAt.Unix(), storedUntil,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) ClearSession(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
