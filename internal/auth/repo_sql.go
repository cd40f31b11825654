package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tsadaash/internal/store"
)

// SQLRepo keeps users in the people table and sessions in sessions.
type SQLRepo struct {
	db *store.DB
}

func NewSQLRepo(db *store.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

func (r *SQLRepo) CreateUser(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO people (id, username, email, password_hash, tz_continent, tz_city, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Username, u.Email, u.PasswordHash, u.TZContinent, u.TZCity, store.FormatTime(u.CreatedAt))
	if store.IsUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, password_hash, tz_continent, tz_city, created_at`

func (r *SQLRepo) UserByID(ctx context.Context, id string) (User, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM people WHERE id = ?`), id)
	return scanUser(row)
}

func (r *SQLRepo) UserByLogin(ctx context.Context, login string) (User, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+userColumns+` FROM people WHERE username = ? OR email = ?`), login, login)
	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var created string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.TZContinent, &u.TZCity, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	if u.CreatedAt, err = store.ParseTime(created); err != nil {
		return User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	return u, nil
}

func (r *SQLRepo) CreateSession(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO sessions (token_hash, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`),
		s.TokenHash, s.UserID, store.FormatTime(s.CreatedAt), store.FormatTime(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLRepo) SessionByTokenHash(ctx context.Context, hash string) (Session, error) {
	var s Session
	var created, expires string
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT token_hash, user_id, created_at, expires_at FROM sessions WHERE token_hash = ?`), hash).
		Scan(&s.TokenHash, &s.UserID, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if s.CreatedAt, err = store.ParseTime(created); err != nil {
		return Session{}, fmt.Errorf("parse session created_at: %w", err)
	}
	if s.ExpiresAt, err = store.ParseTime(expires); err != nil {
		return Session{}, fmt.Errorf("parse session expires_at: %w", err)
	}
	return s, nil
}

func (r *SQLRepo) DeleteSession(ctx context.Context, hash string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE token_hash = ?`), hash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions relies on RFC 3339 UTC text sorting in time order.
func (r *SQLRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), store.FormatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
