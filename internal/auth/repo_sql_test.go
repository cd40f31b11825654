package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsadaash/internal/store"
)

func newSQLRepo(t *testing.T) *SQLRepo {
	t.Helper()
	db, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLRepo(db)
}

func TestSQLRepo_Users(t *testing.T) {
	repo := newSQLRepo(t)
	ctx := context.Background()
	u := User{ID: "u1", Username: "ana", Email: "ana@example.com", PasswordHash: "h",
		TZContinent: "Europe", TZCity: "Paris", CreatedAt: now}

	require.NoError(t, repo.CreateUser(ctx, u))
	assert.ErrorIs(t, repo.CreateUser(ctx, User{ID: "u2", Username: "ana", Email: "x@example.com", CreatedAt: now}), ErrUserExists)

	got, err := repo.UserByLogin(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.True(t, got.CreatedAt.Equal(now))

	got, err = repo.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Username)

	_, err = repo.UserByLogin(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSQLRepo_Sessions(t *testing.T) {
	repo := newSQLRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, User{ID: "u1", Username: "ana", Email: "ana@example.com", CreatedAt: now}))

	require.NoError(t, repo.CreateSession(ctx, Session{UserID: "u1", TokenHash: "a", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.CreateSession(ctx, Session{UserID: "u1", TokenHash: "b", CreatedAt: now, ExpiresAt: now.Add(3 * time.Hour)}))

	s, err := repo.SessionByTokenHash(ctx, "a")
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.Equal(now.Add(time.Hour)))

	n, err := repo.DeleteExpiredSessions(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.SessionByTokenHash(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, repo.DeleteSession(ctx, "b"))
	_, err = repo.SessionByTokenHash(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
