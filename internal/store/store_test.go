package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "nested", "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesDirAndMigrates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "app.db")

	db, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	v, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
	require.NoError(t, db.Close())

	// Reopening is a no-op migration.
	db, err = Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	defer db.Close()
	v, err = db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestIsUniqueViolation(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	insert := `INSERT INTO people (id, username, email, password_hash, tz_continent, tz_city, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, insert, "u1", "ana", "ana@example.com", "h", "Europe", "Paris", "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "u2", "ana", "other@example.com", "h", "Europe", "Paris", "2026-01-01T00:00:00Z")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(os.ErrNotExist))
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTemp(t)
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO tasks (id, user_id, title, created_at, updated_at) VALUES ('t1', 'nobody', 'x', 'a', 'a')`)
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{Driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM tasks WHERE id = $1 AND user_id = $2", pg.Rebind("SELECT * FROM tasks WHERE id = ? AND user_id = ?"))

	lite := &DB{Driver: DriverSQLite}
	assert.Equal(t, "SELECT ?", lite.Rebind("SELECT ?"))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "data/app.db?_foreign_keys=on&_busy_timeout=5000", sqliteDSN(DriverSQLite, "data/app.db"))
	assert.Equal(t, "file:x.db?mode=rwc&_foreign_keys=on&_busy_timeout=5000", sqliteDSN(DriverSQLite, "file:x.db?mode=rwc"))
	assert.Equal(t, "postgres://h/db", sqliteDSN(DriverPostgres, "postgres://h/db"))
}

func TestSQLitePath(t *testing.T) {
	assert.Equal(t, "data/app.db", SQLitePath("data/app.db"))
	assert.Equal(t, "x.db", SQLitePath("file:x.db?mode=rwc"))
	assert.Equal(t, "", SQLitePath(":memory:"))
	assert.Equal(t, "", SQLitePath("file::memory:?cache=shared"))
}

func TestFormatTime_SortsChronologically(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := FormatTime(base)
	b := FormatTime(base.Add(500 * time.Millisecond))
	c := FormatTime(base.Add(time.Second).In(time.FixedZone("X", 3600)))

	assert.Less(t, a, b)
	assert.Less(t, b, c)

	back, err := ParseTime(b)
	require.NoError(t, err)
	assert.True(t, back.Equal(base.Add(500*time.Millisecond)))
}
