package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, filepath.Join("data", "app.db"), cfg.Database.DSN)
	assert.Equal(t, uint32(65536), cfg.Auth.Argon2.MemoryKiB)
	assert.Equal(t, uint32(3), cfg.Auth.Argon2.Iterations)
	assert.Equal(t, uint8(1), cfg.Auth.Argon2.Parallelism)
	assert.Equal(t, 10, cfg.Auth.MinPasswordLength)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 50*366*24*time.Hour, cfg.MaxWindow())
	assert.Equal(t, "P1W", cfg.Agenda.DefaultSpan)
}

func TestLoad_FileValues(t *testing.T) {
	p := writeFile(t, "tsadaash.yml", `
version: "1.2"
data_dir: /var/lib/tsadaash
database:
  driver: pgx
  dsn: postgres://localhost/tsadaash
auth:
  min_password_length: 14
  argon2:
    memory_kib: 19456
    iterations: 2
resolver:
  max_window_days: 400
server:
  addr: 127.0.0.1:9000
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/tsadaash", cfg.Database.DSN)
	assert.Equal(t, 14, cfg.Auth.MinPasswordLength)
	assert.Equal(t, uint32(19456), cfg.Auth.Argon2.MemoryKiB)
	assert.Equal(t, uint32(2), cfg.Auth.Argon2.Iterations)
	assert.Equal(t, uint8(1), cfg.Auth.Argon2.Parallelism)
	assert.Equal(t, 400*24*time.Hour, cfg.MaxWindow())
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoad_RejectsUnsupportedVersion(t *testing.T) {
	for _, v := range []string{"2.0", "0.9", "banana"} {
		p := writeFile(t, "tsadaash.yml", "version: \""+v+"\"\n")
		_, err := Load(p)
		assert.ErrorIs(t, err, ErrUnsupportedVersion, "version %s", v)
	}
}

func TestLoad_RejectsBadYAML(t *testing.T) {
	p := writeFile(t, "tsadaash.yml", "database: [unterminated\n")
	_, err := Load(p)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TSADAASH_DATA_DIR", "/tmp/ts")
	t.Setenv("TSADAASH_MIN_PASSWORD_LENGTH", "12")
	t.Setenv("TSADAASH_MAX_WINDOW_DAYS", "not-a-number")
	t.Setenv("TSADAASH_ADDR", ":7000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ts", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/ts", "app.db"), cfg.Database.DSN)
	assert.Equal(t, 12, cfg.Auth.MinPasswordLength)
	assert.Equal(t, 50*366, cfg.Resolver.MaxWindowDays)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "TSADAASH_DOTENV_TEST_SPAN"
	t.Cleanup(func() { os.Unsetenv(key) })

	p := writeFile(t, ".env", key+"=P2W\n")
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), p))
	assert.Equal(t, "P2W", os.Getenv(key))
}

func TestLoadDotEnv_ExistingVariablesWin(t *testing.T) {
	t.Setenv("TSADAASH_AGENDA_SPAN", "P3D")
	p := writeFile(t, ".env", "TSADAASH_AGENDA_SPAN=P1M\n")

	require.NoError(t, LoadDotEnv(p))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "P3D", cfg.Agenda.DefaultSpan)
}
