package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	version "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the range of config schema versions this build reads.
const SupportedVersions = ">= 1.0, < 2.0"

const currentVersion = "1.0"

var ErrUnsupportedVersion = errors.New("unsupported config version")

type Config struct {
	Version  string         `yaml:"version" json:"version"`
	DataDir  string         `yaml:"data_dir" json:"data_dir"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`
	Agenda   AgendaConfig   `yaml:"agenda" json:"agenda"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3" or "pgx".
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

type AuthConfig struct {
	Argon2            Argon2Config `yaml:"argon2" json:"argon2"`
	MinPasswordLength int          `yaml:"min_password_length" json:"min_password_length"`
	SessionTTLHours   int          `yaml:"session_ttl_hours" json:"session_ttl_hours"`
	CookieName        string       `yaml:"cookie_name" json:"cookie_name"`
}

type Argon2Config struct {
	MemoryKiB   uint32 `yaml:"memory_kib" json:"memory_kib"`
	Iterations  uint32 `yaml:"iterations" json:"iterations"`
	Parallelism uint8  `yaml:"parallelism" json:"parallelism"`
}

type ResolverConfig struct {
	MaxWindowDays int `yaml:"max_window_days" json:"max_window_days"`
}

type AgendaConfig struct {
	// DefaultSpan is an ISO 8601 period such as P1W.
	DefaultSpan string `yaml:"default_span" json:"default_span"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = currentVersion
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite3" {
		c.Database.DSN = filepath.Join(c.DataDir, "app.db")
	}
	if c.Auth.Argon2.MemoryKiB == 0 {
		c.Auth.Argon2.MemoryKiB = 64 * 1024
	}
	if c.Auth.Argon2.Iterations == 0 {
		c.Auth.Argon2.Iterations = 3
	}
	if c.Auth.Argon2.Parallelism == 0 {
		c.Auth.Argon2.Parallelism = 1
	}
	if c.Auth.MinPasswordLength == 0 {
		c.Auth.MinPasswordLength = 10
	}
	if c.Auth.SessionTTLHours == 0 {
		c.Auth.SessionTTLHours = 24 * 30
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "tsadaash_session"
	}
	if c.Resolver.MaxWindowDays == 0 {
		c.Resolver.MaxWindowDays = 50 * 366
	}
	if c.Agenda.DefaultSpan == "" {
		c.Agenda.DefaultSpan = "P1W"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// CheckVersion rejects config files written for another schema generation.
func (c Config) CheckVersion() error {
	v, err := version.NewVersion(c.Version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, c.Version, err)
	}
	constraint, err := version.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, v, SupportedVersions)
	}
	return nil
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLHours) * time.Hour
}

func (c Config) MaxWindow() time.Duration {
	return time.Duration(c.Resolver.MaxWindowDays) * 24 * time.Hour
}

// Load reads path (a missing file means defaults), overlays TSADAASH_*
// environment variables and checks the schema version.
func Load(path string) (*Config, error) {
	var r Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, &r); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	r.ApplyEnv()
	r.ApplyDefaults()
	if err := r.CheckVersion(); err != nil {
		return nil, err
	}
	return &r, nil
}
