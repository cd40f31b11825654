package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays TSADAASH_* variables onto c.
func (c *Config) ApplyEnv() {
	if val := getEnv("TSADAASH_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := getEnv("TSADAASH_DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := getEnv("TSADAASH_DB_DSN"); val != "" {
		c.Database.DSN = val
	}
	if val := getEnv("TSADAASH_ADDR"); val != "" {
		c.Server.Addr = val
	}
	if val := getEnv("TSADAASH_AGENDA_SPAN"); val != "" {
		c.Agenda.DefaultSpan = val
	}
	if val := getEnv("TSADAASH_COOKIE_NAME"); val != "" {
		c.Auth.CookieName = val
	}
	if val := getEnvInt("TSADAASH_MIN_PASSWORD_LENGTH"); val > 0 {
		c.Auth.MinPasswordLength = val
	}
	if val := getEnvInt("TSADAASH_SESSION_TTL_HOURS"); val > 0 {
		c.Auth.SessionTTLHours = val
	}
	if val := getEnvInt("TSADAASH_MAX_WINDOW_DAYS"); val > 0 {
		c.Resolver.MaxWindowDays = val
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvInt(key string) int {
	val := getEnv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}
