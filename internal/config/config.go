// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// BackfillDisabled turns the coordinate backfill job off when used as
// BACKFILL_SCHEDULE.
const BackfillDisabled = "off"

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// RedisURL is the Redis connection string. Required.
	RedisURL string

	// BearerToken guards every /api route. Required.
	BearerToken string

	// MapboxToken is the access token for geocoding and directions. Required.
	MapboxToken string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	CORSOrigins []string

	// GeocodePacing is the pause between upstream geocode requests in a
	// batch. Defaults to 250ms.
	GeocodePacing time.Duration

	// SunTimezone is the zone sunrise/sunset and calendar times are shown in.
	// Defaults to UTC.
	SunTimezone *time.Location

	// BackfillSchedule is the cron schedule of the coordinate backfill job.
	// Defaults to "@every 6h"; "off" disables it.
	BackfillSchedule string

	// BackfillTimeout bounds a single backfill run. Defaults to 10m.
	BackfillTimeout time.Duration
}

// BackfillEnabled reports whether the backfill job should be scheduled.
func (c Config) BackfillEnabled() bool {
	return c.BackfillSchedule != BackfillDisabled
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		BackfillSchedule: getEnv("BACKFILL_SCHEDULE", "@every 6h"),
	}

	var missing []string
	required := func(key string, dst *string) {
		*dst = os.Getenv(key)
		if *dst == "" {
			missing = append(missing, key)
		}
	}
	required("DATABASE_URL", &cfg.DatabaseURL)
	required("REDIS_URL", &cfg.RedisURL)
	required("BEARER_TOKEN", &cfg.BearerToken)
	required("MAPBOX_TOKEN", &cfg.MapboxToken)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.GeocodePacing, err = getDuration("GEOCODE_PACING", 250*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.BackfillTimeout, err = getDuration("BACKFILL_TIMEOUT", 10*time.Minute); err != nil {
		return Config{}, err
	}

	zone := getEnv("SUN_TIMEZONE", "UTC")
	if cfg.SunTimezone, err = time.LoadLocation(zone); err != nil {
		return Config{}, fmt.Errorf("SUN_TIMEZONE %q: %w", zone, err)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s %q: want a non-negative duration such as 250ms", key, v)
	}
	return d, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
