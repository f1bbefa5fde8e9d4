// Package config gathers runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all pouchlog configuration.
type Config struct {
	Addr        string // HTTP listen address
	DatabaseURL string // PostgreSQL connection string; empty means local SQLite
	SQLitePath  string // local database path; empty resolves to the default
	SnapshotDir string // snapshot cache directory; empty resolves to the default
	PeerURL     string // base URL of a paired device, if any
	DisableAuth bool

	// LiveUserID is the logical session the live countdown controller owns.
	LiveUserID int64
	// SyncInterval is the foreground recomputation tick.
	SyncInterval time.Duration

	Model ModelConfig
	OIDC  OIDCConfig
}

// ModelConfig holds the absorption/decay constants and logging defaults.
type ModelConfig struct {
	AbsorptionFraction float64
	HalfLife           time.Duration
	DefaultContentMg   float64
	DefaultDuration    time.Duration
}

// OIDCConfig holds optional SSO settings; SSO is disabled when Issuer is
// empty.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	return Config{
		Addr:         env("ADDR", ":8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   os.Getenv("POUCHLOG_DB"),
		SnapshotDir:  os.Getenv("POUCHLOG_SNAPSHOT_DIR"),
		PeerURL:      os.Getenv("POUCHLOG_PEER_URL"),
		DisableAuth:  os.Getenv("POUCHLOG_DISABLE_AUTH") == "1",
		LiveUserID:   envInt64("POUCHLOG_LIVE_USER", 1),
		SyncInterval: envDuration("POUCHLOG_SYNC_INTERVAL", 30*time.Second),
		Model: ModelConfig{
			AbsorptionFraction: envFloat("POUCHLOG_ABSORPTION_FRACTION", 0.30),
			HalfLife:           envDuration("POUCHLOG_HALF_LIFE", 2*time.Hour),
			DefaultContentMg:   envFloat("POUCHLOG_DEFAULT_CONTENT_MG", 6),
			DefaultDuration:    envDuration("POUCHLOG_DEFAULT_DURATION", 30*time.Minute),
		},
		OIDC: OIDCConfig{
			Issuer:       os.Getenv("OIDC_ISSUER"),
			ClientID:     os.Getenv("OIDC_CLIENT_ID"),
			ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
