// Package config resolves application settings from the environment, with a
// .env file as a convenience for development setups.
package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/abhisek/examdrill/internal/remote"
)

// Config holds the application-level settings. LLM provider settings live in
// the explain package and are resolved separately.
type Config struct {
	// DBPath overrides the default on-device database location.
	DBPath string

	// RemoteURL is the base URL of the progress sync service. Empty means
	// the app runs purely locally.
	RemoteURL string

	// Token is the bearer credential for the sync service.
	Token string

	// User is the identity progress is recorded under. Defaults to the
	// token's subject claim, or "local" when unauthenticated.
	User string
}

// DefaultConfig returns a Config for local-only, unauthenticated use.
func DefaultConfig() Config {
	return Config{
		User: remote.LocalUser,
	}
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for unset values. A .env file in the working directory is loaded
// first if present.
func FromEnv() Config {
	// Best-effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if p := os.Getenv("EXAMDRILL_DB"); p != "" {
		cfg.DBPath = p
	}
	if u := os.Getenv("EXAMDRILL_REMOTE_URL"); u != "" {
		cfg.RemoteURL = u
	}
	if t := os.Getenv("EXAMDRILL_TOKEN"); t != "" {
		cfg.Token = t
	}

	if u := os.Getenv("EXAMDRILL_USER"); u != "" {
		cfg.User = u
	} else {
		cfg.User = remote.UserID(cfg.Token)
	}

	return cfg
}

// Remote reports whether a sync service is configured.
func (c Config) Remote() bool {
	return c.RemoteURL != ""
}
