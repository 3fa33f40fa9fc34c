// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

// Package config loads service configuration from YAML files and flags.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the root configuration for the Driftmark service.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Auth          AuthConfig          `koanf:"auth"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig configures the public HTTP server.
type ServerConfig struct {
	Addr         string `koanf:"addr"`
	CookieName   string `koanf:"cookie_name"`
	CookieSecure bool   `koanf:"cookie_secure"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig configures credential and session lifecycle behavior.
type AuthConfig struct {
	SessionTTL           time.Duration `koanf:"session_ttl"`
	VerificationTokenTTL time.Duration `koanf:"verification_token_ttl"`
	RequireAdminApproval bool          `koanf:"require_admin_approval"`

	// Login throttling, keyed by account email.
	LoginLimit  int           `koanf:"login_limit"`
	LoginWindow time.Duration `koanf:"login_window"`

	// Verification request throttling, keyed by client IP.
	VerifyLimit  int           `koanf:"verify_limit"`
	VerifyWindow time.Duration `koanf:"verify_window"`

	// SweepInterval is how often expired sessions and tokens are purged.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Format string `koanf:"format"` // "json" or "text"
}

// ObservabilityConfig configures the metrics and health endpoint server.
type ObservabilityConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the configuration used when no file or flags override it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			CookieName:   "driftmark_session",
			CookieSecure: true,
		},
		Auth: AuthConfig{
			SessionTTL:           30 * 24 * time.Hour,
			VerificationTokenTTL: 24 * time.Hour,
			RequireAdminApproval: false,
			LoginLimit:           10,
			LoginWindow:          15 * time.Minute,
			VerifyLimit:          30,
			VerifyWindow:         time.Hour,
			SweepInterval:        time.Hour,
		},
		Logging: LoggingConfig{
			Format: "json",
		},
		Observability: ObservabilityConfig{
			Addr: "127.0.0.1:9100",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and an
// optional flag set, in increasing order of precedence. An empty path
// skips file loading; a nil flag set skips flag merging.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	// Unmarshal only touches keys present in the loaded sources, so the
	// pre-filled defaults survive for everything else.
	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr must not be empty")
	}
	if c.Server.CookieName == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.cookie_name must not be empty")
	}
	if c.Auth.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.session_ttl must be positive, got %s", c.Auth.SessionTTL)
	}
	if c.Auth.VerificationTokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.verification_token_ttl must be positive, got %s", c.Auth.VerificationTokenTTL)
	}
	if c.Auth.LoginLimit <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.login_limit must be positive, got %d", c.Auth.LoginLimit)
	}
	if c.Auth.SweepInterval <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.sweep_interval must be positive, got %s", c.Auth.SweepInterval)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}
