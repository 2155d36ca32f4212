// Copyright (c) 2026 Tikra. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Tikra API server.
type Config struct {

	// Server settings
	BindAddr    string `env:"BIND_ADDR"    envDefault:":8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DB_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Session Store (Redis)
	SessionStoreURL string `env:"SESSION_STORE_URL,required"`

	// TokenSecret signs both access and refresh tokens (HS256).
	// It is process-wide; rotating it invalidates every outstanding token.
	TokenSecret string `env:"TOKEN_SECRET,required"`

	// Token and session lifetimes
	AccessTTL      time.Duration `env:"ACCESS_TTL"      envDefault:"15m"`
	RefreshTTL     time.Duration `env:"REFRESH_TTL"     envDefault:"720h"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"24h"`

	// PasswordKDFWork is the bcrypt cost factor for password hashing.
	PasswordKDFWork int `env:"PASSWORD_KDF_WORK" envDefault:"12"`

	// Rate limiting (per client IP, sliding window)
	RateLimitAuthMax    int           `env:"RATE_LIMIT_AUTH_MAX"    envDefault:"5"`
	RateLimitAuthWindow time.Duration `env:"RATE_LIMIT_AUTH_WINDOW" envDefault:"15m"`
	RateLimitAPIMax     int           `env:"RATE_LIMIT_API_MAX"     envDefault:"100"`
	RateLimitAPIWindow  time.Duration `env:"RATE_LIMIT_API_WINDOW"  envDefault:"15m"`

	// AllowedEmbedHosts lists origins permitted to embed the app in an
	// iframe and to make credentialed cross-origin API calls.
	AllowedEmbedHosts []string `env:"ALLOWED_EMBED_HOSTS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	// The KDF work factor has a hard security floor.
	if cfg.PasswordKDFWork < 10 {
		return nil, fmt.Errorf("config: PASSWORD_KDF_WORK must be >= 10, got %d", cfg.PasswordKDFWork)
	}

	if cfg.AccessTTL > 15*time.Minute {
		return nil, fmt.Errorf("config: ACCESS_TTL must be <= 15m, got %s", cfg.AccessTTL)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EmbedHosts returns the origins allowed to embed the app in an iframe.
func (c *Config) EmbedHosts() []string {
	return c.AllowedEmbedHosts
}
