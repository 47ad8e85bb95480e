// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. In development an
optional .env file is loaded first with 'joho/godotenv'; variables already
present in the process environment always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// Config holds all runtime configuration for the Quill API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL          string        `env:"REDIS_URL,required"`
	RedisPoolSize     int           `env:"REDIS_POOL_SIZE"      envDefault:"20"`
	RedisMinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"4"`
	RedisDialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"   envDefault:"3s"`
	RedisIOTimeout    time.Duration `env:"REDIS_IO_TIMEOUT"     envDefault:"500ms"`

	// Cryptographic keys for token, link and cache sealing
	JWTPrivKeyPath     string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath      string `env:"JWT_PUBLIC_KEY_PATH,required"`
	LinkSigningSecret  string `env:"LINK_SIGNING_SECRET,required"`
	CacheEncryptionKey string `env:"CACHE_ENCRYPTION_KEY,required"`

	// Token lifetimes
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Account protection
	MaxLoginFailureLimit int           `env:"MAX_LOGIN_FAILURE_LIMIT" envDefault:"5"`
	LoginFailureWindow   time.Duration `env:"LOGIN_FAILURE_WINDOW"    envDefault:"10m"`
	MaxStrikes           int           `env:"MAX_STRIKES"             envDefault:"3"`

	// Verification links point at the frontend, which calls back into the API.
	FrontendURL         string        `env:"FRONTEND_URL"          envDefault:"http://localhost:3000"`
	VerificationLinkTTL time.Duration `env:"VERIFICATION_LINK_TTL" envDefault:"24h"`

	// Outbound mail ("log" writes messages to the structured log)
	MailDriver   string `env:"MAIL_DRIVER"   envDefault:"log"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"     envDefault:"no-reply@quill.app"`

	// Outbound pacing (messages per second, 0 disables)
	MailSendRate float64 `env:"MAIL_SEND_RATE" envDefault:"10"`
	SMSSendRate  float64 `env:"SMS_SEND_RATE"  envDefault:"1"`

	// Outbound SMS
	SMSDriver        string `env:"SMS_DRIVER"         envDefault:"log"`
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `env:"TWILIO_FROM_NUMBER"`

	// Social login
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	// Background maintenance
	TokenSweepInterval time.Duration `env:"TOKEN_SWEEP_INTERVAL" envDefault:"1h"`

	// Scoped throttles (requests per window, per client IP)
	ThrottleWindow        time.Duration `env:"THROTTLE_WINDOW"         envDefault:"1m"`
	ThrottleGlobal        int           `env:"THROTTLE_GLOBAL"         envDefault:"600"`
	ThrottleLogin         int           `env:"THROTTLE_LOGIN"          envDefault:"10"`
	ThrottleResendOTP     int           `env:"THROTTLE_RESEND_OTP"     envDefault:"3"`
	ThrottleEmailVerify   int           `env:"THROTTLE_EMAIL_VERIFY"   envDefault:"5"`
	ThrottlePhoneVerify   int           `env:"THROTTLE_PHONE_VERIFY"   envDefault:"5"`
	ThrottlePasswordReset int           `env:"THROTTLE_PASSWORD_RESET" envDefault:"5"`
	ThrottleUserCreate    int           `env:"THROTTLE_USER_CREATE"    envDefault:"5"`

	// Cross-Origin Resource Sharing: comma separated origins allowed besides FRONTEND_URL
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load reads an optional .env file and parses environment variables into a [Config] struct.
func Load(dotenvFiles ...string) (*Config, error) {

	// A missing .env file is normal outside local development.
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: failed to load %s: %w", file, err)
		}
	}

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.MaxLoginFailureLimit < 1 {
		return nil, fmt.Errorf("config: MAX_LOGIN_FAILURE_LIMIT must be positive, got %d", cfg.MaxLoginFailureLimit)
	}
	if cfg.RedisPoolSize < 1 {
		return nil, fmt.Errorf("config: REDIS_POOL_SIZE must be positive, got %d", cfg.RedisPoolSize)
	}
	if cfg.MailSendRate < 0 || cfg.SMSSendRate < 0 {
		return nil, fmt.Errorf("config: MAIL_SEND_RATE and SMS_SEND_RATE cannot be negative")
	}
	if cfg.MaxStrikes < 1 {
		return nil, fmt.Errorf("config: MAX_STRIKES must be positive, got %d", cfg.MaxStrikes)
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

// AllowedOrigins lists the browser origins accepted outside development:
// the frontend plus EXTRA_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	origins := []string{strings.TrimRight(c.FrontendURL, "/")}
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" && !slices.Contains(origins, origin) {
			origins = append(origins, origin)
		}
	}
	return origins
}
