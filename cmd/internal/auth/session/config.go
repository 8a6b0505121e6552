package session

import (
	"os"
	"time"

	"taskboard/cmd/security/token"
)

// Config defines all runtime configuration for the session subsystem.
//
// It controls the token issuer, per-kind signing secrets, and the access and
// refresh expiry windows. This struct is intentionally explicit and
// environment-driven so that deployments can tune security parameters without
// code changes.
type Config struct {
	// Issuer is the value set in the "iss" claim of issued tokens.
	Issuer string

	// AccessTokenTTL is the access-token expiry window (minutes-scale).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the refresh-token expiry window (days-scale).
	RefreshTokenTTL time.Duration

	// AccessSecret and RefreshSecret sign the respective token kinds. They
	// must be distinct, so an access token can never be replayed as a refresh
	// token.
	AccessSecret  string
	RefreshSecret string
}

// DefaultConfig returns defaults suitable for development. Secrets have no
// default and must come from the environment.
func DefaultConfig() Config {
	return Config{
		Issuer:          "taskboard",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - TASKBOARD_AUTH_ACCESS_SECRET
//   - TASKBOARD_AUTH_REFRESH_SECRET
//
// Optional (durations must be valid Go duration strings):
//   - TASKBOARD_AUTH_ISSUER
//   - TASKBOARD_AUTH_ACCESS_TTL
//   - TASKBOARD_AUTH_REFRESH_TTL
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("TASKBOARD_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("TASKBOARD_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("TASKBOARD_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	cfg.AccessSecret = os.Getenv("TASKBOARD_AUTH_ACCESS_SECRET")
	cfg.RefreshSecret = os.Getenv("TASKBOARD_AUTH_REFRESH_SECRET")
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, ErrConfig
	}

	if cfg.RefreshTokenTTL < cfg.AccessTokenTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}

// NewCodec builds the token codec for this configuration.
func (c Config) NewCodec() (*token.Codec, error) {
	return token.NewCodec(
		c.Issuer,
		[]byte(c.AccessSecret),
		[]byte(c.RefreshSecret),
		c.AccessTokenTTL,
		c.RefreshTokenTTL,
	)
}
