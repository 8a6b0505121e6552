package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	const (
		access  = "access-secret-0123456789abcdef-0123456789"
		refresh = "refresh-secret-0123456789abcdef-012345678"
	)

	t.Run("defaults with required secrets", func(t *testing.T) {
		t.Setenv("TASKBOARD_AUTH_ACCESS_SECRET", access)
		t.Setenv("TASKBOARD_AUTH_REFRESH_SECRET", refresh)

		cfg, err := LoadConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "taskboard", cfg.Issuer)
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
		assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)

		_, err = cfg.NewCodec()
		require.NoError(t, err)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("TASKBOARD_AUTH_ACCESS_SECRET", access)
		t.Setenv("TASKBOARD_AUTH_REFRESH_SECRET", refresh)
		t.Setenv("TASKBOARD_AUTH_ISSUER", "taskboard-staging")
		t.Setenv("TASKBOARD_AUTH_ACCESS_TTL", "5m")
		t.Setenv("TASKBOARD_AUTH_REFRESH_TTL", "48h")

		cfg, err := LoadConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "taskboard-staging", cfg.Issuer)
		assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
		assert.Equal(t, 48*time.Hour, cfg.RefreshTokenTTL)
	})

	t.Run("missing secrets", func(t *testing.T) {
		t.Setenv("TASKBOARD_AUTH_ACCESS_SECRET", access)
		t.Setenv("TASKBOARD_AUTH_REFRESH_SECRET", "")

		_, err := LoadConfigFromEnv()
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("TASKBOARD_AUTH_ACCESS_SECRET", access)
		t.Setenv("TASKBOARD_AUTH_REFRESH_SECRET", refresh)
		t.Setenv("TASKBOARD_AUTH_ACCESS_TTL", "soon")

		_, err := LoadConfigFromEnv()
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("refresh shorter than access", func(t *testing.T) {
		t.Setenv("TASKBOARD_AUTH_ACCESS_SECRET", access)
		t.Setenv("TASKBOARD_AUTH_REFRESH_SECRET", refresh)
		t.Setenv("TASKBOARD_AUTH_ACCESS_TTL", "1h")
		t.Setenv("TASKBOARD_AUTH_REFRESH_TTL", "30m")

		_, err := LoadConfigFromEnv()
		assert.ErrorIs(t, err, ErrConfig)
	})
}
