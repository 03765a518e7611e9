package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "")
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "")
	t.Setenv("STORAGE_BUCKET", "")
	t.Setenv("STORAGE_MAX_IMAGE_BYTES", "")
	t.Setenv("AUTH_COOKIE_NAME", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, "auth-token", cfg.Auth.CookieName)
	assert.Equal(t, "profile-images", cfg.Storage.Bucket)
	assert.Equal(t, int64(1<<20), cfg.Storage.MaxImageBytes)
	assert.False(t, cfg.App.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()

	assert.Error(t, err)
}
