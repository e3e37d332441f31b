package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "password", cfg.AdminPassword)
	assert.Equal(t, 50, cfg.SeedBooks)
	assert.Equal(t, "LIBSESSID", cfg.SessionCookie)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.MaxRedirects)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BASE_URL", "http://library.test:9000")
	t.Setenv("SEED_BOOKS", "75")
	t.Setenv("RATE_LIMIT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://library.test:9000", cfg.BaseURL)
	assert.Equal(t, 75, cfg.SeedBooks)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimit)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKERS", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "WORKERS")
}

func TestLoad_UnparsableDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
