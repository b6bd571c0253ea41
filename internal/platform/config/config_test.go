package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hrleave")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.LeaveAccrualInterval)
	assert.Equal(t, 4, cfg.AccrualConcurrency)
	assert.False(t, cfg.LeaveStrictPolicy)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/leave.db")
	t.Setenv("LEAVE_STRICT_POLICY", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.LeaveStrictPolicy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := Config{
		StoreDriver:        DriverPostgres,
		DatabaseURL:        "postgres://localhost/hrleave",
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 10,
		AccrualConcurrency: 1,
		JWTSecret:          devJWTSecret,
	}
	require.NoError(t, base.Validate())

	noURL := base
	noURL.DatabaseURL = ""
	assert.Error(t, noURL.Validate())

	badDriver := base
	badDriver.StoreDriver = "mysql"
	assert.Error(t, badDriver.Validate())

	prod := base
	prod.Environment = "production"
	assert.Error(t, prod.Validate())

	noSecret := base
	noSecret.JWTSecret = ""
	assert.Error(t, noSecret.Validate())

	email := base
	email.EmailEnabled = true
	assert.Error(t, email.Validate())
}
