package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONNECTION_REQUEST_LIMIT", "")
	t.Setenv("CONNECTION_REQUEST_WINDOW", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg := Load()
	assert.Equal(t, 20, cfg.ConnectionRequestLimit)
	assert.Equal(t, 24*time.Hour, cfg.ConnectionRequestWindow)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.False(t, cfg.SMTPEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CONNECTION_REQUEST_LIMIT", "5")
	t.Setenv("CONNECTION_REQUEST_WINDOW", "1h")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USERNAME", "bot")
	t.Setenv("SMTP_PASSWORD", "secret")

	cfg := Load()
	assert.Equal(t, 5, cfg.ConnectionRequestLimit)
	assert.Equal(t, time.Hour, cfg.ConnectionRequestWindow)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.True(t, cfg.SMTPEnabled())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CONNECTION_REQUEST_LIMIT", "many")
	t.Setenv("CONNECTION_REQUEST_WINDOW", "-3h")

	cfg := Load()
	assert.Equal(t, 20, cfg.ConnectionRequestLimit)
	assert.Equal(t, 24*time.Hour, cfg.ConnectionRequestWindow)
}
