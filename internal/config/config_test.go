package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envFrom(map[string]string{"APP_SECRET_KEY": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.App.HTTPPort)
	assert.Equal(t, "myCv Backend API", cfg.App.AppName)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.App.CORSOrigins)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenExpires)
	assert.Equal(t, 120*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "@every 15m", cfg.Janitor.Schedule)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.AI.FallbackKeys())
}

func TestLoadMissingSecret(t *testing.T) {
	_, err := load(envFrom(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errMissingRequiredEnv))
	assert.Contains(t, err.Error(), "APP_SECRET_KEY")
}

func TestLoadInvalidValues(t *testing.T) {
	_, err := load(envFrom(map[string]string{
		"APP_SECRET_KEY": "x",
		"AI_TIMEOUT":     "soon",
		"LOG_LEVEL":      "loud",
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInvalidEnv))
	assert.Contains(t, err.Error(), "AI_TIMEOUT")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestFallbackKeys(t *testing.T) {
	cfg, err := load(envFrom(map[string]string{
		"APP_SECRET_KEY": "x",
		"GOOGLE_API_KEY": "g-key",
		"LOG_LEVEL":      "debug",
		"LOG_FORMAT":     "text",
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"google": "g-key"}, cfg.AI.FallbackKeys())
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}
