package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogEncoding)
	assert.Equal(t, "file", cfg.SaveBackend)
	assert.Equal(t, "autosave", cfg.SaveSlot)
	assert.Equal(t, 168*time.Hour, cfg.StaleAfter)
	assert.Equal(t, "assets", cfg.AssetRoot)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ESCAPECORE_LOG_LEVEL", "debug")
	t.Setenv("ESCAPECORE_SAVE_BACKEND", "sqlite")
	t.Setenv("ESCAPECORE_SAVE_PATH", "/tmp/saves.db")
	t.Setenv("ESCAPECORE_SAVE_STALE_AFTER", "24h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.SaveBackend)
	assert.Equal(t, "/tmp/saves.db", cfg.SavePath)
	assert.Equal(t, 24*time.Hour, cfg.StaleAfter)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("ESCAPECORE_SAVE_BACKEND", "redis")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown save backend")
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("ESCAPECORE_SAVE_STALE_AFTER", "next tuesday")

	_, err := Load()
	assert.Error(t, err)
}
