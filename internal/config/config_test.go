package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 200, cfg.HistoryLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.ValidatorDebounce)
	assert.Equal(t, 200*time.Millisecond, cfg.ProbeInterval)
	assert.Equal(t, 30*time.Minute, cfg.HealingGrace)
	assert.NotEmpty(t, cfg.HistoryFile)
	assert.False(t, cfg.ServerBacked())
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("IMGHOST_SERVER_URL", "https://img.example.com")
	t.Setenv("IMGHOST_PAGE_SIZE", "50")
	t.Setenv("IMGHOST_HEALING_GRACE", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://img.example.com", cfg.ServerURL)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.HealingGrace)
	assert.True(t, cfg.ServerBacked())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("IMGHOST_PAGE_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryLimit = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.HistoryFile = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RequestTimeout = 0
	assert.Error(t, cfg.Validate())
}
