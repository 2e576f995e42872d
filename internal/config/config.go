package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
)

// AppConfig holds application configuration
type AppConfig struct {
	// ServerURL is the base URL of the image-hosting API. Empty means
	// local-only mode: history lives entirely in the local store.
	ServerURL string `env:"IMGHOST_SERVER_URL"`

	// AuthToken is the bearer token supplied by the authentication
	// module. Empty forces the shared view and disables mutations.
	AuthToken string `env:"IMGHOST_AUTH_TOKEN"`

	RequestTimeout time.Duration `env:"IMGHOST_REQUEST_TIMEOUT"`

	// PageSize is the default history page size
	PageSize int `env:"IMGHOST_PAGE_SIZE"`

	// HistoryLimit caps the local record list; oldest entries are
	// evicted past the cap
	HistoryLimit int `env:"IMGHOST_HISTORY_LIMIT"`

	// HistoryFile is the path of the persisted local history
	HistoryFile string `env:"IMGHOST_HISTORY_FILE"`

	// SearchDebounce delays keyword fetches while the user types
	SearchDebounce time.Duration `env:"IMGHOST_SEARCH_DEBOUNCE"`

	// ValidatorDebounce delays queue collection after a render
	ValidatorDebounce time.Duration `env:"IMGHOST_VALIDATOR_DEBOUNCE"`

	// ProbeInterval spaces out link validation requests
	ProbeInterval time.Duration `env:"IMGHOST_PROBE_INTERVAL"`

	// HealingGrace is how long a broken thumbnail must stay broken
	// before its record is deleted
	HealingGrace time.Duration `env:"IMGHOST_HEALING_GRACE"`

	// AdminView offers the all-uploads view in the mode selector. The
	// server still decides whether the caller may actually use it.
	AdminView bool `env:"IMGHOST_ADMIN_VIEW"`

	UITheme string `env:"IMGHOST_UI_THEME"`
}

// DefaultConfig returns default application configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		ServerURL:         "",
		RequestTimeout:    15 * time.Second,
		PageSize:          20,
		HistoryLimit:      200,
		HistoryFile:       defaultHistoryFile(),
		SearchDebounce:    300 * time.Millisecond,
		ValidatorDebounce: 500 * time.Millisecond,
		ProbeInterval:     200 * time.Millisecond,
		HealingGrace:      30 * time.Minute,
		UITheme:           "light",
	}
}

// Load returns the default configuration with environment overrides
// applied.
func Load() (*AppConfig, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the rest of the app
// cannot work with.
func (c *AppConfig) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive, got %d", c.HistoryLimit)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.HistoryFile == "" {
		return fmt.Errorf("history file path cannot be empty")
	}
	return nil
}

// ServerBacked reports whether a remote history API is configured.
func (c *AppConfig) ServerBacked() bool {
	return c.ServerURL != ""
}

func defaultHistoryFile() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "upload_history.json"
	}
	return filepath.Join(configDir, "image-host-client", "upload_history.json")
}
