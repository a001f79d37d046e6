// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings. Every field has a usable
// default; a stock `escapecore <story-dir>` run needs no environment
// at all.
type Config struct {
	LogLevel    string `envconfig:"ESCAPECORE_LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"ESCAPECORE_LOG_ENCODING" default:"console"`
	LogPath     string `envconfig:"ESCAPECORE_LOG_PATH" default:""`

	// SaveBackend selects the persistence gateway: "file" or "sqlite".
	SaveBackend string `envconfig:"ESCAPECORE_SAVE_BACKEND" default:"file"`
	SavePath    string `envconfig:"ESCAPECORE_SAVE_PATH" default:""`
	SaveSlot    string `envconfig:"ESCAPECORE_SAVE_SLOT" default:"autosave"`

	// StaleAfter is the save-record staleness threshold.
	StaleAfter time.Duration `envconfig:"ESCAPECORE_SAVE_STALE_AFTER" default:"168h"`

	AssetRoot string `envconfig:"ESCAPECORE_ASSET_ROOT" default:"assets"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.SaveBackend != "file" && cfg.SaveBackend != "sqlite" {
		return nil, fmt.Errorf("unknown save backend %q (want file or sqlite)", cfg.SaveBackend)
	}
	return &cfg, nil
}
