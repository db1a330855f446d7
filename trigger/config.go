package trigger

import (
	"github.com/hazyhaar/gearsync/trigger/internal/config"
)

// Config is the top-level trigger configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome.
type BrowserConfig = config.BrowserConfig

// PageConfig locates the optimizer page and its elements.
type PageConfig = config.PageConfig

// SyncConfig controls one activation.
type SyncConfig = config.SyncConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// Control modes.
const (
	ModeTracked = config.ModeTracked
	ModeStatic  = config.ModeStatic
)

// DefaultEndpoint is the local receiver URL.
const DefaultEndpoint = config.DefaultEndpoint

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
