// Package config handles gearsync trigger configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Control modes.
const (
	// ModeTracked re-injects the control whenever the tracked tab becomes
	// active and cancels it when the tab becomes inactive.
	ModeTracked = "tracked"
	// ModeStatic injects a single control once the container exists.
	ModeStatic = "static"
)

// DefaultEndpoint is the local receiver the payload is POSTed to.
const DefaultEndpoint = "http://localhost:3000"

// Config is the top-level trigger configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Page    PageConfig    `yaml:"page"`
	Sync    SyncConfig    `yaml:"sync"`
	Sinks   []SinkConfig  `yaml:"sinks"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`        // DevTools WebSocket URL; empty launches Chrome
	Bin              string   `yaml:"bin"`           // Chrome binary; empty lets launcher find or download one
	Headless         bool     `yaml:"headless"`      // default false: a person clicks the control
	UserDataDir      string   `yaml:"user_data_dir"` // keeps the optimizer's local storage between runs
	NoSandbox        bool     `yaml:"no_sandbox"`    // needed when Chrome runs as root
	Stealth          bool     `yaml:"stealth"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// PageConfig locates the host page and the elements the control depends on.
type PageConfig struct {
	URL               string        `yaml:"url"`
	RootSelector      string        `yaml:"root_selector"`      // host application root element
	ContainerSelector string        `yaml:"container_selector"` // where the control is appended
	TabSelector       string        `yaml:"tab_selector"`       // navigation element observed for its class
	ActiveClass       string        `yaml:"active_class"`
	ButtonLabel       string        `yaml:"button_label"`
	Mode              string        `yaml:"mode"` // tracked | static
	MaxDepth          int           `yaml:"max_depth"`
	NavigateTimeout   time.Duration `yaml:"navigate_timeout"`
}

// SyncConfig controls one activation.
type SyncConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // webhook | stdout
	URL  string `yaml:"url"`  // for webhook
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every zero field.
func (c *Config) ApplyDefaults() {
	if c.Page.URL == "" {
		c.Page.URL = "https://gmiclotte.github.io/gear-optimizer/"
	}
	if c.Page.RootSelector == "" {
		c.Page.RootSelector = "#root"
	}
	if c.Page.ContainerSelector == "" {
		c.Page.ContainerSelector = ".button-section"
	}
	if c.Page.TabSelector == "" {
		c.Page.TabSelector = "ul li:first-child a"
	}
	if c.Page.ActiveClass == "" {
		c.Page.ActiveClass = "active"
	}
	if c.Page.ButtonLabel == "" {
		c.Page.ButtonLabel = "Sync"
	}
	if c.Page.Mode == "" {
		c.Page.Mode = ModeTracked
	}
	if c.Page.MaxDepth <= 0 {
		c.Page.MaxDepth = 10000
	}
	if c.Page.NavigateTimeout <= 0 {
		c.Page.NavigateTimeout = 30 * time.Second
	}
	if c.Sync.Timeout <= 0 {
		c.Sync.Timeout = 10 * time.Second
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "webhook", URL: DefaultEndpoint}}
	}
	for i := range c.Sinks {
		if c.Sinks[i].Type == "webhook" && c.Sinks[i].URL == "" {
			c.Sinks[i].URL = DefaultEndpoint
		}
	}
}

// Validate reports configuration errors ApplyDefaults cannot fix.
func (c *Config) Validate() error {
	switch c.Page.Mode {
	case ModeTracked, ModeStatic:
	default:
		return fmt.Errorf("config: page.mode: unknown mode %q", c.Page.Mode)
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "webhook", "stdout":
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}
