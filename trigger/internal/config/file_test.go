package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gearsync.yaml")
	if err := os.WriteFile(path, []byte("page:\n  mode: static\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Page.Mode != ModeStatic {
		t.Errorf("Mode: got %q", cfg.Page.Mode)
	}
	if cfg.Page.RootSelector != "#root" {
		t.Errorf("RootSelector: got %q", cfg.Page.RootSelector)
	}
	if cfg.Sync.Timeout != 10*time.Second {
		t.Errorf("Timeout: got %v", cfg.Sync.Timeout)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].URL != DefaultEndpoint {
		t.Errorf("Sinks: got %+v", cfg.Sinks)
	}
	if cfg.Browser.Headless {
		t.Error("Headless defaults to true")
	}
}

func TestLoadFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gearsync.yaml")
	yml := `
browser:
  remote: ws://127.0.0.1:9222/devtools/browser/x
  stealth: true
page:
  container_selector: "#tools"
  navigate_timeout: 5s
sync:
  timeout: 2s
sinks:
  - type: webhook
  - type: stdout
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Page.ContainerSelector != "#tools" {
		t.Errorf("ContainerSelector: got %q", cfg.Page.ContainerSelector)
	}
	if cfg.Page.NavigateTimeout != 5*time.Second || cfg.Sync.Timeout != 2*time.Second {
		t.Errorf("durations: got %v / %v", cfg.Page.NavigateTimeout, cfg.Sync.Timeout)
	}
	if cfg.Sinks[0].URL != DefaultEndpoint {
		t.Errorf("webhook URL default: got %q", cfg.Sinks[0].URL)
	}
	if !cfg.Browser.Stealth {
		t.Error("Stealth not set")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Page.Mode = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown mode: want error")
	}

	cfg = Default()
	cfg.Sinks = []SinkConfig{{Type: "nats"}}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown sink: want error")
	}
}
