// Package receiver implements the local sync endpoint. Each accepted payload
// is applied to a bot profile file (gear breakpoints matched by comment) and
// to a settings file (keys chosen through a label mapper).
package receiver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings locates the files a sync updates.
type Settings struct {
	// FilePath is the profile holding Breakpoints.Gear.
	FilePath string `json:"filePath" yaml:"filePath"`
	// SettingsPath is the settings object updated through SettingsMapper.
	SettingsPath string `json:"settingsPath" yaml:"settingsPath"`
	// SettingsMapper maps an optimizer label to a settings key.
	SettingsMapper map[string]string `json:"settingsMapper" yaml:"settingsMapper"`
}

// LoadSettings reads settings from JSON, or YAML when the file ends in
// .yaml or .yml.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("receiver: read settings: %w", err)
	}

	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("receiver: parse settings %s: %w", path, err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	if s.FilePath == "" {
		return fmt.Errorf("receiver: settings: filePath is required")
	}
	if s.SettingsPath == "" {
		return fmt.Errorf("receiver: settings: settingsPath is required")
	}
	if s.SettingsMapper == nil {
		s.SettingsMapper = map[string]string{}
	}
	return nil
}
