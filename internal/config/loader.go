package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*DashboardConfig, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Merge global config if exists
	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	// Merge project config if exists (highest precedence)
	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.opsdash/config.json
// Project: .opsdash/config.json (relative to cwd)
func LoadDefault() (*DashboardConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".opsdash", "config.json")
	projectPath := filepath.Join(".opsdash", "config.json")

	return Load(globalPath, projectPath)
}

// mergeConfigFile reads a JSON config file and merges it into the base config.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(base *DashboardConfig, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Missing file is not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded DashboardConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	// Backend fields override individually so a project file can point at
	// a different host without restating the user or row limit.
	if loaded.Backend.BaseURL != "" {
		base.Backend.BaseURL = loaded.Backend.BaseURL
	}
	if loaded.Backend.User != "" {
		base.Backend.User = loaded.Backend.User
	}
	if loaded.Backend.RowLimit > 0 {
		base.Backend.RowLimit = loaded.Backend.RowLimit
	}

	// Widget entries replace wholesale by ID.
	for id, widget := range loaded.Widgets {
		base.Widgets[id] = widget
	}

	return nil
}
