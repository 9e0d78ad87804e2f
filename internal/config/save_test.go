package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveCreatesFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := &DashboardConfig{
		Backend: BackendConfig{BaseURL: "http://erp.local:8420", RowLimit: 5},
		Widgets: map[string]WidgetConfig{
			"cost-deviation": {CriticalAbove: 20, HighAbove: 5},
		},
	}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Config file was not created: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	var loaded DashboardConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Config file contains invalid JSON: %v", err)
	}

	if loaded.Backend.BaseURL != "http://erp.local:8420" {
		t.Errorf("Expected base URL 'http://erp.local:8420', got '%s'", loaded.Backend.BaseURL)
	}
	if loaded.Widgets["cost-deviation"].CriticalAbove != 20 {
		t.Errorf("Expected cost-deviation critical_above 20, got %v", loaded.Widgets["cost-deviation"].CriticalAbove)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	// Nested path that doesn't exist yet
	path := filepath.Join(tmpDir, "nested", "deep", "config.json")

	cfg := DefaultConfig()

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Config file was not created in nested path: %s", path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	cfg.Widgets["gap-expiry"] = WidgetConfig{HighAbove: 20, WindowDays: 14}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	w := loaded.Widget("gap-expiry")
	if w.HighAbove != 20 || w.WindowDays != 14 {
		t.Errorf("round-tripped gap-expiry = %+v, want HighAbove 20 WindowDays 14", w)
	}
}
