package config

import "github.com/nexport/opsdash/internal/severity"

// BackendConfig points the dashboard at its probe backend.
type BackendConfig struct {
	BaseURL  string `json:"base_url"`            // e.g. "http://localhost:8420"
	User     string `json:"user,omitempty"`      // login user; the password comes from the environment
	RowLimit int    `json:"row_limit,omitempty"` // cap on rows per probe (default 5)
}

// WidgetConfig holds one widget's classification thresholds.
// Thresholds are configuration, not code: the numbers here are operator
// policy to be confirmed with stakeholders, not engine invariants.
type WidgetConfig struct {
	CriticalAbove float64 `json:"critical_above,omitempty"`
	HighAbove     float64 `json:"high_above,omitempty"`
	WindowDays    int     `json:"window_days,omitempty"` // lookahead/staleness window where applicable
}

// Thresholds converts a widget entry to classifier thresholds.
func (w WidgetConfig) Thresholds() severity.Thresholds {
	return severity.Thresholds{CriticalAbove: w.CriticalAbove, HighAbove: w.HighAbove}
}

// DashboardConfig is the top-level configuration.
type DashboardConfig struct {
	Backend BackendConfig           `json:"backend"`
	Widgets map[string]WidgetConfig `json:"widgets"`
}

// Widget returns the config entry for a widget ID, falling back to the
// built-in defaults when the entry is absent.
func (c *DashboardConfig) Widget(id string) WidgetConfig {
	if w, ok := c.Widgets[id]; ok {
		return w
	}
	return DefaultConfig().Widgets[id]
}
