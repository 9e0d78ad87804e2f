package config

// DefaultConfig returns the built-in configuration: local backend,
// five-row probes, and the stock threshold policy (deviations above 20%
// critical and above 5% high, customs deadlines burning inside 7 days,
// stock stale after 60 days without movement, more than 10 open items of
// anything worth flagging).
func DefaultConfig() *DashboardConfig {
	return &DashboardConfig{
		Backend: BackendConfig{
			BaseURL:  "http://localhost:8420",
			User:     "dashboard@nexport.local",
			RowLimit: 5,
		},
		Widgets: map[string]WidgetConfig{
			"gap-expiry": {
				HighAbove:  10,
				WindowDays: 7,
			},
			"cost-deviation": {
				CriticalAbove: 20,
				HighAbove:     5,
			},
			"ap-outstanding": {
				CriticalAbove: 20,
				HighAbove:     5,
			},
			"stock-alerts": {
				HighAbove:  10,
				WindowDays: 60,
			},
			"todo-installments": {
				WindowDays: 7,
			},
		},
	}
}
