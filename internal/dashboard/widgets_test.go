package dashboard

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nexport/opsdash/internal/access"
	"github.com/nexport/opsdash/internal/config"
	"github.com/nexport/opsdash/internal/severity"
)

// fixedNow anchors deadline arithmetic for deterministic labels.
func fixedNow() time.Time {
	return time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)
}

func findWidget(t *testing.T, id string) Descriptor {
	t.Helper()
	for _, d := range DefaultRegistry(config.DefaultConfig(), fixedNow) {
		if d.ID == id {
			return d
		}
	}
	t.Fatalf("widget %q not in default registry", id)
	return Descriptor{}
}

// TestGapExpiryScenario covers the deadline scenario: three gaps with
// deadlines 2 days out, 1 day past, and 6 days out. All are within the
// 7-day window, so severity is CRITICAL with item count 3.
func TestGapExpiryScenario(t *testing.T) {
	d := findWidget(t, "gap-expiry")

	payload := json.RawMessage(`[
		{"name": "GAP-001", "product": "ITM-1", "gap_qty": 10, "deadline": "2026-09-01"},
		{"name": "GAP-002", "product": "ITM-2", "gap_qty": 5, "deadline": "2026-08-29"},
		{"name": "GAP-003", "product": "ITM-3", "gap_qty": 2, "deadline": "2026-09-05"}
	]`)

	eval, err := d.Interpret(payload)
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}

	if eval.Severity != severity.TierCritical {
		t.Errorf("severity = %v, want CRITICAL", eval.Severity)
	}
	if eval.Count != 3 {
		t.Errorf("count = %d, want 3", eval.Count)
	}
	if len(eval.Lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(eval.Lines))
	}
	if !strings.Contains(eval.Lines[0], "2d left") {
		t.Errorf("line 0 = %q, want '2d left'", eval.Lines[0])
	}
	if !strings.Contains(eval.Lines[1], "Expired") {
		t.Errorf("line 1 = %q, want 'Expired'", eval.Lines[1])
	}
	if !strings.Contains(eval.Lines[2], "6d left") {
		t.Errorf("line 2 = %q, want '6d left'", eval.Lines[2])
	}
}

// TestGapExpiryVolumeFallback: no gap inside the window, so volume
// decides between HIGH and the MEDIUM floor.
func TestGapExpiryVolumeFallback(t *testing.T) {
	d := findWidget(t, "gap-expiry")

	// One distant gap: below both thresholds, floor applies
	eval, err := d.Interpret(json.RawMessage(`[
		{"name": "GAP-001", "product": "ITM-1", "gap_qty": 10, "deadline": "2026-12-24"}
	]`))
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if eval.Severity != severity.TierMedium {
		t.Errorf("severity = %v, want MEDIUM floor", eval.Severity)
	}
}

// TestGapExpiryZones pins the deadline labels in wall clocks east and
// west of UTC. Deadlines are bare calendar dates, so yesterday must read
// "Expired" and tomorrow "1d left" whatever the viewer's offset.
func TestGapExpiryZones(t *testing.T) {
	payload := json.RawMessage(`[
		{"name": "GAP-001", "product": "ITM-1", "gap_qty": 1, "deadline": "2026-08-29"},
		{"name": "GAP-002", "product": "ITM-2", "gap_qty": 1, "deadline": "2026-08-31"}
	]`)

	zones := []struct {
		name string
		loc  *time.Location
	}{
		{"utc", time.UTC},
		{"east of utc", time.FixedZone("UTC+2", 2*3600)},
		{"west of utc", time.FixedZone("UTC-5", -5*3600)},
	}

	for _, tt := range zones {
		t.Run(tt.name, func(t *testing.T) {
			now := func() time.Time {
				return time.Date(2026, 8, 30, 15, 0, 0, 0, tt.loc)
			}

			var d Descriptor
			for _, w := range DefaultRegistry(config.DefaultConfig(), now) {
				if w.ID == "gap-expiry" {
					d = w
				}
			}

			eval, err := d.Interpret(payload)
			if err != nil {
				t.Fatalf("Interpret() error = %v", err)
			}
			if !strings.Contains(eval.Lines[0], "Expired") {
				t.Errorf("line 0 = %q, want 'Expired' for yesterday", eval.Lines[0])
			}
			if !strings.Contains(eval.Lines[1], "1d left") {
				t.Errorf("line 1 = %q, want '1d left' for tomorrow", eval.Lines[1])
			}
		})
	}
}

func TestGapExpiryEmpty(t *testing.T) {
	d := findWidget(t, "gap-expiry")

	eval, err := d.Interpret(json.RawMessage(`[]`))
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if eval.Count != 0 {
		t.Errorf("count = %d, want 0", eval.Count)
	}
	if eval.OKText == "" {
		t.Error("expected an OK message for the empty state")
	}
}

// TestCostDeviationScenario covers the deviation scenario: percentages
// {25, 12, 8} with thresholds 20/5. The first row is CRITICAL, the
// others HIGH, and the count is 3 — every qualifying item regardless of
// tier.
func TestCostDeviationScenario(t *testing.T) {
	d := findWidget(t, "cost-deviation")

	payload := json.RawMessage(`[
		{"item": "ITM-1", "item_name": "Pump", "deviation_pct": 25},
		{"item": "ITM-2", "item_name": "Valve", "deviation_pct": 12},
		{"item": "ITM-3", "item_name": "Hose", "deviation_pct": 8}
	]`)

	eval, err := d.Interpret(payload)
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}

	if eval.Severity != severity.TierCritical {
		t.Errorf("severity = %v, want CRITICAL (worst row wins)", eval.Severity)
	}
	if eval.Count != 3 {
		t.Errorf("count = %d, want 3", eval.Count)
	}
	if !strings.Contains(eval.Lines[0], "CRITICAL") {
		t.Errorf("line 0 = %q, want CRITICAL tag", eval.Lines[0])
	}
	for i := 1; i < 3; i++ {
		if !strings.Contains(eval.Lines[i], "HIGH") {
			t.Errorf("line %d = %q, want HIGH tag", i, eval.Lines[i])
		}
	}
}

func TestAPOutstanding(t *testing.T) {
	d := findWidget(t, "ap-outstanding")

	tests := []struct {
		name         string
		payload      string
		wantSeverity severity.Tier
		wantCount    int
	}{
		{
			name:         "quarter overdue is critical",
			payload:      `{"overdue": 2500, "total_outstanding": 10000, "overdue_count": 4}`,
			wantSeverity: severity.TierCritical,
			wantCount:    4,
		},
		{
			name:         "tenth overdue is high",
			payload:      `{"overdue": 1000, "total_outstanding": 10000, "overdue_count": 2}`,
			wantSeverity: severity.TierHigh,
			wantCount:    2,
		},
		{
			name:      "nothing overdue is the OK state",
			payload:   `{"overdue": 0, "total_outstanding": 10000, "overdue_count": 0}`,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := d.Interpret(json.RawMessage(tt.payload))
			if err != nil {
				t.Fatalf("Interpret() error = %v", err)
			}
			if eval.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", eval.Count, tt.wantCount)
			}
			if tt.wantCount > 0 && eval.Severity != tt.wantSeverity {
				t.Errorf("severity = %v, want %v", eval.Severity, tt.wantSeverity)
			}
		})
	}
}

// TestStockAlertsNearExpiryWins: a single near-expiry item beats any
// volume-based threshold, regardless of relative magnitude.
func TestStockAlertsNearExpiryWins(t *testing.T) {
	d := findWidget(t, "stock-alerts")

	eval, err := d.Interpret(json.RawMessage(`[
		{"item": "ITM-1", "item_name": "Seal kit", "days_stale": 70, "near_expiry": true},
		{"item": "ITM-2", "item_name": "Bearing", "days_stale": 65, "near_expiry": false}
	]`))
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if eval.Severity != severity.TierCritical {
		t.Errorf("severity = %v, want CRITICAL (near-expiry present)", eval.Severity)
	}
	if !strings.Contains(eval.Lines[0], "near expiry") {
		t.Errorf("line 0 = %q, want near-expiry marker", eval.Lines[0])
	}
}

func TestStockAlertsVolume(t *testing.T) {
	d := findWidget(t, "stock-alerts")

	rows := make([]string, 11)
	for i := range rows {
		rows[i] = `{"item": "ITM", "item_name": "X", "days_stale": 61, "near_expiry": false}`
	}
	payload := json.RawMessage("[" + strings.Join(rows, ",") + "]")

	eval, err := d.Interpret(payload)
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if eval.Severity != severity.TierHigh {
		t.Errorf("severity = %v, want HIGH (volume over 10)", eval.Severity)
	}
}

func TestTodoInterpreters(t *testing.T) {
	tests := []struct {
		widget       string
		wantSeverity severity.Tier
		wantLabel    string
	}{
		{"todo-material-requests", severity.TierHigh, "Review"},
		{"todo-installments", severity.TierHigh, "Pay"},
		{"todo-unresolved-gaps", severity.TierMedium, "Resolve"},
		{"todo-draft-invoices", severity.TierMedium, "Submit"},
	}

	for _, tt := range tests {
		t.Run(tt.widget, func(t *testing.T) {
			d := findWidget(t, tt.widget)

			eval, err := d.Interpret(json.RawMessage(`{"count": 3}`))
			if err != nil {
				t.Fatalf("Interpret() error = %v", err)
			}
			if eval.Todo == nil {
				t.Fatal("expected a to-do entry for positive count")
			}
			if eval.Todo.Severity != tt.wantSeverity {
				t.Errorf("severity = %v, want %v", eval.Todo.Severity, tt.wantSeverity)
			}
			if eval.Todo.Label != tt.wantLabel {
				t.Errorf("label = %q, want %q", eval.Todo.Label, tt.wantLabel)
			}
			if !strings.Contains(eval.Todo.Text, "3") {
				t.Errorf("text = %q, want the count in it", eval.Todo.Text)
			}

			// Zero count yields no entry
			eval, err = d.Interpret(json.RawMessage(`{"count": 0}`))
			if err != nil {
				t.Fatalf("Interpret() error = %v", err)
			}
			if eval.Todo != nil {
				t.Error("expected no entry for zero count")
			}
		})
	}
}

func TestAnalyticsInterpreters(t *testing.T) {
	summary := findWidget(t, "ap-summary")
	eval, err := summary.Interpret(json.RawMessage(`[
		{"supplier": "Acme", "currency": "USD", "overdue": 100, "due_this_month": 50, "future": 0, "total": 150}
	]`))
	if err != nil {
		t.Fatalf("ap-summary Interpret() error = %v", err)
	}
	if eval.Count != 1 || eval.Severity != severity.TierMedium {
		t.Errorf("ap-summary = count %d severity %v, want 1/MEDIUM", eval.Count, eval.Severity)
	}

	rate := findWidget(t, "win-rate")
	eval, err = rate.Interpret(json.RawMessage(`{"won": 21, "total": 50}`))
	if err != nil {
		t.Fatalf("win-rate Interpret() error = %v", err)
	}
	if !strings.Contains(eval.Lines[0], "42%") {
		t.Errorf("win-rate line = %q, want 42%%", eval.Lines[0])
	}
}

// TestRegistryVisibility pins down who sees which widget.
func TestRegistryVisibility(t *testing.T) {
	registry := DefaultRegistry(config.DefaultConfig(), fixedNow)

	visible := func(roles ...string) map[string]bool {
		caps := access.Resolve(roles)
		out := make(map[string]bool)
		for _, d := range registry {
			out[d.ID] = d.Visible(caps)
		}
		return out
	}

	finance := visible(access.RoleFinance)
	if !finance["gap-expiry"] || !finance["cost-deviation"] || !finance["ap-outstanding"] {
		t.Error("finance viewer missing finance widgets")
	}
	if finance["stock-alerts"] || finance["win-rate"] {
		t.Error("finance viewer sees warehouse/admin widgets")
	}

	warehouse := visible(access.RoleWarehouse)
	if warehouse["gap-expiry"] || warehouse["cost-deviation"] {
		t.Error("warehouse viewer sees Critical-section widgets")
	}
	if !warehouse["stock-alerts"] || !warehouse["todo-material-requests"] {
		t.Error("warehouse viewer missing warehouse widgets")
	}

	admin := visible(access.RoleAdmin)
	for id, ok := range admin {
		if !ok {
			t.Errorf("admin viewer missing widget %q", id)
		}
	}
}

// TestInterpretersArePure re-runs one interpreter on the same payload
// and expects identical results.
func TestInterpretersArePure(t *testing.T) {
	d := findWidget(t, "cost-deviation")
	payload := json.RawMessage(`[{"item": "ITM-1", "item_name": "Pump", "deviation_pct": 25}]`)

	first, err := d.Interpret(payload)
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	second, err := d.Interpret(payload)
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}

	if first.Severity != second.Severity || first.Count != second.Count {
		t.Errorf("interpreter not idempotent: %+v vs %+v", first, second)
	}
}
