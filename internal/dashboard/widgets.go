package dashboard

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nexport/opsdash/internal/access"
	"github.com/nexport/opsdash/internal/config"
	"github.com/nexport/opsdash/internal/probe"
	"github.com/nexport/opsdash/internal/severity"
)

// Probe method names exposed by the backend.
const (
	MethodGapExpiring       = "gap.expiring"
	MethodCostDeviation     = "cost.deviation"
	MethodAPOutstanding     = "ap.outstanding"
	MethodStockAlerts       = "stock.alerts"
	MethodTodoMaterialReqs  = "todo.material_requests"
	MethodTodoInstallments  = "todo.installments_due"
	MethodTodoGaps          = "todo.unresolved_gaps"
	MethodTodoDraftInvoices = "todo.draft_invoices"
	MethodAPSummary         = "ap.summary"
	MethodWinRate           = "quote.win_rate"
)

// gapRow is one expiring customs gap.
type gapRow struct {
	Name     string  `json:"name"`
	Product  string  `json:"product"`
	GapQty   float64 `json:"gap_qty"`
	Deadline string  `json:"deadline"` // YYYY-MM-DD
}

// deviationRow is one item whose landed cost deviates from declared.
type deviationRow struct {
	Item         string  `json:"item"`
	ItemName     string  `json:"item_name"`
	DeviationPct float64 `json:"deviation_pct"`
}

// apOutstanding is the payables summary.
type apOutstanding struct {
	Overdue          float64 `json:"overdue"`
	TotalOutstanding float64 `json:"total_outstanding"`
	OverdueCount     int     `json:"overdue_count"`
}

// stockRow is one stale-stock alert.
type stockRow struct {
	Item       string `json:"item"`
	ItemName   string `json:"item_name"`
	DaysStale  int    `json:"days_stale"`
	NearExpiry bool   `json:"near_expiry"`
}

// countPayload is the shape shared by all to-do probes.
type countPayload struct {
	Count int `json:"count"`
}

// apSummaryRow is one supplier's outstanding position.
type apSummaryRow struct {
	Supplier string  `json:"supplier"`
	Currency string  `json:"currency"`
	Overdue  float64 `json:"overdue"`
	DueMonth float64 `json:"due_this_month"`
	Future   float64 `json:"future"`
	Total    float64 `json:"total"`
}

// winRate is the quote conversion summary.
type winRate struct {
	Won   int `json:"won"`
	Total int `json:"total"`
}

// DefaultRegistry builds the production widget set. Thresholds and row
// limits come from cfg; now is injectable for deterministic deadline
// labels in tests and defaults to time.Now.
func DefaultRegistry(cfg *config.DashboardConfig, now func() time.Time) []Descriptor {
	if now == nil {
		now = time.Now
	}
	limit := cfg.Backend.RowLimit
	if limit <= 0 {
		limit = 5
	}

	gapCfg := cfg.Widget("gap-expiry")
	devCfg := cfg.Widget("cost-deviation")
	apCfg := cfg.Widget("ap-outstanding")
	stockCfg := cfg.Widget("stock-alerts")
	instCfg := cfg.Widget("todo-installments")

	return []Descriptor{
		{
			ID:      "gap-expiry",
			Section: SectionCritical,
			Title:   "Customs Gaps Expiring",
			Visible: access.Any(access.Finance, access.Procurement),
			Request: probe.Request{
				Method:  MethodGapExpiring,
				Filters: []probe.Filter{probe.In("status", "Pending", "Partial")},
				OrderBy: "deadline asc",
				Limit:   limit,
			},
			ListPath:  "list/customs-gap",
			Interpret: interpretGaps(gapCfg.Thresholds(), gapCfg.WindowDays, now),
		},
		{
			ID:      "cost-deviation",
			Section: SectionCritical,
			Title:   "Cost Deviations",
			Visible: access.Any(access.Finance, access.Procurement),
			Request: probe.Request{
				Method:  MethodCostDeviation,
				Filters: []probe.Filter{{Field: "deviation_pct", Operator: ">", Value: devCfg.HighAbove}},
				OrderBy: "deviation_pct desc",
				Limit:   limit,
			},
			ListPath:  "list/cost-variance",
			Interpret: interpretDeviations(devCfg.Thresholds()),
		},
		{
			ID:      "ap-outstanding",
			Section: SectionKPI,
			Title:   "Payables Overdue",
			Visible: access.Finance,
			Request: probe.Request{
				Method:  MethodAPOutstanding,
				Filters: []probe.Filter{probe.Eq("invoice_type", "AP")},
			},
			ListPath:  "list/invoice",
			Interpret: interpretAPOutstanding(apCfg.Thresholds()),
		},
		{
			ID:      "stock-alerts",
			Section: SectionKPI,
			Title:   "Stock Alerts",
			Visible: access.Warehouse,
			Request: probe.Request{
				Method:  MethodStockAlerts,
				Filters: []probe.Filter{{Field: "days_stale", Operator: ">", Value: stockCfg.WindowDays}},
				OrderBy: "days_stale desc",
				Limit:   limit,
			},
			ListPath:  "list/item",
			Interpret: interpretStockAlerts(stockCfg.Thresholds()),
		},
		{
			ID:      "todo-material-requests",
			Section: SectionTodo,
			Title:   "Material Requests",
			Visible: access.Any(access.Warehouse, access.Procurement),
			Request: probe.Request{
				Method:  MethodTodoMaterialReqs,
				Filters: []probe.Filter{probe.Eq("status", "Open")},
			},
			ListPath: "list/material-request",
			Interpret: interpretTodoCount(severity.TierHigh, "Review",
				func(n int) string { return fmt.Sprintf("%d open material request(s) awaiting ordering", n) }),
		},
		{
			ID:      "todo-installments",
			Section: SectionTodo,
			Title:   "Installments Due",
			Visible: access.Finance,
			Request: probe.Request{
				Method:  MethodTodoInstallments,
				Filters: []probe.Filter{probe.Eq("status", "Pending"), {Field: "due_in_days", Operator: "<=", Value: instCfg.WindowDays}},
			},
			ListPath: "list/payment-schedule",
			Interpret: interpretTodoCount(severity.TierHigh, "Pay",
				func(n int) string { return fmt.Sprintf("%d installment(s) due within a week", n) }),
		},
		{
			ID:      "todo-unresolved-gaps",
			Section: SectionTodo,
			Title:   "Unresolved Gaps",
			Visible: access.Procurement,
			Request: probe.Request{
				Method:  MethodTodoGaps,
				Filters: []probe.Filter{probe.In("status", "Pending", "Partial")},
			},
			ListPath: "list/customs-gap",
			Interpret: interpretTodoCount(severity.TierMedium, "Resolve",
				func(n int) string { return fmt.Sprintf("%d customs gap(s) awaiting declaration", n) }),
		},
		{
			ID:      "todo-draft-invoices",
			Section: SectionTodo,
			Title:   "Draft Invoices",
			Visible: access.Finance,
			Request: probe.Request{
				Method:  MethodTodoDraftInvoices,
				Filters: []probe.Filter{probe.Eq("docstatus", "Draft")},
			},
			ListPath: "list/invoice",
			Interpret: interpretTodoCount(severity.TierMedium, "Submit",
				func(n int) string { return fmt.Sprintf("%d draft invoice(s) awaiting submission", n) }),
		},
		{
			ID:      "ap-summary",
			Section: SectionAnalytics,
			Title:   "Monthly AP by Supplier",
			Visible: access.Finance,
			Request: probe.Request{
				Method:  MethodAPSummary,
				OrderBy: "supplier asc",
				Limit:   limit,
			},
			ListPath:  "list/invoice",
			Interpret: interpretAPSummary,
		},
		{
			ID:      "win-rate",
			Section: SectionAnalytics,
			Title:   "Quote Win Rate",
			Visible: access.Admin,
			Request: probe.Request{
				Method: MethodWinRate,
			},
			ListPath:  "list/quote",
			Interpret: interpretWinRate,
		},
	}
}

// interpretGaps classifies expiring customs gaps. Any gap already inside
// the deadline window (or past it) escalates to CRITICAL no matter how
// few gaps there are; otherwise sheer volume decides.
func interpretGaps(th severity.Thresholds, windowDays int, now func() time.Time) InterpretFunc {
	return func(payload json.RawMessage) (Evaluation, error) {
		var rows []gapRow
		if err := json.Unmarshal(payload, &rows); err != nil {
			return Evaluation{}, fmt.Errorf("decoding gap payload: %w", err)
		}
		if len(rows) == 0 {
			return Evaluation{OKText: "No customs gaps pending"}, nil
		}

		today := startOfDay(now())
		burning := 0
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			label := "no deadline"
			if row.Deadline != "" {
				// The deadline is a bare calendar date; it must land on
				// the viewer's midnight, not UTC's, or the day count is
				// off by one east or west of Greenwich.
				deadline, err := time.ParseInLocation("2006-01-02", row.Deadline, today.Location())
				if err != nil {
					return Evaluation{}, fmt.Errorf("decoding gap deadline %q: %w", row.Deadline, err)
				}
				days := calendarDays(today, deadline)
				if days <= windowDays {
					burning++
				}
				if days < 0 {
					label = "Expired"
				} else {
					label = fmt.Sprintf("%dd left", days)
				}
			}
			lines = append(lines, fmt.Sprintf("%s  %s  qty %g  %s", row.Name, row.Product, row.GapQty, label))
		}

		return Evaluation{
			Severity: severity.ClassifyPresence(burning, float64(len(rows)), th, severity.TierMedium),
			Count:    len(rows),
			Lines:    lines,
		}, nil
	}
}

// interpretDeviations classifies cost deviations per item and rolls the
// card severity up to the worst row. Every row the probe returned
// qualifies for the banner count, whatever its tier.
func interpretDeviations(th severity.Thresholds) InterpretFunc {
	return func(payload json.RawMessage) (Evaluation, error) {
		var rows []deviationRow
		if err := json.Unmarshal(payload, &rows); err != nil {
			return Evaluation{}, fmt.Errorf("decoding deviation payload: %w", err)
		}
		if len(rows) == 0 {
			return Evaluation{OKText: "Costs within tolerance"}, nil
		}

		worst := severity.TierOK
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			tier := severity.ClassifyPercent(row.DeviationPct, th, severity.TierOK)
			worst = severity.Worst(worst, tier)
			lines = append(lines, fmt.Sprintf("%s  %s  %+.1f%%  %s", row.Item, row.ItemName, row.DeviationPct, tier))
		}

		return Evaluation{
			Severity: worst,
			Count:    len(rows),
			Lines:    lines,
		}, nil
	}
}

// interpretAPOutstanding measures the overdue share of outstanding payables.
func interpretAPOutstanding(th severity.Thresholds) InterpretFunc {
	return func(payload json.RawMessage) (Evaluation, error) {
		var summary apOutstanding
		if err := json.Unmarshal(payload, &summary); err != nil {
			return Evaluation{}, fmt.Errorf("decoding payables payload: %w", err)
		}
		if summary.OverdueCount == 0 {
			return Evaluation{OKText: "No overdue payables"}, nil
		}

		pct := 0.0
		if summary.TotalOutstanding > 0 {
			pct = summary.Overdue / summary.TotalOutstanding * 100
		}

		return Evaluation{
			Severity: severity.ClassifyPercent(pct, th, severity.TierOK),
			Count:    summary.OverdueCount,
			Lines: []string{
				fmt.Sprintf("Overdue %.2f of %.2f outstanding (%.1f%%)", summary.Overdue, summary.TotalOutstanding, pct),
				fmt.Sprintf("%d installment(s) overdue", summary.OverdueCount),
			},
		}, nil
	}
}

// interpretStockAlerts flags stale stock; any near-expiry item wins over
// the volume threshold regardless of relative magnitude.
func interpretStockAlerts(th severity.Thresholds) InterpretFunc {
	return func(payload json.RawMessage) (Evaluation, error) {
		var rows []stockRow
		if err := json.Unmarshal(payload, &rows); err != nil {
			return Evaluation{}, fmt.Errorf("decoding stock payload: %w", err)
		}
		if len(rows) == 0 {
			return Evaluation{OKText: "Stock is moving"}, nil
		}

		nearExpiry := 0
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			suffix := ""
			if row.NearExpiry {
				nearExpiry++
				suffix = "  near expiry"
			}
			lines = append(lines, fmt.Sprintf("%s  %s  %dd idle%s", row.Item, row.ItemName, row.DaysStale, suffix))
		}

		return Evaluation{
			Severity: severity.ClassifyPresence(nearExpiry, float64(len(rows)), th, severity.TierMedium),
			Count:    len(rows),
			Lines:    lines,
		}, nil
	}
}

// interpretTodoCount adapts a bare count payload into at most one to-do
// entry with a fixed severity tag and action label.
func interpretTodoCount(tier severity.Tier, label string, text func(int) string) InterpretFunc {
	return func(payload json.RawMessage) (Evaluation, error) {
		var c countPayload
		if err := json.Unmarshal(payload, &c); err != nil {
			return Evaluation{}, fmt.Errorf("decoding count payload: %w", err)
		}
		if c.Count <= 0 {
			return Evaluation{}, nil
		}
		return Evaluation{
			Count: c.Count,
			Todo: &TodoEntry{
				Severity: tier,
				Text:     text(c.Count),
				Label:    label,
			},
		}, nil
	}
}

func interpretAPSummary(payload json.RawMessage) (Evaluation, error) {
	var rows []apSummaryRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return Evaluation{}, fmt.Errorf("decoding AP summary payload: %w", err)
	}
	if len(rows) == 0 {
		return Evaluation{OKText: "No outstanding payables"}, nil
	}

	tier := severity.TierOK
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Overdue > 0 {
			tier = severity.Worst(tier, severity.TierMedium)
		}
		lines = append(lines, fmt.Sprintf("%s (%s)  overdue %.2f  month %.2f  total %.2f",
			row.Supplier, row.Currency, row.Overdue, row.DueMonth, row.Total))
	}

	return Evaluation{Severity: tier, Count: len(rows), Lines: lines}, nil
}

func interpretWinRate(payload json.RawMessage) (Evaluation, error) {
	var wr winRate
	if err := json.Unmarshal(payload, &wr); err != nil {
		return Evaluation{}, fmt.Errorf("decoding win rate payload: %w", err)
	}
	if wr.Total == 0 {
		return Evaluation{OKText: "No quotes yet"}, nil
	}

	pct := float64(wr.Won) / float64(wr.Total) * 100
	return Evaluation{
		Severity: severity.TierOK,
		Count:    wr.Total,
		Lines:    []string{fmt.Sprintf("Win rate %.0f%% (%d of %d quotes)", pct, wr.Won, wr.Total)},
	}, nil
}

// startOfDay truncates t to midnight in its location, so day arithmetic
// counts calendar days rather than 24h periods.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// calendarDays counts whole calendar days between two midnights in the
// same location. A DST transition leaves the interval an hour long or
// short, so the quotient is rounded rather than truncated.
func calendarDays(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
