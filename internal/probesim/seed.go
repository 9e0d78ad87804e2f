package probesim

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nexport/opsdash/internal/access"
)

// Seed loads a demo dataset positioned relative to now, so deadlines and
// due dates land in sensible buckets whenever the simulator starts.
// Idempotent: rows are upserted by primary key.
func (s *Store) Seed(ctx context.Context, now time.Time) error {
	day := func(offset int) string {
		return now.AddDate(0, 0, offset).Format("2006-01-02")
	}

	users := []struct {
		name     string
		password string
		roles    []string
	}{
		{"admin@nexport.local", "nexport", []string{access.RoleAdmin}},
		{"finance@nexport.local", "nexport", []string{access.RoleFinance}},
		{"warehouse@nexport.local", "nexport", []string{access.RoleWarehouse}},
		{"procurement@nexport.local", "nexport", []string{access.RoleProcurement}},
		{"dashboard@nexport.local", "nexport", []string{access.RoleFinance, access.RoleProcurement}},
	}
	for _, u := range users {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO users (name, password, roles) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET password = excluded.password, roles = excluded.roles`,
			u.name, u.password, strings.Join(u.roles, ",")); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.name, err)
		}
	}

	gaps := []struct {
		name, product, status, deadline string
		qty                             float64
	}{
		{"GAP-0001", "ITM-PUMP-01", "Pending", day(2), 120},
		{"GAP-0002", "ITM-VALVE-03", "Partial", day(-1), 40},
		{"GAP-0003", "ITM-HOSE-11", "Pending", day(6), 15},
		{"GAP-0004", "ITM-SEAL-07", "Pending", day(25), 300},
		{"GAP-0005", "ITM-BELT-02", "Resolved", day(-10), 80},
	}
	for _, g := range gaps {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO customs_gaps (name, product, gap_qty, status, deadline) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				product = excluded.product, gap_qty = excluded.gap_qty,
				status = excluded.status, deadline = excluded.deadline`,
			g.name, g.product, g.qty, g.status, g.deadline); err != nil {
			return fmt.Errorf("failed to seed gap %s: %w", g.name, err)
		}
	}

	deviations := []struct {
		item, itemName string
		pct            float64
	}{
		{"ITM-PUMP-01", "Centrifugal pump", 25.4},
		{"ITM-VALVE-03", "Gate valve DN50", 12.1},
		{"ITM-HOSE-11", "Hydraulic hose 2m", 8.0},
		{"ITM-SEAL-07", "Seal kit", 3.2},
	}
	for _, d := range deviations {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO cost_variance (item, item_name, deviation_pct) VALUES (?, ?, ?)
			ON CONFLICT(item) DO UPDATE SET
				item_name = excluded.item_name, deviation_pct = excluded.deviation_pct`,
			d.item, d.itemName, d.pct); err != nil {
			return fmt.Errorf("failed to seed deviation %s: %w", d.item, err)
		}
	}

	invoices := []struct {
		name, supplier, currency, invoiceType, docstatus string
	}{
		{"INV-AP-001", "Baltic Metals OU", "EUR", "AP", "Submitted"},
		{"INV-AP-002", "Hanse Trading GmbH", "EUR", "AP", "Submitted"},
		{"INV-AP-003", "Baltic Metals OU", "EUR", "AP", "Draft"},
		{"INV-AR-001", "Nordpipe AS", "EUR", "AR", "Submitted"},
	}
	for _, v := range invoices {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO invoices (name, supplier, currency, invoice_type, docstatus) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				supplier = excluded.supplier, currency = excluded.currency,
				invoice_type = excluded.invoice_type, docstatus = excluded.docstatus`,
			v.name, v.supplier, v.currency, v.invoiceType, v.docstatus); err != nil {
			return fmt.Errorf("failed to seed invoice %s: %w", v.name, err)
		}
	}

	// Installments get fresh IDs per seed run; clear first to stay idempotent.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM installments`); err != nil {
		return fmt.Errorf("failed to clear installments: %w", err)
	}
	installments := []struct {
		invoice, dueDate, status string
		amount                   float64
	}{
		{"INV-AP-001", day(-12), "Pending", 2500},
		{"INV-AP-001", day(3), "Pending", 2500},
		{"INV-AP-002", day(18), "Pending", 4000},
		{"INV-AP-002", day(48), "Pending", 1000},
		{"INV-AP-001", day(-40), "Paid", 2500},
	}
	for _, i := range installments {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO installments (invoice, amount, due_date, status) VALUES (?, ?, ?, ?)`,
			i.invoice, i.amount, i.dueDate, i.status); err != nil {
			return fmt.Errorf("failed to seed installment for %s: %w", i.invoice, err)
		}
	}

	requests := []struct{ name, status string }{
		{"MR-0001", "Open"},
		{"MR-0002", "Open"},
		{"MR-0003", "Ordered"},
	}
	for _, r := range requests {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO material_requests (name, status) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET status = excluded.status`,
			r.name, r.status); err != nil {
			return fmt.Errorf("failed to seed material request %s: %w", r.name, err)
		}
	}

	stock := []struct {
		item, itemName string
		daysStale      int
		nearExpiry     bool
	}{
		{"ITM-SEAL-07", "Seal kit", 75, true},
		{"ITM-BELT-02", "Drive belt", 64, false},
		{"ITM-HOSE-11", "Hydraulic hose 2m", 30, false},
	}
	for _, a := range stock {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO stock_alerts (item, item_name, days_stale, near_expiry) VALUES (?, ?, ?, ?)
			ON CONFLICT(item) DO UPDATE SET
				item_name = excluded.item_name, days_stale = excluded.days_stale,
				near_expiry = excluded.near_expiry`,
			a.item, a.itemName, a.daysStale, a.nearExpiry); err != nil {
			return fmt.Errorf("failed to seed stock alert %s: %w", a.item, err)
		}
	}

	quotes := []struct{ name, status string }{
		{"QTN-0001", "Won"},
		{"QTN-0002", "Won"},
		{"QTN-0003", "Lost"},
		{"QTN-0004", "Won"},
		{"QTN-0005", "Lost"},
		{"QTN-0006", "Open"},
	}
	for _, q := range quotes {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO quotes (name, status) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET status = excluded.status`,
			q.name, q.status); err != nil {
			return fmt.Errorf("failed to seed quote %s: %w", q.name, err)
		}
	}

	return nil
}
