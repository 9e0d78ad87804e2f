// Package probesim is a self-contained backend for local development and
// demos: a SQLite fixture database behind the same auth and probe API
// the dashboard speaks in production.
package probesim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrBadCredentials is returned by Authenticate for unknown users or
// wrong passwords, deliberately without saying which.
var ErrBadCredentials = errors.New("bad credentials")

// Store wraps the fixture database backing the probe API.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode and busy timeout.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewMemoryStore creates an in-memory store for testing.
// Uses a shared cache so multiple connections see the same database.
func NewMemoryStore(ctx context.Context) (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates all required tables if they don't exist.
func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		name TEXT PRIMARY KEY,
		password TEXT NOT NULL,
		roles TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS customs_gaps (
		name TEXT PRIMARY KEY,
		product TEXT NOT NULL,
		gap_qty REAL NOT NULL,
		status TEXT NOT NULL,
		deadline TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_customs_gaps_status_deadline
		ON customs_gaps(status, deadline);

	CREATE TABLE IF NOT EXISTS cost_variance (
		item TEXT PRIMARY KEY,
		item_name TEXT NOT NULL,
		deviation_pct REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invoices (
		name TEXT PRIMARY KEY,
		supplier TEXT NOT NULL,
		currency TEXT NOT NULL,
		invoice_type TEXT NOT NULL,
		docstatus TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS installments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice TEXT NOT NULL,
		amount REAL NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL,
		FOREIGN KEY (invoice) REFERENCES invoices(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_installments_status_due
		ON installments(status, due_date);

	CREATE TABLE IF NOT EXISTS material_requests (
		name TEXT PRIMARY KEY,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stock_alerts (
		item TEXT PRIMARY KEY,
		item_name TEXT NOT NULL,
		days_stale INTEGER NOT NULL,
		near_expiry INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS quotes (
		name TEXT PRIMARY KEY,
		status TEXT NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Gap is one expiring customs gap row, shaped for the wire.
type Gap struct {
	Name     string  `json:"name"`
	Product  string  `json:"product"`
	GapQty   float64 `json:"gap_qty"`
	Deadline string  `json:"deadline"`
}

// Deviation is one landed-vs-declared cost deviation row.
type Deviation struct {
	Item         string  `json:"item"`
	ItemName     string  `json:"item_name"`
	DeviationPct float64 `json:"deviation_pct"`
}

// Outstanding is the payables position.
type Outstanding struct {
	Overdue          float64 `json:"overdue"`
	TotalOutstanding float64 `json:"total_outstanding"`
	OverdueCount     int     `json:"overdue_count"`
}

// StockAlert is one stale-stock row.
type StockAlert struct {
	Item       string `json:"item"`
	ItemName   string `json:"item_name"`
	DaysStale  int    `json:"days_stale"`
	NearExpiry bool   `json:"near_expiry"`
}

// SupplierPosition is one supplier's outstanding payables, bucketed by age.
type SupplierPosition struct {
	Supplier string  `json:"supplier"`
	Currency string  `json:"currency"`
	Overdue  float64 `json:"overdue"`
	DueMonth float64 `json:"due_this_month"`
	Future   float64 `json:"future"`
	Total    float64 `json:"total"`
}

// WinRateSummary counts decided quotes.
type WinRateSummary struct {
	Won   int `json:"won"`
	Total int `json:"total"`
}

// Authenticate checks credentials and returns the user's roles.
func (s *Store) Authenticate(ctx context.Context, user, password string) ([]string, error) {
	var storedPassword, roles string
	err := s.db.QueryRowContext(ctx,
		`SELECT password, roles FROM users WHERE name = ?`, user,
	).Scan(&storedPassword, &roles)
	if err == sql.ErrNoRows {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if storedPassword != password {
		return nil, ErrBadCredentials
	}
	if roles == "" {
		return nil, nil
	}
	return strings.Split(roles, ","), nil
}

// ExpiringGaps returns gaps in the given statuses ordered by deadline.
func (s *Store) ExpiringGaps(ctx context.Context, statuses []string, limit int) ([]Gap, error) {
	query := fmt.Sprintf(`
		SELECT name, product, gap_qty, COALESCE(deadline, '')
		FROM customs_gaps
		WHERE status IN (%s)
		ORDER BY deadline ASC
		LIMIT ?`, placeholders(len(statuses)))

	args := make([]any, 0, len(statuses)+1)
	for _, st := range statuses {
		args = append(args, st)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gaps: %w", err)
	}
	defer rows.Close()

	var out []Gap
	for rows.Next() {
		var g Gap
		if err := rows.Scan(&g.Name, &g.Product, &g.GapQty, &g.Deadline); err != nil {
			return nil, fmt.Errorf("failed to scan gap: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UnresolvedGapCount counts gaps in the given statuses.
func (s *Store) UnresolvedGapCount(ctx context.Context, statuses []string) (int, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM customs_gaps WHERE status IN (%s)`, placeholders(len(statuses)))

	args := make([]any, 0, len(statuses))
	for _, st := range statuses {
		args = append(args, st)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count gaps: %w", err)
	}
	return n, nil
}

// CostDeviations returns items deviating beyond minPct, worst first.
func (s *Store) CostDeviations(ctx context.Context, minPct float64, limit int) ([]Deviation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item, item_name, deviation_pct
		FROM cost_variance
		WHERE ABS(deviation_pct) > ?
		ORDER BY ABS(deviation_pct) DESC
		LIMIT ?`, minPct, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deviations: %w", err)
	}
	defer rows.Close()

	var out []Deviation
	for rows.Next() {
		var d Deviation
		if err := rows.Scan(&d.Item, &d.ItemName, &d.DeviationPct); err != nil {
			return nil, fmt.Errorf("failed to scan deviation: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PayablesOutstanding sums pending AP installments, splitting out the
// overdue share as of now.
func (s *Store) PayablesOutstanding(ctx context.Context, now time.Time) (Outstanding, error) {
	today := now.Format("2006-01-02")

	var o Outstanding
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN i.due_date < ? THEN i.amount ELSE 0 END), 0),
			COALESCE(SUM(i.amount), 0),
			COALESCE(SUM(CASE WHEN i.due_date < ? THEN 1 ELSE 0 END), 0)
		FROM installments i
		JOIN invoices v ON v.name = i.invoice
		WHERE i.status = 'Pending' AND v.invoice_type = 'AP' AND v.docstatus = 'Submitted'`,
		today, today,
	).Scan(&o.Overdue, &o.TotalOutstanding, &o.OverdueCount)
	if err != nil {
		return Outstanding{}, fmt.Errorf("failed to sum payables: %w", err)
	}
	return o, nil
}

// StaleStock returns items idle beyond minDays, most idle first.
func (s *Store) StaleStock(ctx context.Context, minDays, limit int) ([]StockAlert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item, item_name, days_stale, near_expiry
		FROM stock_alerts
		WHERE days_stale > ?
		ORDER BY days_stale DESC
		LIMIT ?`, minDays, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock alerts: %w", err)
	}
	defer rows.Close()

	var out []StockAlert
	for rows.Next() {
		var a StockAlert
		if err := rows.Scan(&a.Item, &a.ItemName, &a.DaysStale, &a.NearExpiry); err != nil {
			return nil, fmt.Errorf("failed to scan stock alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MaterialRequestCount counts material requests in the given status.
func (s *Store) MaterialRequestCount(ctx context.Context, status string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM material_requests WHERE status = ?`, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count material requests: %w", err)
	}
	return n, nil
}

// InstallmentsDueCount counts pending installments due within the window.
func (s *Store) InstallmentsDueCount(ctx context.Context, now time.Time, withinDays int) (int, error) {
	horizon := now.AddDate(0, 0, withinDays).Format("2006-01-02")

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM installments WHERE status = 'Pending' AND due_date <= ?`, horizon,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count installments: %w", err)
	}
	return n, nil
}

// DraftInvoiceCount counts invoices not yet submitted.
func (s *Store) DraftInvoiceCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE docstatus = 'Draft'`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count draft invoices: %w", err)
	}
	return n, nil
}

// APSummary buckets each supplier's pending AP installments by age.
func (s *Store) APSummary(ctx context.Context, now time.Time, limit int) ([]SupplierPosition, error) {
	today := now.Format("2006-01-02")
	month := now.Format("2006-01")

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			v.supplier,
			v.currency,
			COALESCE(SUM(CASE WHEN i.due_date < ? THEN i.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN i.due_date >= ? AND substr(i.due_date, 1, 7) = ? THEN i.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN i.due_date >= ? AND substr(i.due_date, 1, 7) != ? THEN i.amount ELSE 0 END), 0),
			COALESCE(SUM(i.amount), 0)
		FROM installments i
		JOIN invoices v ON v.name = i.invoice
		WHERE i.status = 'Pending' AND v.invoice_type = 'AP' AND v.docstatus = 'Submitted'
		GROUP BY v.supplier, v.currency
		ORDER BY v.supplier ASC
		LIMIT ?`, today, today, month, today, month, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query AP summary: %w", err)
	}
	defer rows.Close()

	var out []SupplierPosition
	for rows.Next() {
		var p SupplierPosition
		if err := rows.Scan(&p.Supplier, &p.Currency, &p.Overdue, &p.DueMonth, &p.Future, &p.Total); err != nil {
			return nil, fmt.Errorf("failed to scan AP summary row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// QuoteWinRate counts won quotes against all decided quotes. Open quotes
// are not decided and stay out of both numbers.
func (s *Store) QuoteWinRate(ctx context.Context) (WinRateSummary, error) {
	var w WinRateSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'Won' THEN 1 ELSE 0 END), 0),
			COUNT(*)
		FROM quotes
		WHERE status IN ('Won', 'Lost')`,
	).Scan(&w.Won, &w.Total)
	if err != nil {
		return WinRateSummary{}, fmt.Errorf("failed to count quotes: %w", err)
	}
	return w, nil
}

// placeholders builds "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return "''"
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
