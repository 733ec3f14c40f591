package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/notifoxhq/notifox/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes spend updates, which read then write.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

const alertColumns = "id, message_id, audience, channel, message, encoding, parts, characters, cost, currency, plan, status, error, timestamp"

func (s *SQLite) RecordAlert(ctx context.Context, record *model.AlertRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	record.Timestamp = record.Timestamp.UTC()
	if record.Status == "" {
		record.Status = model.StatusSent
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_records (`+alertColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.MessageID, record.Audience, record.Channel,
		record.Message, record.Encoding, record.Parts, record.Characters,
		record.Cost.String(), record.Currency, record.Plan,
		string(record.Status), record.Error, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert alert record: %w", err)
	}
	return nil
}

func (s *SQLite) QueryAlerts(ctx context.Context, filter model.ReportFilter) ([]model.AlertRecord, error) {
	query := "SELECT " + alertColumns + " FROM alert_records"
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var records []model.AlertRecord
	for rows.Next() {
		var r model.AlertRecord
		var status string
		if err := rows.Scan(&r.ID, &r.MessageID, &r.Audience, &r.Channel, &r.Message,
			&r.Encoding, &r.Parts, &r.Characters, &r.Cost, &r.Currency, &r.Plan,
			&status, &r.Error, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		r.Status = model.AlertStatus(status)
		records = append(records, r)
	}
	return records, rows.Err()
}

// AggregateAlerts sums in Go rather than SQL so the cost total stays an
// exact decimal.
func (s *SQLite) AggregateAlerts(ctx context.Context, filter model.ReportFilter) (*model.UsageSummary, error) {
	query := "SELECT audience, encoding, parts, characters, cost, currency, status FROM alert_records"
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate alerts: %w", err)
	}
	defer rows.Close()

	summary := &model.UsageSummary{
		TotalCost:  decimal.Zero,
		ByAudience: make(map[string]decimal.Decimal),
		ByEncoding: make(map[string]int64),
	}
	for rows.Next() {
		var (
			audience, encoding, currency, status string
			parts, characters                    int64
			cost                                 decimal.Decimal
		)
		if err := rows.Scan(&audience, &encoding, &parts, &characters, &cost, &currency, &status); err != nil {
			return nil, fmt.Errorf("scan alert aggregate: %w", err)
		}

		summary.RecordCount++
		if model.AlertStatus(status) == model.StatusFailed {
			summary.FailedCount++
			continue
		}

		summary.TotalCost = summary.TotalCost.Add(cost)
		summary.TotalParts += parts
		summary.TotalCharacters += characters
		summary.ByAudience[audience] = summary.ByAudience[audience].Add(cost)
		summary.ByEncoding[encoding] += parts

		switch summary.Currency {
		case "":
			summary.Currency = currency
		case currency, model.MixedCurrency:
		default:
			summary.Currency = model.MixedCurrency
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate alerts: %w", err)
	}
	return summary, nil
}

func (s *SQLite) SetBudget(ctx context.Context, budget *model.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	if budget.Currency == "" {
		budget.Currency = "USD"
	}
	now := time.Now().UTC()
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = now
	}
	budget.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, name, limit_amount, currency, period, current_spend, alert_threshold_pct, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   limit_amount = excluded.limit_amount,
		   currency = excluded.currency,
		   period = excluded.period,
		   alert_threshold_pct = excluded.alert_threshold_pct,
		   updated_at = excluded.updated_at`,
		budget.ID, budget.Name, budget.Limit.String(), budget.Currency, string(budget.Period),
		budget.CurrentSpend.String(), budget.AlertThresholdPct, budget.CreatedAt, budget.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

const budgetColumns = "id, name, limit_amount, currency, period, current_spend, alert_threshold_pct, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (*model.Budget, error) {
	var b model.Budget
	var period string
	if err := row.Scan(&b.ID, &b.Name, &b.Limit, &b.Currency, &period, &b.CurrentSpend,
		&b.AlertThresholdPct, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Period = model.BudgetPeriod(period)
	return &b, nil
}

func (s *SQLite) GetBudget(ctx context.Context, name string) (*model.Budget, error) {
	b, err := scanBudget(s.db.QueryRowContext(ctx,
		"SELECT "+budgetColumns+" FROM budgets WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %q %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (s *SQLite) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+budgetColumns+" FROM budgets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

// UpdateBudgetSpend reads, adds and writes back inside one transaction
// because SQLite cannot add TEXT decimals itself.
func (s *SQLite) UpdateBudgetSpend(ctx context.Context, name string, amount decimal.Decimal) error {
	return s.updateSpend(ctx, name, func(current decimal.Decimal) decimal.Decimal {
		return current.Add(amount)
	})
}

func (s *SQLite) ResetBudgetSpend(ctx context.Context, name string) error {
	return s.updateSpend(ctx, name, func(decimal.Decimal) decimal.Decimal {
		return decimal.Zero
	})
}

func (s *SQLite) updateSpend(ctx context.Context, name string, next func(decimal.Decimal) decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin spend update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current decimal.Decimal
	err = tx.QueryRowContext(ctx, "SELECT current_spend FROM budgets WHERE name = ?", name).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("budget %q %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read budget spend: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE budgets SET current_spend = ?, updated_at = ? WHERE name = ?",
		next(current).String(), time.Now().UTC(), name,
	); err != nil {
		return fmt.Errorf("update budget spend: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget spend: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildWhereClause constructs a SQL WHERE clause from a ReportFilter.
func buildWhereClause(filter model.ReportFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Audience != "" {
		conditions = append(conditions, "audience = ?")
		args = append(args, filter.Audience)
	}
	if filter.Channel != "" {
		conditions = append(conditions, "channel = ?")
		args = append(args, filter.Channel)
	}
	if filter.Encoding != "" {
		conditions = append(conditions, "encoding = ?")
		args = append(args, filter.Encoding)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.StartTime.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime.UTC())
	}
	if !filter.EndTime.IsZero() {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, filter.EndTime.UTC())
	}

	return strings.Join(conditions, " AND "), args
}
