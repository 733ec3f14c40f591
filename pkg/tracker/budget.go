package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/notifoxhq/notifox/pkg/alerts"
	"github.com/notifoxhq/notifox/pkg/model"
	"github.com/notifoxhq/notifox/pkg/storage"
)

// ErrBudgetExceeded is wrapped by CheckAll when any budget is at its limit.
var ErrBudgetExceeded = errors.New("budget exceeded")

// criticalPct is the usage at which a budget alert escalates to critical.
const criticalPct = 95.0

// BudgetManager handles budget checking and alert dispatching.
type BudgetManager struct {
	storage   storage.Storage
	notifiers []alerts.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewBudgetManager creates a budget manager.
func NewBudgetManager(store storage.Storage, notifiers []alerts.Notifier, logger *slog.Logger) *BudgetManager {
	return &BudgetManager{
		storage:   store,
		notifiers: notifiers,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordSpend adds amount to every budget kept in currency and checks
// thresholds. An empty currency matches all budgets.
func (m *BudgetManager) RecordSpend(ctx context.Context, amount decimal.Decimal, currency string) error {
	if _, err := m.ResetExpired(ctx, m.now()); err != nil {
		return err
	}

	budgets, err := m.storage.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}

	for _, budget := range budgets {
		if currency != "" && budget.Currency != currency {
			m.logger.Debug("skip budget in other currency",
				"budget", budget.Name,
				"budget_currency", budget.Currency,
				"currency", currency,
			)
			continue
		}

		if err := m.storage.UpdateBudgetSpend(ctx, budget.Name, amount); err != nil {
			m.logger.Error("update budget spend", "budget", budget.Name, "error", err)
			continue
		}

		// Re-read to get updated spend
		updated, err := m.storage.GetBudget(ctx, budget.Name)
		if err != nil {
			m.logger.Error("get updated budget", "budget", budget.Name, "error", err)
			continue
		}

		m.checkThresholds(ctx, updated)
	}

	return nil
}

// CheckAll returns an error wrapping ErrBudgetExceeded for the first budget
// whose spend has reached its limit.
func (m *BudgetManager) CheckAll(ctx context.Context) error {
	if _, err := m.ResetExpired(ctx, m.now()); err != nil {
		return err
	}

	budgets, err := m.storage.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}

	for _, budget := range budgets {
		if budget.Exceeded() {
			return fmt.Errorf("budget %q: %w: %s / %s %s", budget.Name, ErrBudgetExceeded,
				budget.CurrentSpend.StringFixed(2), budget.Limit.StringFixed(2), budget.Currency)
		}
	}

	return nil
}

// ResetExpired zeroes the spend of budgets whose last update falls before
// the start of their current period, and returns their names.
func (m *BudgetManager) ResetExpired(ctx context.Context, now time.Time) ([]string, error) {
	budgets, err := m.storage.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	var reset []string
	for _, budget := range budgets {
		start, _ := model.PeriodBoundsAt(budget.Period, now)
		if !budget.UpdatedAt.Before(start) || budget.CurrentSpend.IsZero() {
			continue
		}
		if err := m.storage.ResetBudgetSpend(ctx, budget.Name); err != nil {
			return reset, fmt.Errorf("reset budget %q: %w", budget.Name, err)
		}
		m.logger.Info("budget period rolled over",
			"budget", budget.Name,
			"period", budget.Period,
			"previous_spend", budget.CurrentSpend.String(),
		)
		reset = append(reset, budget.Name)
	}
	return reset, nil
}

// Level returns the alert level for budget, or false when it is under its
// alert threshold.
func Level(budget *Budget) (alerts.AlertLevel, bool) {
	if !budget.Limit.IsPositive() {
		return "", false
	}

	pct := budget.UsagePct()
	switch {
	case budget.Exceeded():
		return alerts.AlertExceeded, true
	case pct >= criticalPct:
		return alerts.AlertCritical, true
	case pct >= budget.AlertThresholdPct:
		return alerts.AlertWarning, true
	default:
		return "", false
	}
}

// checkThresholds evaluates a budget and dispatches alerts if thresholds are crossed.
func (m *BudgetManager) checkThresholds(ctx context.Context, budget *Budget) {
	level, ok := Level(budget)
	if !ok {
		return
	}

	pct := budget.UsagePct()
	alert := alerts.Alert{
		Level:        level,
		BudgetName:   budget.Name,
		Limit:        budget.Limit,
		CurrentSpend: budget.CurrentSpend,
		Currency:     budget.Currency,
		ThresholdPct: budget.AlertThresholdPct,
		UsagePct:     pct,
		Period:       string(budget.Period),
		Message: fmt.Sprintf("Budget %q at %.1f%% (%s / %s %s)",
			budget.Name, pct, budget.CurrentSpend.StringFixed(2), budget.Limit.StringFixed(2), budget.Currency),
	}

	m.logger.Warn("budget threshold crossed",
		"budget", budget.Name,
		"level", level,
		"pct", pct,
		"spend", budget.CurrentSpend.String(),
		"limit", budget.Limit.String(),
	)

	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, alert); err != nil {
			m.logger.Error("send alert failed",
				"notifier", notifier.Name(),
				"budget", budget.Name,
				"error", err,
			)
		}
	}
}

// ResetBudgetSpend resets the current spend for a budget.
func (m *BudgetManager) ResetBudgetSpend(ctx context.Context, name string) error {
	if err := m.storage.ResetBudgetSpend(ctx, name); err != nil {
		return err
	}
	m.logger.Info("budget spend reset", "budget", name)
	return nil
}
