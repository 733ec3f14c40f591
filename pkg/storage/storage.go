package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/notifoxhq/notifox/pkg/model"
)

// ErrNotFound is returned when a named budget does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the persistence layer for alert records and budgets.
type Storage interface {
	// RecordAlert persists a single alert record.
	RecordAlert(ctx context.Context, record *model.AlertRecord) error

	// QueryAlerts retrieves alert records matching the given filter, newest first.
	QueryAlerts(ctx context.Context, filter model.ReportFilter) ([]model.AlertRecord, error)

	// AggregateAlerts returns totals for the records matching filter.
	AggregateAlerts(ctx context.Context, filter model.ReportFilter) (*model.UsageSummary, error)

	// SetBudget creates or updates a budget.
	SetBudget(ctx context.Context, budget *model.Budget) error

	// GetBudget retrieves a budget by name.
	GetBudget(ctx context.Context, name string) (*model.Budget, error)

	// ListBudgets returns all configured budgets.
	ListBudgets(ctx context.Context) ([]model.Budget, error)

	// UpdateBudgetSpend atomically adds amount to the current spend of a budget.
	UpdateBudgetSpend(ctx context.Context, name string, amount decimal.Decimal) error

	// ResetBudgetSpend sets the current spend of a budget back to zero.
	ResetBudgetSpend(ctx context.Context, name string) error

	// Close releases resources.
	Close() error
}
