package alerts

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// AlertLevel indicates the severity of a budget alert.
type AlertLevel string

const (
	AlertWarning  AlertLevel = "warning"  // Approaching budget threshold
	AlertCritical AlertLevel = "critical" // At or near budget limit
	AlertExceeded AlertLevel = "exceeded" // Budget limit exceeded
)

// Alert represents a budget threshold notification.
type Alert struct {
	Level        AlertLevel      `json:"level"`
	BudgetName   string          `json:"budget_name"`
	Limit        decimal.Decimal `json:"limit"`
	CurrentSpend decimal.Decimal `json:"current_spend"`
	Currency     string          `json:"currency"`
	ThresholdPct float64         `json:"threshold_pct"`
	UsagePct     float64         `json:"usage_pct"`
	Period       string          `json:"period"`
	Message      string          `json:"message"`
}

// Summary renders the alert as one line short enough for a single SMS part.
func (a Alert) Summary() string {
	return fmt.Sprintf("Budget %s %s: %s/%s %s (%.1f%%)",
		a.BudgetName, a.Level,
		a.CurrentSpend.StringFixed(2), a.Limit.StringFixed(2), a.Currency, a.UsagePct)
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
