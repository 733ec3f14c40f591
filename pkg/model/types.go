package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertStatus records whether the Notifox API accepted an alert.
type AlertStatus string

const (
	StatusSent   AlertStatus = "sent"
	StatusFailed AlertStatus = "failed"
)

// AlertRecord is one alert delivery attempt with its billing data.
type AlertRecord struct {
	ID         string          `json:"id" db:"id"`
	MessageID  string          `json:"message_id,omitempty" db:"message_id"`
	Audience   string          `json:"audience" db:"audience"`
	Channel    string          `json:"channel,omitempty" db:"channel"`
	Message    string          `json:"message" db:"message"`
	Encoding   string          `json:"encoding" db:"encoding"`
	Parts      int             `json:"parts" db:"parts"`
	Characters int             `json:"characters" db:"characters"`
	Cost       decimal.Decimal `json:"cost" db:"cost"`
	Currency   string          `json:"currency" db:"currency"`
	Plan       string          `json:"plan" db:"plan"`
	Status     AlertStatus     `json:"status" db:"status"`
	Error      string          `json:"error,omitempty" db:"error"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
}

// BudgetPeriod defines the time window for a budget.
type BudgetPeriod string

const (
	PeriodDaily   BudgetPeriod = "daily"
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
)

// Budget defines a spending limit for a time period.
type Budget struct {
	ID                string          `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Limit             decimal.Decimal `json:"limit" db:"limit_amount"`
	Currency          string          `json:"currency" db:"currency"`
	Period            BudgetPeriod    `json:"period" db:"period"`
	CurrentSpend      decimal.Decimal `json:"current_spend" db:"current_spend"`
	AlertThresholdPct float64         `json:"alert_threshold_pct" db:"alert_threshold_pct"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// UsagePct returns spend as a percentage of the limit, or 0 without a limit.
func (b *Budget) UsagePct() float64 {
	if !b.Limit.IsPositive() {
		return 0
	}
	pct, _ := b.CurrentSpend.Div(b.Limit).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// Remaining returns the unspent part of the limit, never below zero.
func (b *Budget) Remaining() decimal.Decimal {
	r := b.Limit.Sub(b.CurrentSpend)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Exceeded reports whether spend has reached the limit.
func (b *Budget) Exceeded() bool {
	return b.Limit.IsPositive() && b.CurrentSpend.GreaterThanOrEqual(b.Limit)
}

// ReportFilter controls which alert records are included in reports.
type ReportFilter struct {
	Audience  string      `json:"audience,omitempty"`
	Channel   string      `json:"channel,omitempty"`
	Encoding  string      `json:"encoding,omitempty"`
	Status    AlertStatus `json:"status,omitempty"`
	StartTime time.Time   `json:"start_time,omitempty"`
	EndTime   time.Time   `json:"end_time,omitempty"`
	Limit     int         `json:"limit,omitempty"` // QueryAlerts only; 0 means no limit
}

// MixedCurrency is reported as UsageSummary.Currency when records in the
// summary were priced in more than one currency.
const MixedCurrency = "MIXED"

// UsageSummary holds aggregated alert statistics.
type UsageSummary struct {
	TotalCost       decimal.Decimal            `json:"total_cost"`
	Currency        string                     `json:"currency,omitempty"`
	TotalParts      int64                      `json:"total_parts"`
	TotalCharacters int64                      `json:"total_characters"`
	RecordCount     int64                      `json:"record_count"`
	FailedCount     int64                      `json:"failed_count"`
	ByAudience      map[string]decimal.Decimal `json:"by_audience,omitempty"`
	ByEncoding      map[string]int64           `json:"by_encoding,omitempty"`
}

// PeriodBounds returns the start and end time for the current period.
func PeriodBounds(period BudgetPeriod) (start, end time.Time) {
	return PeriodBoundsAt(period, time.Now())
}

// PeriodBoundsAt returns the UTC bounds of the period containing now.
func PeriodBoundsAt(period BudgetPeriod, now time.Time) (start, end time.Time) {
	now = now.UTC()
	switch period {
	case PeriodDaily:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	case PeriodWeekly:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day()-weekday+1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 7)
	case PeriodMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}

// ValidPeriod reports whether p is one of the known budget periods.
func ValidPeriod(p BudgetPeriod) bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}
