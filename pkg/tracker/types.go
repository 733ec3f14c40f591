package tracker

import "github.com/notifoxhq/notifox/pkg/model"

// Re-export types from model package for convenience.
type (
	AlertRecord  = model.AlertRecord
	AlertStatus  = model.AlertStatus
	Budget       = model.Budget
	BudgetPeriod = model.BudgetPeriod
	ReportFilter = model.ReportFilter
	UsageSummary = model.UsageSummary
)

// Re-export constants.
const (
	PeriodDaily   = model.PeriodDaily
	PeriodWeekly  = model.PeriodWeekly
	PeriodMonthly = model.PeriodMonthly

	StatusSent   = model.StatusSent
	StatusFailed = model.StatusFailed
)

// PeriodBounds wraps model.PeriodBounds.
var PeriodBounds = model.PeriodBounds

// ValidPeriod wraps model.ValidPeriod.
var ValidPeriod = model.ValidPeriod
