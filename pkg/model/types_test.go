package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/notifoxhq/notifox/pkg/model"
)

func TestPeriodBounds_Daily(t *testing.T) {
	start, end := model.PeriodBounds(model.PeriodDaily)
	assert.False(t, start.IsZero())
	assert.False(t, end.IsZero())
	assert.Equal(t, 24*time.Hour, end.Sub(start))
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 0, start.Minute())
}

func TestPeriodBounds_Weekly(t *testing.T) {
	start, end := model.PeriodBounds(model.PeriodWeekly)
	assert.False(t, start.IsZero())
	assert.Equal(t, 7*24*time.Hour, end.Sub(start))
}

func TestPeriodBoundsAt_WeekStartsMonday(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)
	start, end := model.PeriodBoundsAt(model.PeriodWeekly, sunday)
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), start)
	assert.True(t, end.After(sunday))
}

func TestPeriodBounds_Monthly(t *testing.T) {
	start, end := model.PeriodBounds(model.PeriodMonthly)
	assert.False(t, start.IsZero())
	assert.Equal(t, 1, start.Day())
	assert.True(t, end.After(start))
}

func TestPeriodBounds_Default(t *testing.T) {
	start, end := model.PeriodBounds("unknown")
	assert.False(t, start.IsZero())
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestValidPeriod(t *testing.T) {
	assert.True(t, model.ValidPeriod(model.PeriodDaily))
	assert.True(t, model.ValidPeriod(model.PeriodMonthly))
	assert.False(t, model.ValidPeriod("yearly"))
}

func TestBudget_Usage(t *testing.T) {
	b := &model.Budget{
		Limit:        decimal.RequireFromString("10"),
		CurrentSpend: decimal.RequireFromString("8.5"),
	}
	assert.InDelta(t, 85.0, b.UsagePct(), 1e-9)
	assert.True(t, decimal.RequireFromString("1.5").Equal(b.Remaining()))
	assert.False(t, b.Exceeded())

	b.CurrentSpend = decimal.RequireFromString("12")
	assert.True(t, b.Remaining().IsZero())
	assert.True(t, b.Exceeded())

	var unlimited model.Budget
	assert.Equal(t, 0.0, unlimited.UsagePct())
	assert.False(t, unlimited.Exceeded())
}
