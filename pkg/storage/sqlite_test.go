package storage_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/notifoxhq/notifox/pkg/model"
	"github.com/notifoxhq/notifox/pkg/storage"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sentRecord(audience, encoding string, parts int, cost string) *model.AlertRecord {
	return &model.AlertRecord{
		Audience:   audience,
		Channel:    "sms",
		Message:    "Notifox: disk full",
		Encoding:   encoding,
		Parts:      parts,
		Characters: 18,
		Cost:       dec(cost),
		Currency:   "USD",
		Plan:       "default",
		Status:     model.StatusSent,
	}
}

func TestSQLite_RecordAlert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	record := sentRecord("ops", "GSM-7", 1, "0.025")
	record.MessageID = "msg-1"

	require.NoError(t, db.RecordAlert(ctx, record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Timestamp.IsZero())

	got, err := db.QueryAlerts(ctx, model.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "msg-1", got[0].MessageID)
	assert.Equal(t, "ops", got[0].Audience)
	assert.Equal(t, "Notifox: disk full", got[0].Message)
	assert.Equal(t, model.StatusSent, got[0].Status)
	assert.True(t, dec("0.025").Equal(got[0].Cost))
}

func TestSQLite_RecordAlert_DefaultsStatus(t *testing.T) {
	db := newTestDB(t)
	record := &model.AlertRecord{Audience: "ops", Message: "x", Encoding: "GSM-7", Cost: decimal.Zero}
	require.NoError(t, db.RecordAlert(context.Background(), record))
	assert.Equal(t, model.StatusSent, record.Status)
}

func TestSQLite_QueryAlerts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	failed := sentRecord("dev", "GSM-7", 1, "0")
	failed.Status = model.StatusFailed
	failed.Error = "rate limit exceeded"

	records := []*model.AlertRecord{
		sentRecord("ops", "GSM-7", 1, "0.025"),
		sentRecord("ops", "UCS-2", 2, "0.05"),
		sentRecord("dev", "GSM-7", 3, "0.075"),
		failed,
	}
	records[2].Channel = "email"
	for _, r := range records {
		require.NoError(t, db.RecordAlert(ctx, r))
	}

	all, err := db.QueryAlerts(ctx, model.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	ops, err := db.QueryAlerts(ctx, model.ReportFilter{Audience: "ops"})
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	ucs2, err := db.QueryAlerts(ctx, model.ReportFilter{Encoding: "UCS-2"})
	require.NoError(t, err)
	assert.Len(t, ucs2, 1)

	email, err := db.QueryAlerts(ctx, model.ReportFilter{Channel: "email"})
	require.NoError(t, err)
	assert.Len(t, email, 1)

	failures, err := db.QueryAlerts(ctx, model.ReportFilter{Status: model.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "rate limit exceeded", failures[0].Error)

	limited, err := db.QueryAlerts(ctx, model.ReportFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_QueryAlerts_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	for i, audience := range []string{"first", "second", "third"} {
		r := sentRecord(audience, "GSM-7", 1, "0.025")
		r.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.RecordAlert(ctx, r))
	}

	got, err := db.QueryAlerts(ctx, model.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "third", got[0].Audience)
	assert.Equal(t, "first", got[2].Audience)
}

func TestSQLite_QueryAlerts_TimeFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	record := sentRecord("ops", "GSM-7", 1, "0.025")
	record.Timestamp = now
	require.NoError(t, db.RecordAlert(ctx, record))

	results, err := db.QueryAlerts(ctx, model.ReportFilter{
		StartTime: now.Add(-1 * time.Hour),
		EndTime:   now.Add(1 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = db.QueryAlerts(ctx, model.ReportFilter{
		StartTime: now.Add(1 * time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, results, 0)
}

func TestSQLite_AggregateAlerts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	failed := sentRecord("dev", "GSM-7", 1, "0")
	failed.Status = model.StatusFailed

	records := []*model.AlertRecord{
		sentRecord("ops", "GSM-7", 1, "0.025"),
		sentRecord("ops", "GSM-7", 3, "0.075"),
		sentRecord("dev", "UCS-2", 2, "0.05"),
		failed,
	}
	for _, r := range records {
		require.NoError(t, db.RecordAlert(ctx, r))
	}

	summary, err := db.AggregateAlerts(ctx, model.ReportFilter{})
	require.NoError(t, err)
	assert.True(t, dec("0.15").Equal(summary.TotalCost), "got %s", summary.TotalCost)
	assert.Equal(t, "USD", summary.Currency)
	assert.Equal(t, int64(6), summary.TotalParts)
	assert.Equal(t, int64(54), summary.TotalCharacters)
	assert.Equal(t, int64(4), summary.RecordCount)
	assert.Equal(t, int64(1), summary.FailedCount)
	assert.True(t, dec("0.1").Equal(summary.ByAudience["ops"]))
	assert.True(t, dec("0.05").Equal(summary.ByAudience["dev"]))
	assert.Equal(t, int64(4), summary.ByEncoding["GSM-7"])
	assert.Equal(t, int64(2), summary.ByEncoding["UCS-2"])
}

func TestSQLite_AggregateAlerts_ExactSum(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// 0.1 has no exact float64 form; a float SUM drifts after enough rows.
	for range 200 {
		require.NoError(t, db.RecordAlert(ctx, sentRecord("ops", "GSM-7", 1, "0.1")))
	}

	summary, err := db.AggregateAlerts(ctx, model.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, "20", summary.TotalCost.String())
}

func TestSQLite_AggregateAlerts_MixedCurrency(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	eur := sentRecord("ops", "GSM-7", 1, "0.02")
	eur.Currency = "EUR"
	require.NoError(t, db.RecordAlert(ctx, sentRecord("ops", "GSM-7", 1, "0.025")))
	require.NoError(t, db.RecordAlert(ctx, eur))

	summary, err := db.AggregateAlerts(ctx, model.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, model.MixedCurrency, summary.Currency)
}

func TestSQLite_AggregateAlerts_Empty(t *testing.T) {
	db := newTestDB(t)

	summary, err := db.AggregateAlerts(context.Background(), model.ReportFilter{})
	require.NoError(t, err)
	assert.True(t, summary.TotalCost.IsZero())
	assert.Zero(t, summary.RecordCount)
	assert.Empty(t, summary.Currency)
}

func TestSQLite_Budget(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	budget := &model.Budget{
		Name:              "test-budget",
		Limit:             dec("100"),
		Period:            model.PeriodMonthly,
		AlertThresholdPct: 80.0,
	}
	require.NoError(t, db.SetBudget(ctx, budget))

	got, err := db.GetBudget(ctx, "test-budget")
	require.NoError(t, err)
	assert.Equal(t, "test-budget", got.Name)
	assert.True(t, dec("100").Equal(got.Limit))
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, model.PeriodMonthly, got.Period)
	assert.Equal(t, 80.0, got.AlertThresholdPct)
	assert.True(t, got.CurrentSpend.IsZero())
}

func TestSQLite_Budget_Update(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	budget := &model.Budget{
		Name:              "update-test",
		Limit:             dec("50"),
		Period:            model.PeriodDaily,
		AlertThresholdPct: 75.0,
	}
	require.NoError(t, db.SetBudget(ctx, budget))
	require.NoError(t, db.UpdateBudgetSpend(ctx, "update-test", dec("5")))

	// Upsert keeps accumulated spend.
	budget.Limit = dec("100")
	require.NoError(t, db.SetBudget(ctx, budget))

	got, err := db.GetBudget(ctx, "update-test")
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(got.Limit))
	assert.True(t, dec("5").Equal(got.CurrentSpend))
}

func TestSQLite_UpdateBudgetSpend(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetBudget(ctx, &model.Budget{
		Name:   "spend-test",
		Limit:  dec("100"),
		Period: model.PeriodMonthly,
	}))

	require.NoError(t, db.UpdateBudgetSpend(ctx, "spend-test", dec("25.50")))
	require.NoError(t, db.UpdateBudgetSpend(ctx, "spend-test", dec("10.25")))

	got, err := db.GetBudget(ctx, "spend-test")
	require.NoError(t, err)
	assert.True(t, dec("35.75").Equal(got.CurrentSpend))
}

func TestSQLite_UpdateBudgetSpend_Concurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetBudget(ctx, &model.Budget{Name: "busy", Limit: dec("10"), Period: model.PeriodDaily}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				assert.NoError(t, db.UpdateBudgetSpend(ctx, "busy", dec("0.025")))
			}
		}()
	}
	wg.Wait()

	got, err := db.GetBudget(ctx, "busy")
	require.NoError(t, err)
	assert.True(t, dec("2").Equal(got.CurrentSpend), "got %s", got.CurrentSpend)
}

func TestSQLite_UpdateBudgetSpend_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateBudgetSpend(context.Background(), "nonexistent", dec("10"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ResetBudgetSpend(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetBudget(ctx, &model.Budget{Name: "reset", Limit: dec("1"), Period: model.PeriodDaily}))
	require.NoError(t, db.UpdateBudgetSpend(ctx, "reset", dec("0.75")))
	require.NoError(t, db.ResetBudgetSpend(ctx, "reset"))

	got, err := db.GetBudget(ctx, "reset")
	require.NoError(t, err)
	assert.True(t, got.CurrentSpend.IsZero())

	assert.ErrorIs(t, db.ResetBudgetSpend(ctx, "missing"), storage.ErrNotFound)
}

func TestSQLite_ListBudgets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	budgets := []*model.Budget{
		{Name: "budget-b", Limit: dec("100"), Period: model.PeriodMonthly},
		{Name: "budget-a", Limit: dec("50"), Period: model.PeriodDaily},
	}
	for _, b := range budgets {
		require.NoError(t, db.SetBudget(ctx, b))
	}

	list, err := db.ListBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "budget-a", list[0].Name)
}

func TestSQLite_GetBudget_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetBudget(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLite_MigrationIdempotency(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db1, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	v1, err := db1.SchemaVersion()
	require.NoError(t, err)
	db1.Close()

	db2, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db2.Close()
	v2, err := db2.SchemaVersion()
	require.NoError(t, err)

	assert.Equal(t, 2, v1)
	assert.Equal(t, v1, v2)
}
