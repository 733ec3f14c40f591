package tracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/notifoxhq/notifox/pkg/alerts"
	"github.com/notifoxhq/notifox/pkg/model"
	"github.com/notifoxhq/notifox/pkg/storage"
	"github.com/notifoxhq/notifox/pkg/tracker"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestBudgetManager(t *testing.T, notifiers []alerts.Notifier) (*tracker.BudgetManager, storage.Storage) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mgr := tracker.NewBudgetManager(store, notifiers, testLogger())
	return mgr, store
}

// recordingNotifier captures alerts in memory.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alerts.Alert
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(_ context.Context, a alerts.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func TestBudgetManager_RecordSpend(t *testing.T) {
	mgr, store := newTestBudgetManager(t, nil)
	ctx := context.Background()

	budget := &model.Budget{
		Name:              "test",
		Limit:             dec("100"),
		Period:            model.PeriodMonthly,
		AlertThresholdPct: 80.0,
	}
	require.NoError(t, store.SetBudget(ctx, budget))

	require.NoError(t, mgr.RecordSpend(ctx, dec("25"), "USD"))
	require.NoError(t, mgr.RecordSpend(ctx, dec("0.025"), ""))

	got, err := store.GetBudget(ctx, "test")
	require.NoError(t, err)
	assert.True(t, dec("25.025").Equal(got.CurrentSpend), "got %s", got.CurrentSpend)
}

func TestBudgetManager_RecordSpend_SkipsOtherCurrency(t *testing.T) {
	mgr, store := newTestBudgetManager(t, nil)
	ctx := context.Background()

	require.NoError(t, store.SetBudget(ctx, &model.Budget{Name: "usd", Limit: dec("10"), Currency: "USD", Period: model.PeriodDaily}))
	require.NoError(t, store.SetBudget(ctx, &model.Budget{Name: "eur", Limit: dec("10"), Currency: "EUR", Period: model.PeriodDaily}))

	require.NoError(t, mgr.RecordSpend(ctx, dec("1.5"), "EUR"))

	usd, err := store.GetBudget(ctx, "usd")
	require.NoError(t, err)
	assert.True(t, usd.CurrentSpend.IsZero())

	eur, err := store.GetBudget(ctx, "eur")
	require.NoError(t, err)
	assert.True(t, dec("1.5").Equal(eur.CurrentSpend))
}

func TestBudgetManager_CheckAll_NoBudgets(t *testing.T) {
	mgr, _ := newTestBudgetManager(t, nil)
	err := mgr.CheckAll(context.Background())
	require.NoError(t, err)
}

func TestBudgetManager_CheckAll_Exceeded(t *testing.T) {
	mgr, store := newTestBudgetManager(t, nil)
	ctx := context.Background()

	budget := &model.Budget{
		Name:   "test",
		Limit:  dec("50"),
		Period: model.PeriodMonthly,
	}
	require.NoError(t, store.SetBudget(ctx, budget))
	require.NoError(t, store.UpdateBudgetSpend(ctx, "test", dec("60")))

	err := mgr.CheckAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tracker.ErrBudgetExceeded))
	assert.Contains(t, err.Error(), "60.00 / 50.00 USD")
}

func TestBudgetManager_CheckAll_ExactlyAtLimit(t *testing.T) {
	mgr, store := newTestBudgetManager(t, nil)
	ctx := context.Background()

	require.NoError(t, store.SetBudget(ctx, &model.Budget{Name: "edge", Limit: dec("0.075"), Period: model.PeriodDaily}))
	for range 3 {
		require.NoError(t, store.UpdateBudgetSpend(ctx, "edge", dec("0.025")))
	}

	assert.ErrorIs(t, mgr.CheckAll(ctx), tracker.ErrBudgetExceeded)
}

func TestBudgetManager_AlertsTriggered(t *testing.T) {
	var received struct {
		Alert alerts.Alert `json:"alert"`
	}
	alertSent := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alertSent = true
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifiers := []alerts.Notifier{
		alerts.NewWebhookNotifier(server.URL, ""),
	}
	mgr, store := newTestBudgetManager(t, notifiers)
	ctx := context.Background()

	budget := &model.Budget{
		Name:              "alert-test",
		Limit:             dec("100"),
		Period:            model.PeriodMonthly,
		AlertThresholdPct: 80.0,
	}
	require.NoError(t, store.SetBudget(ctx, budget))

	// Spend 85% - should trigger warning
	err := mgr.RecordSpend(ctx, dec("85"), "USD")
	require.NoError(t, err)
	assert.True(t, alertSent)
	assert.Equal(t, alerts.AlertWarning, received.Alert.Level)
	assert.Equal(t, "alert-test", received.Alert.BudgetName)
}

func TestBudgetManager_NoAlert_UnderThreshold(t *testing.T) {
	rec := &recordingNotifier{}
	mgr, store := newTestBudgetManager(t, []alerts.Notifier{rec})
	ctx := context.Background()

	budget := &model.Budget{
		Name:              "under-test",
		Limit:             dec("100"),
		Period:            model.PeriodMonthly,
		AlertThresholdPct: 80.0,
	}
	require.NoError(t, store.SetBudget(ctx, budget))

	// Spend 50% - should NOT trigger
	err := mgr.RecordSpend(ctx, dec("50"), "USD")
	require.NoError(t, err)
	assert.Empty(t, rec.alerts)
}

func TestBudgetManager_Levels(t *testing.T) {
	tests := []struct {
		name  string
		spend string
		level alerts.AlertLevel
	}{
		{"warning", "85", alerts.AlertWarning},
		{"critical", "96", alerts.AlertCritical},
		{"exceeded", "101", alerts.AlertExceeded},
		{"exactly at limit", "100", alerts.AlertExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingNotifier{}
			mgr, store := newTestBudgetManager(t, []alerts.Notifier{rec})
			ctx := context.Background()

			require.NoError(t, store.SetBudget(ctx, &model.Budget{
				Name:              "levels",
				Limit:             dec("100"),
				Period:            model.PeriodMonthly,
				AlertThresholdPct: 80.0,
			}))

			require.NoError(t, mgr.RecordSpend(ctx, dec(tt.spend), "USD"))
			require.Len(t, rec.alerts, 1)
			assert.Equal(t, tt.level, rec.alerts[0].Level)
			assert.True(t, dec(tt.spend).Equal(rec.alerts[0].CurrentSpend))
		})
	}
}

func TestLevel_NoLimit(t *testing.T) {
	_, ok := tracker.Level(&model.Budget{CurrentSpend: dec("5")})
	assert.False(t, ok)
}

func TestBudgetManager_ResetBudgetSpend(t *testing.T) {
	mgr, store := newTestBudgetManager(t, nil)
	ctx := context.Background()

	budget := &model.Budget{
		Name:   "reset-test",
		Limit:  dec("100"),
		Period: model.PeriodMonthly,
	}
	require.NoError(t, store.SetBudget(ctx, budget))
	require.NoError(t, store.UpdateBudgetSpend(ctx, "reset-test", dec("75")))

	err := mgr.ResetBudgetSpend(ctx, "reset-test")
	require.NoError(t, err)

	got, err := store.GetBudget(ctx, "reset-test")
	require.NoError(t, err)
	assert.True(t, got.CurrentSpend.IsZero())
}

func TestBudgetManager_ResetExpired(t *testing.T) {
	mgr, store := newTestBudgetManager(t, nil)
	ctx := context.Background()

	require.NoError(t, store.SetBudget(ctx, &model.Budget{Name: "monthly", Limit: dec("10"), Period: model.PeriodMonthly}))
	require.NoError(t, store.SetBudget(ctx, &model.Budget{Name: "idle", Limit: dec("10"), Period: model.PeriodMonthly}))
	require.NoError(t, store.UpdateBudgetSpend(ctx, "monthly", dec("4")))

	// Still inside the current period.
	reset, err := mgr.ResetExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, reset)

	// Two months on, the spend belongs to an old period. Budgets with no
	// spend are left alone.
	reset, err = mgr.ResetExpired(ctx, time.Now().AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"monthly"}, reset)

	got, err := store.GetBudget(ctx, "monthly")
	require.NoError(t, err)
	assert.True(t, got.CurrentSpend.IsZero())
}
