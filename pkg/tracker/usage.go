package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/notifoxhq/notifox/pkg/notifox"
	"github.com/notifoxhq/notifox/pkg/pricing"
	"github.com/notifoxhq/notifox/pkg/segment"
	"github.com/notifoxhq/notifox/pkg/storage"
)

// Sender delivers an alert to the Notifox API. *notifox.Client implements it.
type Sender interface {
	SendAlert(ctx context.Context, req notifox.AlertRequest) (*notifox.AlertResponse, error)
}

// SendRequest is one alert to deliver and record.
type SendRequest struct {
	Audience string
	Alert    string
	Channel  string
	// Plan prices the local estimate; empty selects the default plan.
	Plan string
	// EnforceBudget refuses to send while any budget is exceeded.
	EnforceBudget bool
}

// SendResult is what a successful Send returns.
type SendResult struct {
	Record   *AlertRecord
	Estimate segment.Result
	Response *notifox.AlertResponse
}

// UsageTracker is the main entry point for sending, recording and querying alerts.
type UsageTracker struct {
	registry   *pricing.Registry
	sender     Sender
	storage    storage.Storage
	calculator *CostCalculator
	budget     *BudgetManager
	logger     *slog.Logger
}

// NewUsageTracker creates a usage tracker with the given dependencies.
// sender may be nil for trackers that only estimate and report.
func NewUsageTracker(registry *pricing.Registry, sender Sender, store storage.Storage, budget *BudgetManager, logger *slog.Logger) *UsageTracker {
	return &UsageTracker{
		registry:   registry,
		sender:     sender,
		storage:    store,
		calculator: NewCostCalculator(registry),
		budget:     budget,
		logger:     logger,
	}
}

// Estimate prices alert under plan without sending it.
func (t *UsageTracker) Estimate(plan, alert string) (segment.Result, error) {
	return t.calculator.Calculate(plan, alert)
}

// Send estimates, delivers and records one alert. Failed deliveries are
// recorded with status failed and zero cost before the error is returned.
func (t *UsageTracker) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if t.sender == nil {
		return nil, errors.New("send alert: no sender configured")
	}
	if err := notifox.Validate(notifox.AlertRequest{Audience: req.Audience, Alert: req.Alert, Channel: req.Channel}); err != nil {
		return nil, err
	}

	plan, err := t.registry.Get(req.Plan)
	if err != nil {
		return nil, fmt.Errorf("cost calculation: %w", err)
	}
	estimate := CalculateParts(plan, req.Alert)

	if req.EnforceBudget {
		if err := t.CheckBudget(ctx); err != nil {
			return nil, err
		}
	}

	record := &AlertRecord{
		ID:         uuid.New().String(),
		Audience:   req.Audience,
		Channel:    req.Channel,
		Message:    estimate.Message,
		Encoding:   estimate.Encoding.String(),
		Parts:      estimate.Parts,
		Characters: estimate.Characters,
		Cost:       estimate.Cost,
		Currency:   estimate.Currency,
		Plan:       plan.Name,
		Timestamp:  time.Now().UTC(),
	}

	resp, sendErr := t.sender.SendAlert(ctx, notifox.AlertRequest{
		Audience: req.Audience,
		Alert:    req.Alert,
		Channel:  req.Channel,
	})
	if sendErr != nil {
		record.Status = StatusFailed
		record.Error = sendErr.Error()
		record.Cost = decimal.Zero
		if err := t.storage.RecordAlert(ctx, record); err != nil {
			t.logger.Error("store failed alert", "audience", req.Audience, "error", err)
		}
		t.logger.Warn("alert send failed",
			"audience", req.Audience,
			"parts", estimate.Parts,
			"error", sendErr,
		)
		return nil, fmt.Errorf("send alert: %w", sendErr)
	}

	record.Status = StatusSent
	applyResponse(record, resp)
	if record.Parts != estimate.Parts {
		t.logger.Debug("api parts differ from estimate",
			"audience", req.Audience,
			"estimate", estimate.Parts,
			"api", record.Parts,
		)
	}

	if err := t.storage.RecordAlert(ctx, record); err != nil {
		return nil, fmt.Errorf("store alert: %w", err)
	}

	t.logger.Info("alert sent",
		"audience", record.Audience,
		"message_id", record.MessageID,
		"encoding", record.Encoding,
		"parts", record.Parts,
		"cost", record.Cost.String(),
		"currency", record.Currency,
	)

	if t.budget != nil {
		if checkErr := t.budget.RecordSpend(ctx, record.Cost, record.Currency); checkErr != nil {
			t.logger.Error("budget check failed", "error", checkErr)
		}
	}

	return &SendResult{Record: record, Estimate: estimate, Response: resp}, nil
}

// applyResponse prefers the billing the API reported over the local estimate.
func applyResponse(record *AlertRecord, resp *notifox.AlertResponse) {
	if resp == nil {
		return
	}
	record.MessageID = resp.MessageID
	if resp.Currency == "" {
		return
	}
	record.Parts = resp.Parts
	record.Cost = resp.Cost
	record.Currency = resp.Currency
	if resp.Encoding != "" {
		record.Encoding = resp.Encoding
	}
	if resp.Characters > 0 {
		record.Characters = resp.Characters
	}
}

// Report generates a usage summary for the given filter.
func (t *UsageTracker) Report(ctx context.Context, filter ReportFilter) (*UsageSummary, error) {
	return t.storage.AggregateAlerts(ctx, filter)
}

// Query returns individual alert records for the given filter.
func (t *UsageTracker) Query(ctx context.Context, filter ReportFilter) ([]AlertRecord, error) {
	return t.storage.QueryAlerts(ctx, filter)
}

// CheckBudget verifies if spending is within budget limits. Returns an error if any budget is exceeded.
func (t *UsageTracker) CheckBudget(ctx context.Context) error {
	if t.budget == nil {
		return nil
	}
	return t.budget.CheckAll(ctx)
}
