package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/notifoxhq/notifox/internal/config"
	"github.com/notifoxhq/notifox/pkg/alerts"
	"github.com/notifoxhq/notifox/pkg/notifox"
	"github.com/notifoxhq/notifox/pkg/pricing"
	"github.com/notifoxhq/notifox/pkg/storage"
	"github.com/notifoxhq/notifox/pkg/tracker"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "notifox",
	Short: "Notifox - alerting client with SMS parts and cost tracking",
	Long: `notifox sends alerts to verified audiences through the Notifox API.
It estimates how many SMS parts an alert will be billed as before sending,
keeps a local ledger of sent alerts, enforces spending budgets and can run
as a cost-tracking relay in front of the API.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.notifox/config.yaml)")
}

// LoadDotEnv exports the variables in path unless they are already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// NewLogger creates a structured logger from config.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initRegistry builds the plan registry. Plans come from pricing.file when
// set; the configured plan is added from pricing.unit_price and
// pricing.currency when the file does not define it, and becomes the default.
func initRegistry(cfg *config.Config) (*pricing.Registry, error) {
	registry := pricing.NewRegistry()

	if cfg.Pricing.File != "" {
		plans, err := pricing.LoadPlans(cfg.Pricing.File)
		if err != nil {
			return nil, err
		}
		for _, p := range plans {
			if err := registry.Register(p); err != nil {
				return nil, err
			}
		}
	}

	if _, err := registry.Get(cfg.Pricing.Plan); err != nil {
		p, err := pricing.NewPlan(cfg.Pricing.Plan, cfg.Pricing.UnitPrice, cfg.Pricing.Currency)
		if err != nil {
			return nil, fmt.Errorf("pricing config: %w", err)
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	if err := registry.SetDefault(cfg.Pricing.Plan); err != nil {
		return nil, err
	}
	return registry, nil
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Storage, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initClient creates a Notifox API client from config.
func initClient(cfg *config.Config, logger *slog.Logger) (*notifox.Client, error) {
	policy := notifox.DefaultRetryPolicy()
	policy.MaxRetries = cfg.API.MaxRetries
	policy.Backoff = notifox.ExponentialBackoff(config.Duration(cfg.API.Backoff, 500*time.Millisecond))

	return notifox.NewClient(
		notifox.WithAPIKey(cfg.API.Key),
		notifox.WithBaseURL(cfg.API.BaseURL),
		notifox.WithTimeout(config.Duration(cfg.API.Timeout, notifox.DefaultTimeout)),
		notifox.WithRetryPolicy(policy),
		notifox.WithLogger(logger),
	)
}

// initNotifiers creates alert notifiers from config. sender may be nil, in
// which case Notifox budget alerts are skipped.
func initNotifiers(cfg *config.Config, sender alerts.AlertSender, logger *slog.Logger) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	if cfg.Alerts.Notifox.Enabled && cfg.Alerts.Notifox.Audience != "" {
		if sender == nil {
			logger.Warn("notifox budget alerts enabled without an api key")
		} else {
			notifiers = append(notifiers, alerts.NewNotifoxNotifier(
				sender,
				cfg.Alerts.Notifox.Audience,
				cfg.Alerts.Notifox.Channel,
			))
		}
	}

	return notifiers
}

// initTracker creates a fully wired usage tracker. When requireClient is
// false a missing API key leaves the tracker able to estimate and report
// but not send.
func initTracker(cfg *config.Config, logger *slog.Logger, requireClient bool) (*tracker.UsageTracker, storage.Storage, error) {
	registry, err := initRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}

	var sender tracker.Sender
	var alertSender alerts.AlertSender
	client, err := initClient(cfg, logger)
	switch {
	case err == nil:
		sender, alertSender = client, client
	case requireClient:
		return nil, nil, err
	default:
		logger.Debug("notifox client disabled", "error", err)
	}

	store, err := initStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	notifiers := initNotifiers(cfg, alertSender, logger)
	budgetMgr := tracker.NewBudgetManager(store, notifiers, logger)
	usageTracker := tracker.NewUsageTracker(registry, sender, store, budgetMgr, logger)

	return usageTracker, store, nil
}
