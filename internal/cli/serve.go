package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/notifoxhq/notifox/internal/config"
	"github.com/notifoxhq/notifox/internal/metrics"
	"github.com/notifoxhq/notifox/internal/proxy"
	"github.com/notifoxhq/notifox/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the alert relay and reporting API",
	Long: `Run an HTTP server that relays POST /alert requests to the Notifox API,
recording the cost of every alert, and serves the parts estimator,
reports and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, cfg, NewLogger(cfg))
}

// NewHandler wires the relay, API and metrics routes onto one mux.
func NewHandler(cfg *config.Config, logger *slog.Logger) (http.Handler, func() error, error) {
	usageTracker, store, err := initTracker(cfg, logger, true)
	if err != nil {
		return nil, nil, err
	}

	collector := metrics.New(nil)

	relay := proxy.NewHandler(usageTracker, collector, proxy.Options{
		Defaults: proxy.Defaults{
			Audience: cfg.Defaults.Audience,
			Channel:  cfg.Defaults.Channel,
		},
		AddCostHeaders: cfg.Server.AddCostHeaders,
		DenyOnExceed:   cfg.Server.DenyOnExceed,
		MaxBodySize:    cfg.Server.MaxBodySize,
	}, logger)

	apiServer := server.NewServer(usageTracker, collector, logger)

	mux := http.NewServeMux()
	mux.Handle("/alert", relay)
	mux.Handle("/", apiServer.Handler())

	return mux, store.Close, nil
}

// Serve runs the HTTP server until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	handler, closeStore, err := NewHandler(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      handler,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 30*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 60*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "listen", cfg.Server.Listen)
		fmt.Fprintf(os.Stderr, "notifox relay listening on %s\n", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}
