// Command notifox-relay runs the alert relay as a standalone daemon,
// configured only through config.yaml and NOTIFOX_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/notifoxhq/notifox/internal/cli"
	"github.com/notifoxhq/notifox/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := cli.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.Serve(ctx, cfg, cli.NewLogger(cfg))
}
