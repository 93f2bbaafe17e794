package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"feedwatch/internal/app"
	"feedwatch/internal/config"
	"feedwatch/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the monitor and HTTP API",
	Long:  "run loads configuration from the environment, polls the channel feed and serves status over HTTP until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}

		logger := logging.New(cfg, version, appName)
		slog.SetDefault(logger)

		logger.Info("starting",
			"app", appName,
			"version", version,
			"env", cfg.AppEnv,
			"log_level", cfg.LogLevel.String(),
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := app.Run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("run failed", "err", err)
			return err
		}

		logger.Info("shutting down")
		return nil
	},
}
