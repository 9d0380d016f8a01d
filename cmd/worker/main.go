package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ballot/internal/app/bootstrap"
	"ballot/internal/platform/config"

	"github.com/spf13/cobra"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring.
// 3) Start consumers/schedulers (outbox relay, leader tracker).
func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "ballot-worker",
		Short:         "Relay ballot outbox events and track proposal leaders",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

			cfg, err := config.LoadFile(configFile)
			if err != nil {
				return err
			}
			app, err := bootstrap.BuildWorker(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					slog.Error("worker shutdown close failed", "event", "worker_close_failed", "error", err.Error())
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", os.Getenv(config.ConfigFileEnv), "path to YAML config file")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("ballot worker stopped with error", "event", "worker_stopped", "error", err.Error())
		os.Exit(1)
	}
}
