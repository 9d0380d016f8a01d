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

// API process entrypoint.
// Data flow:
// 1) Load config (YAML file, then environment).
// 2) Build app wiring.
// 3) Serve HTTP until SIGINT/SIGTERM.
func main() {
	var (
		configFile string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "ballot-api",
		Short:         "Serve the ballot HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configureLogger(debug)

			cfg, err := config.LoadFile(configFile)
			if err != nil {
				return err
			}
			app, err := bootstrap.BuildAPI(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					slog.Error("api shutdown close failed", "event", "api_close_failed", "error", err.Error())
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv(config.ConfigFileEnv), "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "enable debug logging")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("ballot api stopped with error", "event", "api_stopped", "error", err.Error())
		os.Exit(1)
	}
}

func configureLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: debug,
		Level:     level,
	})))
}
