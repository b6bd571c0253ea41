package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"hrleave/internal/platform/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "hrleave",
		Short:        "Leave approval workflow and balance accrual service",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newAccrueCmd(), newTokenCmd())
	return cmd
}

// loadConfig reads the environment and installs the process logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))
	return cfg, nil
}
