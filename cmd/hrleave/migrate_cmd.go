package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"hrleave/internal/platform/config"
	"hrleave/internal/platform/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if cfg.StoreDriver == config.DriverSQLite {
				conn, err := db.OpenSQLite(cfg.SQLitePath)
				if err != nil {
					return err
				}
				defer conn.Close()
				if err := db.MigrateSQLite(ctx, conn); err != nil {
					return err
				}
			} else {
				pool, err := db.Connect(ctx, cfg)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := db.MigratePostgres(ctx, pool); err != nil {
					return err
				}
			}
			slog.Info("migrations applied", "driver", cfg.StoreDriver)
			return nil
		},
	}
}
