package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/barazo-forum/barazo-api/internal/platform/dbpg"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrExit()
			logger := newLoggerOrExit(cfg)
			defer logger.Sync()

			conn := &dbpg.Connection{
				DSN:            cfg.PostgresDSN,
				DatabaseName:   cfg.PostgresDBName,
				MigrationsPath: cfg.PostgresMigrations,
				Logger:         logger,
			}

			if err := conn.Connect(context.Background()); err != nil {
				return err
			}

			if err := conn.Migrate(); err != nil {
				return err
			}

			logger.Info("migrations applied")

			return nil
		},
	}
}
