package main

import (
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply ledger database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.LedgerDB.AutoMigrate = false

			db, err := postgres.InitDB(cfg, log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if down > 0 {
				return migrate.RollbackMigrations(db, cfg.LedgerDB.MigrationsPath, down, log)
			}
			return migrate.RunMigrations(db, cfg.LedgerDB.MigrationsPath, log)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead")
	return cmd
}
