package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/zaqqye/exit_slip_backend/internal/config"
	"github.com/zaqqye/exit_slip_backend/internal/database"
	"github.com/zaqqye/exit_slip_backend/internal/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.Init(cfg.LogLevel, cfg.LogFormat)

			db, err := database.Connect(cfg)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer closeDB(log, db)

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("database migration failed: %w", err)
			}
			log.Info("migration completed")
			return nil
		},
	}
}

func closeDB(log *slog.Logger, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("closing database", "error", err)
	}
}
