package cmd

import (
	"github.com/ahmed-abdelmageed/vise-services-sub001/config"
	"github.com/ahmed-abdelmageed/vise-services-sub001/database"
	"github.com/ahmed-abdelmageed/vise-services-sub001/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and seed lookup rows, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.IsProduction())
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.Connect(cfg.Database, log)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}
