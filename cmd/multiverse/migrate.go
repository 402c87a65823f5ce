package main

import (
	"fmt"

	"github.com/jonahsteuer/the-multiverse-sub002/internal/config"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/database"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/logging"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logging.New(cfg.GinMode)

			db, err := database.Connect(cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}

			log.WithField("driver", cfg.DBDriver).Info("migrations applied")
			return nil
		},
	}
}
