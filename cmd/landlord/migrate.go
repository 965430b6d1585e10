package main

import (
	"github.com/spf13/cobra"

	"github.com/dukerupert/landlord/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Open applies migrations before returning.
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("migrations applied", "db", cfg.DBPath)
		return nil
	},
}
