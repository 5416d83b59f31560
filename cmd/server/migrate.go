package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"interview/internal/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		if err := db.WithContext(cmd.Context()).AutoMigrate(models.AllModels()...); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("database migrated", zap.Int("tables", len(models.AllModels())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
