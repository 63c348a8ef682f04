package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/havewant/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()

		cfg, logger := setup()
		defer logger.Sync()

		cfg.Database.Migrate = false
		db, err := openDB(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("opening database", zap.Error(err))
		}
		defer db.Close()

		if err := store.Migrate(ctx, db); err != nil {
			logger.Fatal("migrating", zap.Error(err))
		}

		logger.Info("database schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
