package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/pkg/database"
)

func migrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if !cfg.Store.Enabled {
				return errors.New("store is disabled")
			}

			db, err := database.New(cfg.Store.ToDBConfig())
			if err != nil {
				return fmt.Errorf("failed to connect to store: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			logger.Info("Running database migrations")
			if err := database.NewMigrator(db).Run(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info("Migrations completed successfully")
			return nil
		},
	}
}
