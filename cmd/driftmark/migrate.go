// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/driftmark/driftmark/internal/config"
	"github.com/driftmark/driftmark/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var down bool
	var force int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply pending schema migrations against the PostgreSQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			dbURL, err := databaseURL(cfg)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("force") {
				return migrateForce(cmd, dbURL, force)
			}
			if down {
				return migrateDown(cmd, dbURL)
			}

			cmd.Println("Running migrations...")
			if err := migrateUp(dbURL, slog.Default()); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations (destructive)")
	cmd.Flags().IntVar(&force, "force", 0, "force the schema version without running migrations")

	return cmd
}

// migrateUp applies all pending migrations. Shared with serve's
// --auto-migrate path.
func migrateUp(dbURL string, logger *slog.Logger) error {
	migrator, err := store.NewMigrator(dbURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("migrator close failed", "error", closeErr)
		}
	}()

	pending, err := migrator.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Info("schema up to date")
		return nil
	}

	if err := migrator.Up(); err != nil {
		return err
	}
	logger.Info("migrations applied", "count", len(pending))
	return nil
}

func migrateDown(cmd *cobra.Command, dbURL string) error {
	migrator, err := store.NewMigrator(dbURL)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck // best effort on teardown

	cmd.Println("Rolling back all migrations...")
	if err := migrator.Down(); err != nil {
		return err
	}
	cmd.Println("Rollback complete")
	return nil
}

func migrateForce(cmd *cobra.Command, dbURL string, version int) error {
	migrator, err := store.NewMigrator(dbURL)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck // best effort on teardown

	if err := migrator.Force(version); err != nil {
		return err
	}
	cmd.Printf("Schema version forced to %d\n", version)
	return nil
}
