// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftmark/driftmark/internal/config"
	"github.com/driftmark/driftmark/internal/store"
)

// ServiceStatus holds the status information reported by the status command.
type ServiceStatus struct {
	Database      string `json:"database"`
	SchemaVersion uint   `json:"schema_version"`
	SchemaDirty   bool   `json:"schema_dirty,omitempty"`
	Error         string `json:"error,omitempty"`
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database connectivity and schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, nil)
			if err != nil {
				return err
			}
			dbURL, err := databaseURL(cfg)
			if err != nil {
				return err
			}
			return runStatus(cmd, dbURL, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, dbURL string, jsonOutput bool) error {
	status := queryStatus(cmd.Context(), dbURL)

	if jsonOutput {
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err //nolint:wrapcheck // terminal output path
		}
		cmd.Println(string(out))
		return nil
	}

	cmd.Printf("database:       %s\n", status.Database)
	if status.Database == "ok" {
		cmd.Printf("schema version: %d\n", status.SchemaVersion)
		if status.SchemaDirty {
			cmd.Println("schema state:   DIRTY (manual intervention required)")
		}
	}
	if status.Error != "" {
		cmd.Printf("error:          %s\n", status.Error)
	}
	return nil
}

func queryStatus(ctx context.Context, dbURL string) ServiceStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := store.NewPool(ctx, dbURL)
	if err != nil {
		return ServiceStatus{Database: "unreachable", Error: err.Error()}
	}
	defer pool.Close()

	migrator, err := store.NewMigrator(dbURL)
	if err != nil {
		return ServiceStatus{Database: "ok", Error: err.Error()}
	}
	defer migrator.Close() //nolint:errcheck // best effort on teardown

	version, dirty, err := migrator.Version()
	if err != nil {
		return ServiceStatus{Database: "ok", Error: err.Error()}
	}

	return ServiceStatus{
		Database:      "ok",
		SchemaVersion: version,
		SchemaDirty:   dirty,
	}
}
