// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Driftmark CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driftmark",
		Short: "Driftmark account and session service",
		Long: `Driftmark serves account authentication for the web product:
login, logout, email verification, account deletion, and the session
cookies tying them together.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
