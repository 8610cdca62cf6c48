// Package cli defines the flightdesk command tree.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/flightdesk/internal/config"
	"github.com/iliyamo/flightdesk/internal/database"
	"github.com/iliyamo/flightdesk/internal/logger"
)

var envFile string

// NewRootCmd builds the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flightdesk",
		Short:         "Pilot dispatch and shuttle manifest service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.AddCommand(
		newServeCmd(),
		newNotifierCmd(),
		newMigrateCmd(),
		newResetCountersCmd(),
		newTokenCmd(),
	)
	return root
}

// Execute runs the CLI.
func Execute() error { return NewRootCmd().Execute() }

// openDB loads the strict configuration and connects to MySQL.
func openDB(ctx context.Context) (config.Config, *logger.ZapLogger, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)
	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		_ = log.Sync()
		return config.Config{}, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, log, db, nil
}
