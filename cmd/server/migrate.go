package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"pulsewatch/backend/internal/config"
	"pulsewatch/backend/internal/infrastructure/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending database migrations against the PostgreSQL database.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	databaseURL, err := config.LoadDatabaseURL()
	if err != nil {
		cmd.PrintErrln(err)
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	ctx := cmd.Context()

	cmd.Println("Connecting to database...")
	db, err := postgres.New(ctx, databaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	cmd.Println("Running migrations...")
	if err := db.Migrate(ctx); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "read schema version").Wrap(err)
	}
	cmd.Printf("Migrations completed successfully (schema version %d)\n", version)
	return nil
}
