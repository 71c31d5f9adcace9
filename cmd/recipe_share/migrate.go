package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/recipe-share/internal/db"
	"github.com/jonathan/recipe-share/internal/db/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema to the configured store",
	Long:  "Apply the recipes and saved-marks schema to PostgreSQL (DATABASE_URL) or SQLite (SQLITE_PATH). Safe to run repeatedly.",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		return err
	}
	ctx := contextOrBackground(cmd)

	switch {
	case cfg.DatabaseURL != "":
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Applied schema to postgres")
	case cfg.SQLitePath != "":
		// Open applies the schema
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		fmt.Fprintf(cmd.OutOrStdout(), "Applied schema to %s\n", cfg.SQLitePath)
	default:
		return fmt.Errorf("no database configured: set DATABASE_URL or SQLITE_PATH")
	}
	return nil
}
