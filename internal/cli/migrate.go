package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"finboard/internal/storage"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQLite session schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if cfg.SessionBackend != "sqlite" {
			return fmt.Errorf("migrate needs session_backend sqlite, got %q", cfg.SessionBackend)
		}

		if !migrateStatus {
			if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
				return err
			}
		}
		version, dirty, err := storage.MigrationVersion(cfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d", cfg.SQLiteDBPath, version)
		if dirty {
			fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print the schema version without migrating")
	rootCmd.AddCommand(migrateCmd)
}
