package cmd

import (
	"log/slog"

	"github.com/SscSPs/remittance_ledger/internal/platform/config"
	"github.com/SscSPs/remittance_ledger/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		applied, err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, slog.Default())
		if err != nil {
			return err
		}
		if applied {
			cmd.Println("Database migrations applied successfully.")
		} else {
			cmd.Println("No new migrations to apply.")
		}
		return nil
	},
}
