// Package cmd provides the ledgerctl maintenance commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/core/services"
	"github.com/SscSPs/remittance_ledger/internal/platform/config"
	"github.com/SscSPs/remittance_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/remittance_ledger/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	debug    bool
	tenantID string
	userID   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Maintenance commands for the remittance ledger",
	Long: `ledgerctl runs operator tasks against the ledger database.

Example:
  ledgerctl migrate
  ledgerctl recompute-balance --tenant t-1 --branch b-1 --currency USD
  ledgerctl variance-report --tenant t-1 --branch b-1 --only-breached`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "", "tenant to operate on")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "ledgerctl", "user recorded as the actor")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(varianceReportCmd)
}

// operatorActor is a tenant-wide actor: ledgerctl may touch every branch.
func operatorActor() (domain.Actor, error) {
	if tenantID == "" {
		return domain.Actor{}, fmt.Errorf("--tenant is required")
	}
	return domain.Actor{UserID: userID, TenantID: tenantID}, nil
}

// openServices loads the config and wires the services on a fresh pool.
func openServices(ctx context.Context) (*portssvc.ServiceContainer, *pgxpool.Pool, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, true)
	if err != nil {
		return nil, nil, err
	}
	repos := pgsql.NewRepositoryProvider(pool, cfg.DBLockTimeout)
	return services.NewServiceContainer(cfg, repos), pool, nil
}
