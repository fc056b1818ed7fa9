package cmd

import (
	"log/slog"

	"github.com/SscSPs/remittance_ledger/pkg/database"
	"github.com/spf13/cobra"
)

var (
	recomputeBranch   string
	recomputeCurrency string
)

// recomputeCmd rebuilds one balance from its history and reports the drift it corrected.
var recomputeCmd = &cobra.Command{
	Use:     "recompute-balance",
	Short:   "Rebuild a branch balance from its history",
	Example: `  ledgerctl recompute-balance --tenant t-1 --branch b-1 --currency IRR`,
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, err := operatorActor()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		svc, pool, err := openServices(ctx)
		if err != nil {
			return err
		}
		defer database.ClosePgxPool(pool)

		result, err := svc.Balance.RecomputeBalance(ctx, actor, recomputeBranch, recomputeCurrency)
		if err != nil {
			return err
		}
		if !result.Drift.IsZero() {
			slog.Warn("Balance drift corrected",
				slog.String("branch_id", result.Balance.BranchID),
				slog.String("currency", result.Balance.Currency),
				slog.String("drift", result.Drift.String()))
		}
		cmd.Printf("%s %s: balance %s (previous %s, drift %s, %d entries)\n",
			result.Balance.BranchID, result.Balance.Currency,
			result.Balance.Balance, result.Previous, result.Drift, result.Entries)
		return nil
	},
}

func init() {
	recomputeCmd.Flags().StringVar(&recomputeBranch, "branch", "", "branch ID")
	recomputeCmd.Flags().StringVar(&recomputeCurrency, "currency", "", "ISO currency code")
	_ = recomputeCmd.MarkFlagRequired("branch")
	_ = recomputeCmd.MarkFlagRequired("currency")
}
