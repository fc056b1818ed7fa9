package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/SscSPs/remittance_ledger/pkg/database"
	"github.com/spf13/cobra"
)

var reportParams dto.VarianceReportParams

// varianceReportCmd prints every page of the variance report as a table.
var varianceReportCmd = &cobra.Command{
	Use:     "variance-report",
	Short:   "Print reconciliation variances, newest first",
	Example: `  ledgerctl variance-report --tenant t-1 --branch b-1 --from 2024-03-01 --only-breached`,
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

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tBRANCH\tCURRENCY\tEXPECTED\tCOUNTED\tVARIANCE\tBREACHED")

		params := reportParams
		breached := 0
		for {
			page, err := svc.Reconciliation.GetVarianceReport(ctx, actor, params)
			if err != nil {
				return err
			}
			for _, rec := range page.Reconciliations {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
					rec.Date.Format("2006-01-02"), rec.BranchID, rec.Currency,
					rec.ExpectedBalance, rec.ClosingBalance, rec.Variance, rec.Breached)
			}
			breached += page.BreachedCount
			if page.NextToken == nil {
				break
			}
			params.NextToken = *page.NextToken
		}
		if err := w.Flush(); err != nil {
			return err
		}
		cmd.Printf("%d breached\n", breached)
		return nil
	},
}

func init() {
	f := varianceReportCmd.Flags()
	f.StringVar(&reportParams.BranchID, "branch", "", "branch ID (all branches when empty)")
	f.StringVar(&reportParams.Currency, "currency", "", "ISO currency code")
	f.BoolVar(&reportParams.OnlyBreached, "only-breached", false, "only reconciliations over the threshold")
	f.StringVar(&reportParams.From, "from", "", "first date (YYYY-MM-DD)")
	f.StringVar(&reportParams.To, "to", "", "last date (YYYY-MM-DD)")
	f.IntVar(&reportParams.Limit, "page-size", 200, "rows fetched per page")
}
