package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyCount is one counted currency of a reconciliation.
type CurrencyCount struct {
	Currency string          `json:"currency"`
	Counted  decimal.Decimal `json:"counted"`
	Expected decimal.Decimal `json:"expected"`
	Variance decimal.Decimal `json:"variance"`
	Breached bool            `json:"breached"`
}

// Reconciliation is an immutable comparison of counted cash against the computed balance.
type Reconciliation struct {
	ReconciliationID  string          `json:"reconciliationID"`
	TenantID          string          `json:"tenantID"`
	BranchID          string          `json:"branchID"`
	Date              time.Time       `json:"date"`
	Currency          string          `json:"currency"`
	OpeningBalance    decimal.Decimal `json:"openingBalance"`
	ClosingBalance    decimal.Decimal `json:"closingBalance"`
	ExpectedBalance   decimal.Decimal `json:"expectedBalance"`
	Variance          decimal.Decimal `json:"variance"`
	Threshold         decimal.Decimal `json:"threshold"`
	Breached          bool            `json:"breached"`
	CurrencyBreakdown []CurrencyCount `json:"currencyBreakdown"`
	Notes             string          `json:"notes,omitempty"`
	CreatedBy         string          `json:"createdBy"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// ComputeVariance returns actual - expected and whether it breaches threshold.
// A zero variance never breaches.
func ComputeVariance(actual, expected, threshold decimal.Decimal) (decimal.Decimal, bool) {
	variance := actual.Sub(expected)
	return variance, IsBreach(variance, threshold)
}

// IsBreach reports |variance| >= threshold for a non-zero variance.
func IsBreach(variance, threshold decimal.Decimal) bool {
	if variance.IsZero() {
		return false
	}
	return variance.Abs().GreaterThanOrEqual(threshold)
}

// VarianceFilter selects reconciliations for the variance report.
type VarianceFilter struct {
	BranchID     string
	Currency     string
	OnlyBreached bool
	From         *time.Time
	To           *time.Time
	Limit        int
	// Keyset cursor: rows strictly after (AfterDate, AfterCreatedAt, AfterID) in newest-first order.
	AfterDate      *time.Time
	AfterCreatedAt *time.Time
	AfterID        string
}
