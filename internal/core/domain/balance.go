package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CashBalance is the physical cash a branch holds in one currency.
type CashBalance struct {
	TenantID      string          `json:"tenantID"`
	BranchID      string          `json:"branchID"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	Version       int64           `json:"version"`
	LastUpdated   time.Time       `json:"lastUpdated"`
	LastUpdatedBy string          `json:"lastUpdatedBy"`
}

// BalanceEntrySource names where a balance movement came from.
type BalanceEntrySource string

const (
	SourceIntake     BalanceEntrySource = "INTAKE"
	SourcePayment    BalanceEntrySource = "PAYMENT"
	SourceAdjustment BalanceEntrySource = "ADJUSTMENT"
)

// BalanceEntry is one signed movement in a balance's history.
type BalanceEntry struct {
	Source     BalanceEntrySource `json:"source"`
	SourceID   string             `json:"sourceID"`
	Delta      decimal.Decimal    `json:"delta"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// FoldBalance sums entries in chronological order.
func FoldBalance(entries []BalanceEntry) decimal.Decimal {
	ordered := make([]BalanceEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
	})

	total := decimal.Zero
	for _, e := range ordered {
		total = total.Add(e.Delta)
	}
	return total
}

// BalanceRecomputation reports the outcome of rebuilding a balance from history.
type BalanceRecomputation struct {
	Balance  CashBalance     `json:"balance"`
	Previous decimal.Decimal `json:"previous"`
	Drift    decimal.Decimal `json:"drift"`
	Entries  int             `json:"entries"`
}

// Adjustment is a manual correction to a cash balance.
type Adjustment struct {
	AdjustmentID string          `json:"adjustmentID"`
	TenantID     string          `json:"tenantID"`
	BranchID     string          `json:"branchID"`
	Currency     string          `json:"currency"`
	Delta        decimal.Decimal `json:"delta"`
	Reason       string          `json:"reason"`
	SupersedesID string          `json:"supersedesID,omitempty"`
	SupersededBy string          `json:"supersededBy,omitempty"`
	PerformedBy  string          `json:"performedBy"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// IsActive reports whether the adjustment still contributes to its balance.
func (a Adjustment) IsActive() bool {
	return a.SupersededBy == ""
}

// EffectiveDelta is the balance change caused by recording a, given the adjustment it replaces.
func (a Adjustment) EffectiveDelta(superseded *Adjustment) decimal.Decimal {
	if superseded == nil {
		return a.Delta
	}
	return a.Delta.Sub(superseded.Delta)
}

// BalanceDeltas collects per-currency changes for one branch.
type BalanceDeltas map[string]decimal.Decimal

// Add accumulates delta for currency.
func (d BalanceDeltas) Add(currency string, delta decimal.Decimal) {
	d[currency] = d[currency].Add(delta)
}

// Currencies returns the currencies with a non-zero change, sorted. Balance rows are
// always locked in this order.
func (d BalanceDeltas) Currencies() []string {
	out := make([]string, 0, len(d))
	for c, delta := range d {
		if !delta.IsZero() {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
