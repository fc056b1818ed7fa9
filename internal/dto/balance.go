package dto

import (
	"time"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAdjustmentRequest defines a manual balance correction.
type CreateAdjustmentRequest struct {
	Delta        decimal.Decimal `json:"delta"`
	Reason       string          `json:"reason" binding:"required,max=500"`
	SupersedesID string          `json:"supersedesID"` // Optional: adjustment this one replaces
}

// BalanceResponse defines the data returned for a cash balance.
type BalanceResponse struct {
	BranchID      string          `json:"branchID"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	Formatted     string          `json:"formatted"`
	Version       int64           `json:"version"`
	LastUpdated   time.Time       `json:"lastUpdated"`
	LastUpdatedBy string          `json:"lastUpdatedBy,omitempty"`
}

// ToBalanceResponse converts a domain.CashBalance to BalanceResponse DTO
func ToBalanceResponse(b *domain.CashBalance) BalanceResponse {
	formatted := b.Balance.String()
	if c, err := domain.LookupCurrency(b.Currency, "currency"); err == nil {
		formatted = c.Format(b.Balance)
	}
	return BalanceResponse{
		BranchID:      b.BranchID,
		Currency:      b.Currency,
		Balance:       b.Balance,
		Formatted:     formatted,
		Version:       b.Version,
		LastUpdated:   b.LastUpdated,
		LastUpdatedBy: b.LastUpdatedBy,
	}
}

// ToListBalanceResponse converts a slice of balances
func ToListBalanceResponse(balances []domain.CashBalance) []BalanceResponse {
	res := make([]BalanceResponse, len(balances))
	for i := range balances {
		res[i] = ToBalanceResponse(&balances[i])
	}
	return res
}

// ListBalancesResponse wraps the balances of a branch.
type ListBalancesResponse struct {
	BranchID string            `json:"branchID"`
	Balances []BalanceResponse `json:"balances"`
}

// RecomputeBalanceResponse reports the rebuilt balance and the drift it corrected.
type RecomputeBalanceResponse struct {
	Balance  BalanceResponse `json:"balance"`
	Previous decimal.Decimal `json:"previous"`
	Drift    decimal.Decimal `json:"drift"`
	Entries  int             `json:"entries"`
}

// ToRecomputeBalanceResponse converts a domain.BalanceRecomputation
func ToRecomputeBalanceResponse(r *domain.BalanceRecomputation) RecomputeBalanceResponse {
	return RecomputeBalanceResponse{
		Balance:  ToBalanceResponse(&r.Balance),
		Previous: r.Previous,
		Drift:    r.Drift,
		Entries:  r.Entries,
	}
}

// ListAdjustmentsResponse wraps the adjustments of a balance.
type ListAdjustmentsResponse struct {
	Adjustments []domain.Adjustment `json:"adjustments"`
}
