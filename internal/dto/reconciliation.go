package dto

import (
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CurrencyCountRequest is one counted currency.
type CurrencyCountRequest struct {
	Currency string          `json:"currency" binding:"required,len=3"`
	Counted  decimal.Decimal `json:"counted"`
}

// CreateReconciliationRequest defines an end-of-day cash count.
type CreateReconciliationRequest struct {
	Date           string                 `json:"date" binding:"required,datetime=2006-01-02"`
	Currency       string                 `json:"currency" binding:"required,len=3"`
	OpeningBalance decimal.Decimal        `json:"openingBalance"`
	ClosingBalance decimal.Decimal        `json:"closingBalance"`
	Breakdown      []CurrencyCountRequest `json:"currencyBreakdown" binding:"omitempty,dive"`
	Notes          string                 `json:"notes" binding:"max=1000"`
}

// VarianceReportParams defines query parameters for the variance report.
type VarianceReportParams struct {
	BranchID     string `form:"branchID"`
	Currency     string `form:"currency" binding:"omitempty,len=3"`
	OnlyBreached bool   `form:"onlyBreached"`
	From         string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To           string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Limit        int    `form:"limit,default=50" binding:"omitempty,min=1,max=200"`
	NextToken    string `form:"nextToken"`
}

// VarianceReportResponse is one page of reconciliations, newest first.
type VarianceReportResponse struct {
	Reconciliations []domain.Reconciliation `json:"reconciliations"`
	BreachedCount   int                     `json:"breachedCount"`
	NextToken       *string                 `json:"nextToken,omitempty"`
}

// ExpectedBalanceResponse lists what a branch should hold per currency.
type ExpectedBalanceResponse struct {
	BranchID string            `json:"branchID"`
	Balances []BalanceResponse `json:"balances"`
}
