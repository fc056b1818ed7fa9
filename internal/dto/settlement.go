package dto

import (
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ExecuteSettlementRequest settles amount of an incoming credit against an outgoing debt.
type ExecuteSettlementRequest struct {
	OutgoingObligationID string          `json:"outgoingObligationID" binding:"required"`
	IncomingObligationID string          `json:"incomingObligationID" binding:"required"`
	Amount               decimal.Decimal `json:"amount"`
}

// SettlementStrategyParams selects the allocation strategy; empty uses the configured default.
type SettlementStrategyParams struct {
	Strategy string `form:"strategy" json:"strategy" binding:"omitempty,oneof=FIFO BEST_RATE"`
}

// ListObligationsParams defines query parameters for listing obligations.
type ListObligationsParams struct {
	Direction string `form:"direction" binding:"omitempty,oneof=INCOMING OUTGOING"`
	Currency  string `form:"currency" binding:"omitempty,len=3"`
	BranchID  string `form:"branchID"`
	OnlyOpen  bool   `form:"onlyOpen,default=true"`
	Limit     int    `form:"limit,default=100" binding:"omitempty,min=1,max=500"`
}

// ToObligationFilter converts query parameters into a domain filter.
func (p ListObligationsParams) ToObligationFilter() domain.ObligationFilter {
	return domain.ObligationFilter{
		Direction: domain.RemittanceDirection(p.Direction),
		Currency:  p.Currency,
		BranchID:  p.BranchID,
		OnlyOpen:  p.OnlyOpen,
		Limit:     p.Limit,
	}
}

// ObligationResponse defines the data returned for an obligation.
type ObligationResponse struct {
	domain.Obligation
	Unsettled decimal.Decimal `json:"unsettled"`
}

// ToListObligationResponse converts obligations and adds their unsettled amount.
func ToListObligationResponse(obligations []domain.Obligation) []ObligationResponse {
	res := make([]ObligationResponse, len(obligations))
	for i, o := range obligations {
		res[i] = ObligationResponse{Obligation: o, Unsettled: o.Unsettled()}
	}
	return res
}

// ListObligationsResponse wraps the list of obligations.
type ListObligationsResponse struct {
	Obligations []ObligationResponse `json:"obligations"`
}

// AutoSettleResponse returns the executed plan and the settlements it created.
type AutoSettleResponse struct {
	Plan        domain.SettlementPlan `json:"plan"`
	Settlements []domain.Settlement   `json:"settlements"`
}

// ListSettlementsResponse wraps the settlements of an obligation.
type ListSettlementsResponse struct {
	Settlements []domain.Settlement `json:"settlements"`
}
