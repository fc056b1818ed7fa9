package dto

import (
	"time"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RegisterRemittanceRequest describes the settlement-relevant part of a transaction.
type RegisterRemittanceRequest struct {
	Direction string          `json:"direction" binding:"required,oneof=INCOMING OUTGOING"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" binding:"required,len=3"`
	Rate      decimal.Decimal `json:"rate"`
}

// RegisterTransactionRequest is the intake event of a transaction created by the
// exchange/remittance front office.
type RegisterTransactionRequest struct {
	TransactionID       string                     `json:"transactionID" binding:"omitempty,max=64"` // Optional, generated when empty
	BranchID            string                     `json:"branchID"`                                 // Defaults to the actor's branch
	CustomerID          string                     `json:"customerID" binding:"required"`
	TotalReceived       decimal.Decimal            `json:"totalReceived"`
	ReceivedCurrency    string                     `json:"receivedCurrency" binding:"required,len=3"`
	AllowPartialPayment bool                       `json:"allowPartialPayment"`
	Remittance          *RegisterRemittanceRequest `json:"remittance"`
}

// CompleteTransactionRequest is the optional body of completeTransaction.
type CompleteTransactionRequest struct {
	Notes string `json:"notes" binding:"max=500"`
}

// CancelTransactionRequest carries the mandatory reason.
type CancelTransactionRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	TransactionID       string             `json:"transactionID"`
	BranchID            string             `json:"branchID"`
	CustomerID          string             `json:"customerID"`
	TotalReceived       decimal.Decimal    `json:"totalReceived"`
	ReceivedCurrency    string             `json:"receivedCurrency"`
	TotalPaid           decimal.Decimal    `json:"totalPaid"`
	RemainingBalance    decimal.Decimal    `json:"remainingBalance"`
	PaymentStatus       string             `json:"paymentStatus"`
	AllowPartialPayment bool               `json:"allowPartialPayment"`
	Remittance          *domain.Remittance `json:"remittance,omitempty"`
	Version             int64              `json:"version"`
	CreatedAt           time.Time          `json:"createdAt"`
	CreatedBy           string             `json:"createdBy"`
	LastUpdatedAt       time.Time          `json:"lastUpdatedAt"`
	LastUpdatedBy       string             `json:"lastUpdatedBy"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:       t.TransactionID,
		BranchID:            t.BranchID,
		CustomerID:          t.CustomerID,
		TotalReceived:       t.TotalReceived,
		ReceivedCurrency:    t.ReceivedCurrency,
		TotalPaid:           t.TotalPaid,
		RemainingBalance:    t.RemainingBalance,
		PaymentStatus:       string(t.PaymentStatus),
		AllowPartialPayment: t.AllowPartialPayment,
		Remittance:          t.Remittance,
		Version:             t.Version,
		CreatedAt:           t.CreatedAt,
		CreatedBy:           t.CreatedBy,
		LastUpdatedAt:       t.LastUpdatedAt,
		LastUpdatedBy:       t.LastUpdatedBy,
	}
}

// ListTransactionEditsResponse wraps the status change history of a transaction.
type ListTransactionEditsResponse struct {
	Edits []domain.TransactionEdit `json:"edits"`
}
