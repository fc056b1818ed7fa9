package dto

import (
	"encoding/json"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest defines the data needed to record a drawdown.
type CreatePaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" binding:"required,len=3"`
	ExchangeRate  decimal.Decimal `json:"exchangeRate"` // Rate into the transaction's received currency
	PaymentMethod string          `json:"paymentMethod" binding:"required"`
	Details       json.RawMessage `json:"details"` // Shape depends on paymentMethod
	Notes         string          `json:"notes" binding:"max=500"`
}

// EditPaymentRequest changes amount and/or rate. Fields left nil keep their value.
type EditPaymentRequest struct {
	Amount       *decimal.Decimal `json:"amount"`
	ExchangeRate *decimal.Decimal `json:"exchangeRate"`
	Reason       string           `json:"reason" binding:"required,max=500"`
}

// CancelPaymentRequest carries the mandatory reason.
type CancelPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// PaymentResponse defines the data returned for a payment.
type PaymentResponse struct {
	PaymentID     string                `json:"paymentID"`
	TransactionID string                `json:"transactionID"`
	Amount        decimal.Decimal       `json:"amount"`
	Currency      string                `json:"currency"`
	ExchangeRate  decimal.Decimal       `json:"exchangeRate"`
	AmountInBase  decimal.Decimal       `json:"amountInBase"`
	PaymentMethod string                `json:"paymentMethod"`
	Details       domain.PaymentDetails `json:"details,omitempty"`
	Status        string                `json:"status"`
	PaidBy        string                `json:"paidBy"`
	PaidAt        time.Time             `json:"paidAt"`
	Notes         string                `json:"notes,omitempty"`
	IsEdited      bool                  `json:"isEdited"`
	EditReason    string                `json:"editReason,omitempty"`
	CancelReason  string                `json:"cancelReason,omitempty"`
	CancelledBy   string                `json:"cancelledBy,omitempty"`
	CancelledAt   *time.Time            `json:"cancelledAt,omitempty"`
}

// ToPaymentResponse converts a domain.Payment to PaymentResponse DTO
func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:     p.PaymentID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		ExchangeRate:  p.ExchangeRate,
		AmountInBase:  p.AmountInBase,
		PaymentMethod: string(p.PaymentMethod),
		Details:       p.Details,
		Status:        string(p.Status),
		PaidBy:        p.PaidBy,
		PaidAt:        p.PaidAt,
		Notes:         p.Notes,
		IsEdited:      p.IsEdited,
		EditReason:    p.EditReason,
		CancelReason:  p.CancelReason,
		CancelledBy:   p.CancelledBy,
		CancelledAt:   p.CancelledAt,
	}
}

// ToListPaymentResponse converts a slice of domain.Payment to a slice of PaymentResponse DTOs
func ToListPaymentResponse(payments []domain.Payment) []PaymentResponse {
	res := make([]PaymentResponse, len(payments))
	for i := range payments {
		res[i] = ToPaymentResponse(&payments[i])
	}
	return res
}

// PaymentResultResponse is returned by payment mutations: the payment plus the
// transaction totals it produced.
type PaymentResultResponse struct {
	Payment     PaymentResponse     `json:"payment"`
	Transaction TransactionResponse `json:"transaction"`
}

// ListPaymentsResponse wraps the payments of a transaction.
type ListPaymentsResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Payments    []PaymentResponse   `json:"payments"`
}

// ListPaymentEditsResponse wraps the edit history of a payment.
type ListPaymentEditsResponse struct {
	Edits []domain.PaymentEdit `json:"edits"`
}
