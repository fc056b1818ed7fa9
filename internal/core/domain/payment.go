package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// PaymentRecordStatus is the status of a single payment.
type PaymentRecordStatus string

const (
	PaymentCompleted PaymentRecordStatus = "COMPLETED"
	PaymentCancelled PaymentRecordStatus = "CANCELLED"
)

// Payment is one drawdown against a transaction's received value.
type Payment struct {
	PaymentID     string              `json:"paymentID"`
	TenantID      string              `json:"tenantID"`
	TransactionID string              `json:"transactionID"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	ExchangeRate  decimal.Decimal     `json:"exchangeRate"`
	AmountInBase  decimal.Decimal     `json:"amountInBase"`
	PaymentMethod PaymentMethod       `json:"paymentMethod"`
	Details       PaymentDetails      `json:"details,omitempty"`
	Status        PaymentRecordStatus `json:"status"`
	PaidBy        string              `json:"paidBy"`
	PaidAt        time.Time           `json:"paidAt"`
	Notes         string              `json:"notes,omitempty"`
	IsEdited      bool                `json:"isEdited"`
	EditReason    string              `json:"editReason,omitempty"`
	CancelReason  string              `json:"cancelReason,omitempty"`
	CancelledBy   string              `json:"cancelledBy,omitempty"`
	CancelledAt   *time.Time          `json:"cancelledAt,omitempty"`
	AuditFields
}

// IsActive reports whether the payment counts toward totals and cash.
func (p Payment) IsActive() bool {
	return p.Status == PaymentCompleted
}

// PaymentEdit records the values a payment had before and after an edit.
type PaymentEdit struct {
	EditID               string          `json:"editID"`
	TenantID             string          `json:"tenantID"`
	PaymentID            string          `json:"paymentID"`
	PreviousAmount       decimal.Decimal `json:"previousAmount"`
	PreviousExchangeRate decimal.Decimal `json:"previousExchangeRate"`
	PreviousAmountInBase decimal.Decimal `json:"previousAmountInBase"`
	NewAmount            decimal.Decimal `json:"newAmount"`
	NewExchangeRate      decimal.Decimal `json:"newExchangeRate"`
	NewAmountInBase      decimal.Decimal `json:"newAmountInBase"`
	Reason               string          `json:"reason"`
	EditedBy             string          `json:"editedBy"`
	EditedAt             time.Time       `json:"editedAt"`
}

// ComputeAmountInBase converts amount into the transaction's received currency
// and rounds to that currency's minor unit.
func ComputeAmountInBase(amount, rate decimal.Decimal, base Currency) decimal.Decimal {
	return base.Round(amount.Mul(rate))
}

// SumActiveAmountInBase sums amountInBase over COMPLETED payments.
func SumActiveAmountInBase(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.IsActive() {
			total = total.Add(p.AmountInBase)
		}
	}
	return total
}

// CountActive counts COMPLETED payments.
func CountActive(payments []Payment) int {
	n := 0
	for _, p := range payments {
		if p.IsActive() {
			n++
		}
	}
	return n
}

// Tolerance bounds how far the paid total may drift from the received total.
type Tolerance struct {
	Absolute decimal.Decimal
	Percent  decimal.Decimal
}

// Band returns max(absolute, totalReceived * percent / 100).
func (t Tolerance) Band(totalReceived decimal.Decimal) decimal.Decimal {
	pct := totalReceived.Abs().Mul(t.Percent).Div(decimal.NewFromInt(100))
	if pct.GreaterThan(t.Absolute) {
		return pct
	}
	return t.Absolute
}

// CheckOverpayment fails when otherActive + amountInBase exceeds totalReceived + band.
func (t Tolerance) CheckOverpayment(totalReceived, otherActive, amountInBase decimal.Decimal) error {
	limit := totalReceived.Add(t.Band(totalReceived))
	if otherActive.Add(amountInBase).GreaterThan(limit) {
		allowed := limit.Sub(otherActive)
		return apperrors.NewOverpaymentError("amount",
			fmt.Sprintf("amount in base %s exceeds the remaining allowance %s", amountInBase.String(), allowed.String()))
	}
	return nil
}

// WithinBand reports whether remaining is close enough to zero to complete the transaction.
func (t Tolerance) WithinBand(totalReceived, remaining decimal.Decimal) bool {
	return remaining.Abs().LessThanOrEqual(t.Band(totalReceived))
}
