package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the payment lifecycle of a transaction.
type PaymentStatus string

const (
	StatusOpen      PaymentStatus = "OPEN"
	StatusPartial   PaymentStatus = "PARTIAL"
	StatusFullyPaid PaymentStatus = "FULLY_PAID"
	StatusCancelled PaymentStatus = "CANCELLED"
)

// RemittanceDirection tells whether a remittance is money owed to us or owed by us.
type RemittanceDirection string

const (
	DirectionIncoming RemittanceDirection = "INCOMING"
	DirectionOutgoing RemittanceDirection = "OUTGOING"
)

// Remittance is the optional settlement-relevant part of a transaction.
type Remittance struct {
	Direction     RemittanceDirection `json:"direction"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Rate          decimal.Decimal     `json:"rate"`
	SettledAmount decimal.Decimal     `json:"settledAmount"`
}

// Transaction holds the ledger-relevant fields of an exchange/remittance transaction.
// Its lifecycle is owned elsewhere; the ledger only tracks what was received and paid out.
type Transaction struct {
	TransactionID       string          `json:"transactionID"`
	TenantID            string          `json:"tenantID"`
	BranchID            string          `json:"branchID"`
	CustomerID          string          `json:"customerID"`
	TotalReceived       decimal.Decimal `json:"totalReceived"`
	ReceivedCurrency    string          `json:"receivedCurrency"`
	TotalPaid           decimal.Decimal `json:"totalPaid"`
	RemainingBalance    decimal.Decimal `json:"remainingBalance"`
	PaymentStatus       PaymentStatus   `json:"paymentStatus"`
	AllowPartialPayment bool            `json:"allowPartialPayment"`
	Remittance          *Remittance     `json:"remittance,omitempty"`
	Version             int64           `json:"version"`
	AuditFields
}

// IsTerminal reports whether no further payment mutations are possible.
func (t Transaction) IsTerminal() bool {
	return t.PaymentStatus == StatusFullyPaid || t.PaymentStatus == StatusCancelled
}

// Recalculate derives totalPaid, remainingBalance and the non-terminal status
// from the transaction's payments. Terminal statuses are left untouched.
func (t *Transaction) Recalculate(payments []Payment) {
	t.TotalPaid = SumActiveAmountInBase(payments)
	t.RemainingBalance = t.TotalReceived.Sub(t.TotalPaid)
	if t.IsTerminal() {
		return
	}
	if CountActive(payments) > 0 {
		t.PaymentStatus = StatusPartial
	} else {
		t.PaymentStatus = StatusOpen
	}
}

// TransactionAction names an explicit transaction status change.
type TransactionAction string

const (
	ActionCompleted TransactionAction = "COMPLETED"
	ActionCancelled TransactionAction = "CANCELLED"
)

// TransactionEdit is an append-only record of an explicit status change.
type TransactionEdit struct {
	EditID            string            `json:"editID"`
	TenantID          string            `json:"tenantID"`
	TransactionID     string            `json:"transactionID"`
	Action            TransactionAction `json:"action"`
	PreviousStatus    PaymentStatus     `json:"previousStatus"`
	NewStatus         PaymentStatus     `json:"newStatus"`
	RemainingAtChange decimal.Decimal   `json:"remainingAtChange"`
	Reason            string            `json:"reason"`
	PerformedBy       string            `json:"performedBy"`
	PerformedAt       time.Time         `json:"performedAt"`
}
