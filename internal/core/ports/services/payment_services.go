package services

import (
	"context"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/dto"
)

// TransactionIntakeSvc receives transactions from the front office
type TransactionIntakeSvc interface {
	// RegisterTransaction records a new transaction and credits the received cash.
	RegisterTransaction(ctx context.Context, actor domain.Actor, req dto.RegisterTransactionRequest) (*domain.Transaction, error)

	GetTransaction(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error)
}

// PaymentReaderSvc defines read operations for payments
type PaymentReaderSvc interface {
	// ListPayments returns the transaction and all of its payments, cancelled ones included.
	ListPayments(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, []domain.Payment, error)

	ListPaymentEdits(ctx context.Context, actor domain.Actor, paymentID string) ([]domain.PaymentEdit, error)
	ListTransactionEdits(ctx context.Context, actor domain.Actor, transactionID string) ([]domain.TransactionEdit, error)
}

// PaymentWriterSvc defines the drawdown operations
type PaymentWriterSvc interface {
	AddPayment(ctx context.Context, actor domain.Actor, transactionID string, req dto.CreatePaymentRequest) (*domain.Payment, *domain.Transaction, error)
	EditPayment(ctx context.Context, actor domain.Actor, paymentID string, req dto.EditPaymentRequest) (*domain.Payment, *domain.Transaction, error)
	CancelPayment(ctx context.Context, actor domain.Actor, paymentID string, reason string) (*domain.Payment, *domain.Transaction, error)

	// CompleteTransaction marks the transaction FULLY_PAID when the remaining balance is within tolerance.
	CompleteTransaction(ctx context.Context, actor domain.Actor, transactionID string, req dto.CompleteTransactionRequest) (*domain.Transaction, error)

	// CancelTransaction reverses the intake of an OPEN or PARTIAL transaction.
	CancelTransaction(ctx context.Context, actor domain.Actor, transactionID string, reason string) (*domain.Transaction, error)
}

// PaymentSvcFacade combines all payment-related service interfaces
type PaymentSvcFacade interface {
	TransactionIntakeSvc
	PaymentReaderSvc
	PaymentWriterSvc
}
