package repositories

import (
	"context"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// TransactionReader defines read operations for ledger transactions and their payments
type TransactionReader interface {
	FindTransactionByID(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error)
	FindPaymentByID(ctx context.Context, tenantID, paymentID string) (*domain.Payment, error)

	// ListPaymentsByTransaction returns every payment, cancelled ones included, oldest first.
	ListPaymentsByTransaction(ctx context.Context, tenantID, transactionID string) ([]domain.Payment, error)

	ListPaymentEdits(ctx context.Context, tenantID, paymentID string) ([]domain.PaymentEdit, error)
	ListTransactionEdits(ctx context.Context, tenantID, transactionID string) ([]domain.TransactionEdit, error)
}

// TransactionTransactionSupport defines operations that run inside a ledger transaction
type TransactionTransactionSupport interface {
	// SaveTransactionInTx inserts a transaction. apperrors.ErrDuplicate when the ID exists.
	SaveTransactionInTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error

	// FindTransactionForUpdate locks the transaction row.
	FindTransactionForUpdate(ctx context.Context, tx pgx.Tx, tenantID, transactionID string) (*domain.Transaction, error)

	// UpdateTransactionInTx writes totals, status and bumps the version. The update only
	// applies when the stored version equals txn.Version.
	UpdateTransactionInTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error

	// FindPaymentForUpdate locks the payment row. Lock its transaction first.
	FindPaymentForUpdate(ctx context.Context, tx pgx.Tx, tenantID, paymentID string) (*domain.Payment, error)

	ListPaymentsInTx(ctx context.Context, tx pgx.Tx, tenantID, transactionID string) ([]domain.Payment, error)
	SavePaymentInTx(ctx context.Context, tx pgx.Tx, payment domain.Payment) error
	UpdatePaymentInTx(ctx context.Context, tx pgx.Tx, payment domain.Payment) error
	SavePaymentEditInTx(ctx context.Context, tx pgx.Tx, edit domain.PaymentEdit) error
	SaveTransactionEditInTx(ctx context.Context, tx pgx.Tx, edit domain.TransactionEdit) error
}

// TransactionRepositoryFacade combines all ledger transaction repository interfaces
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionTransactionSupport
}
