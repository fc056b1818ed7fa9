package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceReader defines read operations for cash balances and adjustments
type BalanceReader interface {
	// FindBalance returns the stored balance row. apperrors.ErrNotFound when no row exists yet.
	FindBalance(ctx context.Context, tenantID, branchID, currency string) (*domain.CashBalance, error)

	// ListBalancesByBranch returns every currency balance of a branch ordered by currency.
	ListBalancesByBranch(ctx context.Context, tenantID, branchID string) ([]domain.CashBalance, error)

	// ListAdjustments returns adjustments of one balance, newest first.
	ListAdjustments(ctx context.Context, tenantID, branchID, currency string) ([]domain.Adjustment, error)
}

// BalanceTransactionSupport defines operations that run inside a ledger transaction
type BalanceTransactionSupport interface {
	// LockBalanceForUpdate creates the row at zero when missing and locks it.
	LockBalanceForUpdate(ctx context.Context, tx pgx.Tx, tenantID, branchID, currency string) (*domain.CashBalance, error)

	// ReadBalancesInTx returns a consistent snapshot of the given currencies (FOR SHARE).
	// Missing rows are absent from the map.
	ReadBalancesInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID string, currencies []string) (map[string]domain.CashBalance, error)

	// ApplyBalanceDeltasInTx upserts balance += delta for each currency, in ascending currency order.
	ApplyBalanceDeltasInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID string, deltas domain.BalanceDeltas, userID string, now time.Time) error

	// SetBalanceInTx overwrites a locked balance with a recomputed value.
	SetBalanceInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID, currency string, balance decimal.Decimal, userID string, now time.Time) error

	// ListBalanceEntriesInTx returns the full movement history behind a balance.
	ListBalanceEntriesInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID, currency string) ([]domain.BalanceEntry, error)

	// SaveAdjustmentInTx inserts an adjustment row.
	SaveAdjustmentInTx(ctx context.Context, tx pgx.Tx, adjustment domain.Adjustment) error

	// FindAdjustmentForUpdate locks and returns one adjustment.
	FindAdjustmentForUpdate(ctx context.Context, tx pgx.Tx, tenantID, adjustmentID string) (*domain.Adjustment, error)

	// MarkAdjustmentSupersededInTx links an adjustment to the one that replaces it.
	MarkAdjustmentSupersededInTx(ctx context.Context, tx pgx.Tx, tenantID, adjustmentID, supersededBy string) error
}

// BalanceRepositoryFacade combines all balance-related repository interfaces
type BalanceRepositoryFacade interface {
	BalanceReader
	BalanceTransactionSupport
}
