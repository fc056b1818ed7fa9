package repositories

import (
	"context"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// ReconciliationReader defines read operations for reconciliations
type ReconciliationReader interface {
	FindReconciliationByID(ctx context.Context, tenantID, reconciliationID string) (*domain.Reconciliation, error)

	// ListReconciliations returns reconciliations newest first (date, created_at, id).
	ListReconciliations(ctx context.Context, tenantID string, filter domain.VarianceFilter) ([]domain.Reconciliation, error)
}

// ReconciliationWriter defines write operations for reconciliations
type ReconciliationWriter interface {
	// SaveReconciliationInTx inserts a reconciliation. apperrors.ErrDuplicate when the
	// (tenant, branch, date) slot is taken.
	SaveReconciliationInTx(ctx context.Context, tx pgx.Tx, rec domain.Reconciliation) error
}

// ReconciliationRepositoryFacade combines all reconciliation repository interfaces
type ReconciliationRepositoryFacade interface {
	ReconciliationReader
	ReconciliationWriter
}
