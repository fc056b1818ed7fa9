package repositories

import (
	"context"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ObligationReader defines read operations for remittance obligations and settlements
type ObligationReader interface {
	FindObligationByID(ctx context.Context, tenantID, obligationID string) (*domain.Obligation, error)
	ListObligations(ctx context.Context, tenantID string, filter domain.ObligationFilter) ([]domain.Obligation, error)
	ListSettlementsByObligation(ctx context.Context, tenantID, obligationID string) ([]domain.Settlement, error)
}

// ObligationTransactionSupport defines operations that run inside a ledger transaction
type ObligationTransactionSupport interface {
	// LockObligationsForUpdate locks the given obligations in ascending ID order.
	LockObligationsForUpdate(ctx context.Context, tx pgx.Tx, tenantID string, obligationIDs []string) (map[string]domain.Obligation, error)

	// LockSettlementCandidates locks the incoming obligation together with every open
	// outgoing obligation of the same currency, in one ascending ID pass.
	LockSettlementCandidates(ctx context.Context, tx pgx.Tx, tenantID, incomingID, currency string) (*domain.Obligation, []domain.Obligation, error)

	AddSettledAmountInTx(ctx context.Context, tx pgx.Tx, tenantID, obligationID string, amount decimal.Decimal) error
	SaveSettlementInTx(ctx context.Context, tx pgx.Tx, settlement domain.Settlement) error
}

// ObligationRepositoryFacade combines all obligation repository interfaces
type ObligationRepositoryFacade interface {
	ObligationReader
	ObligationTransactionSupport
}
