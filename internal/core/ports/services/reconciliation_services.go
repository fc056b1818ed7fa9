package services

import (
	"context"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/dto"
)

// ReconciliationReaderSvc defines read operations for reconciliations
type ReconciliationReaderSvc interface {
	// GetExpectedBalance returns what the branch should hold per currency.
	GetExpectedBalance(ctx context.Context, actor domain.Actor, branchID string) ([]domain.CashBalance, error)

	GetReconciliation(ctx context.Context, actor domain.Actor, reconciliationID string) (*domain.Reconciliation, error)

	// GetVarianceReport pages through reconciliations, newest first.
	GetVarianceReport(ctx context.Context, actor domain.Actor, params dto.VarianceReportParams) (*dto.VarianceReportResponse, error)
}

// ReconciliationWriterSvc defines write operations for reconciliations
type ReconciliationWriterSvc interface {
	CreateReconciliation(ctx context.Context, actor domain.Actor, branchID string, req dto.CreateReconciliationRequest) (*domain.Reconciliation, error)
}

// ReconciliationSvcFacade combines all reconciliation-related service interfaces
type ReconciliationSvcFacade interface {
	ReconciliationReaderSvc
	ReconciliationWriterSvc
}
