package services

import (
	"context"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/dto"
)

// SettlementReaderSvc defines read operations for obligations and settlements
type SettlementReaderSvc interface {
	ListObligations(ctx context.Context, actor domain.Actor, params dto.ListObligationsParams) ([]domain.Obligation, error)
	ListSettlements(ctx context.Context, actor domain.Actor, obligationID string) ([]domain.Settlement, error)

	// SuggestSettlement computes, without writing, how an incoming credit would be allocated.
	SuggestSettlement(ctx context.Context, actor domain.Actor, incomingID string, strategy string) (*domain.SettlementPlan, error)
}

// SettlementWriterSvc defines write operations for settlements
type SettlementWriterSvc interface {
	ExecuteSettlement(ctx context.Context, actor domain.Actor, req dto.ExecuteSettlementRequest) (*domain.Settlement, error)

	// AutoSettle recomputes the suggestion under lock and executes every allocation atomically.
	AutoSettle(ctx context.Context, actor domain.Actor, incomingID string, strategy string) (*domain.SettlementPlan, []domain.Settlement, error)
}

// SettlementSvcFacade combines all settlement-related service interfaces
type SettlementSvcFacade interface {
	SettlementReaderSvc
	SettlementWriterSvc
}
