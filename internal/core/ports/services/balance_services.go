package services

import (
	"context"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/dto"
)

// BalanceReaderSvc defines read operations for cash balances
type BalanceReaderSvc interface {
	// GetBalance returns the current cash balance. A branch that never touched the
	// currency has a zero balance.
	GetBalance(ctx context.Context, actor domain.Actor, branchID, currency string) (*domain.CashBalance, error)

	// ListBalances returns every currency balance of a branch.
	ListBalances(ctx context.Context, actor domain.Actor, branchID string) ([]domain.CashBalance, error)

	// ListAdjustments returns the manual corrections of a balance, newest first.
	ListAdjustments(ctx context.Context, actor domain.Actor, branchID, currency string) ([]domain.Adjustment, error)
}

// BalanceWriterSvc defines write operations for cash balances
type BalanceWriterSvc interface {
	// RecomputeBalance rebuilds a balance from history and overwrites the stored value.
	RecomputeBalance(ctx context.Context, actor domain.Actor, branchID, currency string) (*domain.BalanceRecomputation, error)

	// ApplyAdjustment records a manual correction with a mandatory reason.
	ApplyAdjustment(ctx context.Context, actor domain.Actor, branchID, currency string, req dto.CreateAdjustmentRequest) (*domain.Adjustment, error)
}

// BalanceSvcFacade combines all balance-related service interfaces
type BalanceSvcFacade interface {
	BalanceReaderSvc
	BalanceWriterSvc
}
