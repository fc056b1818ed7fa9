package handlers_test

import (
	"context"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/stretchr/testify/mock"
)

// --- Mock PaymentService ---
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RegisterTransaction(ctx context.Context, actor domain.Actor, req dto.RegisterTransactionRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockPaymentService) GetTransaction(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, actor, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockPaymentService) ListPayments(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, []domain.Payment, error) {
	args := m.Called(ctx, actor, transactionID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Transaction), args.Get(1).([]domain.Payment), args.Error(2)
}
func (m *MockPaymentService) ListPaymentEdits(ctx context.Context, actor domain.Actor, paymentID string) ([]domain.PaymentEdit, error) {
	args := m.Called(ctx, actor, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentEdit), args.Error(1)
}
func (m *MockPaymentService) ListTransactionEdits(ctx context.Context, actor domain.Actor, transactionID string) ([]domain.TransactionEdit, error) {
	args := m.Called(ctx, actor, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TransactionEdit), args.Error(1)
}
func (m *MockPaymentService) AddPayment(ctx context.Context, actor domain.Actor, transactionID string, req dto.CreatePaymentRequest) (*domain.Payment, *domain.Transaction, error) {
	args := m.Called(ctx, actor, transactionID, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Payment), args.Get(1).(*domain.Transaction), args.Error(2)
}
func (m *MockPaymentService) EditPayment(ctx context.Context, actor domain.Actor, paymentID string, req dto.EditPaymentRequest) (*domain.Payment, *domain.Transaction, error) {
	args := m.Called(ctx, actor, paymentID, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Payment), args.Get(1).(*domain.Transaction), args.Error(2)
}
func (m *MockPaymentService) CancelPayment(ctx context.Context, actor domain.Actor, paymentID string, reason string) (*domain.Payment, *domain.Transaction, error) {
	args := m.Called(ctx, actor, paymentID, reason)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Payment), args.Get(1).(*domain.Transaction), args.Error(2)
}
func (m *MockPaymentService) CompleteTransaction(ctx context.Context, actor domain.Actor, transactionID string, req dto.CompleteTransactionRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, actor, transactionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockPaymentService) CancelTransaction(ctx context.Context, actor domain.Actor, transactionID string, reason string) (*domain.Transaction, error) {
	args := m.Called(ctx, actor, transactionID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.PaymentSvcFacade = (*MockPaymentService)(nil)

// --- Mock BalanceService ---
type MockBalanceService struct {
	mock.Mock
}

func (m *MockBalanceService) GetBalance(ctx context.Context, actor domain.Actor, branchID, currency string) (*domain.CashBalance, error) {
	args := m.Called(ctx, actor, branchID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CashBalance), args.Error(1)
}
func (m *MockBalanceService) ListBalances(ctx context.Context, actor domain.Actor, branchID string) ([]domain.CashBalance, error) {
	args := m.Called(ctx, actor, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CashBalance), args.Error(1)
}
func (m *MockBalanceService) ListAdjustments(ctx context.Context, actor domain.Actor, branchID, currency string) ([]domain.Adjustment, error) {
	args := m.Called(ctx, actor, branchID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Adjustment), args.Error(1)
}
func (m *MockBalanceService) RecomputeBalance(ctx context.Context, actor domain.Actor, branchID, currency string) (*domain.BalanceRecomputation, error) {
	args := m.Called(ctx, actor, branchID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BalanceRecomputation), args.Error(1)
}
func (m *MockBalanceService) ApplyAdjustment(ctx context.Context, actor domain.Actor, branchID, currency string, req dto.CreateAdjustmentRequest) (*domain.Adjustment, error) {
	args := m.Called(ctx, actor, branchID, currency, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Adjustment), args.Error(1)
}

var _ portssvc.BalanceSvcFacade = (*MockBalanceService)(nil)

// --- Mock SettlementService ---
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) ListObligations(ctx context.Context, actor domain.Actor, params dto.ListObligationsParams) ([]domain.Obligation, error) {
	args := m.Called(ctx, actor, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Obligation), args.Error(1)
}
func (m *MockSettlementService) ListSettlements(ctx context.Context, actor domain.Actor, obligationID string) ([]domain.Settlement, error) {
	args := m.Called(ctx, actor, obligationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Settlement), args.Error(1)
}
func (m *MockSettlementService) SuggestSettlement(ctx context.Context, actor domain.Actor, incomingID string, strategy string) (*domain.SettlementPlan, error) {
	args := m.Called(ctx, actor, incomingID, strategy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementPlan), args.Error(1)
}
func (m *MockSettlementService) ExecuteSettlement(ctx context.Context, actor domain.Actor, req dto.ExecuteSettlementRequest) (*domain.Settlement, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}
func (m *MockSettlementService) AutoSettle(ctx context.Context, actor domain.Actor, incomingID string, strategy string) (*domain.SettlementPlan, []domain.Settlement, error) {
	args := m.Called(ctx, actor, incomingID, strategy)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.SettlementPlan), args.Get(1).([]domain.Settlement), args.Error(2)
}

var _ portssvc.SettlementSvcFacade = (*MockSettlementService)(nil)

// --- Mock ReconciliationService ---
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) GetExpectedBalance(ctx context.Context, actor domain.Actor, branchID string) ([]domain.CashBalance, error) {
	args := m.Called(ctx, actor, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CashBalance), args.Error(1)
}
func (m *MockReconciliationService) GetReconciliation(ctx context.Context, actor domain.Actor, reconciliationID string) (*domain.Reconciliation, error) {
	args := m.Called(ctx, actor, reconciliationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reconciliation), args.Error(1)
}
func (m *MockReconciliationService) GetVarianceReport(ctx context.Context, actor domain.Actor, params dto.VarianceReportParams) (*dto.VarianceReportResponse, error) {
	args := m.Called(ctx, actor, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.VarianceReportResponse), args.Error(1)
}
func (m *MockReconciliationService) CreateReconciliation(ctx context.Context, actor domain.Actor, branchID string, req dto.CreateReconciliationRequest) (*domain.Reconciliation, error) {
	args := m.Called(ctx, actor, branchID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reconciliation), args.Error(1)
}

var _ portssvc.ReconciliationSvcFacade = (*MockReconciliationService)(nil)
