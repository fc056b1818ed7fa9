package services

import (
	"time"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/platform/config"
	"github.com/shopspring/decimal"
)

// LedgerSettings are the configurable ledger rules
type LedgerSettings struct {
	Tolerance         domain.Tolerance
	VarianceThreshold decimal.Decimal
	DefaultStrategy   domain.SettlementStrategy
	Retry             RetryPolicy
	BalanceCacheTTL   time.Duration
}

// SettingsFromConfig reads the ledger rules from cfg
func SettingsFromConfig(cfg *config.Config) LedgerSettings {
	return LedgerSettings{
		Tolerance: domain.Tolerance{
			Absolute: cfg.PaymentToleranceAbsolute,
			Percent:  cfg.PaymentTolerancePercent,
		},
		VarianceThreshold: cfg.ReconciliationVarianceThreshold,
		DefaultStrategy:   domain.SettlementStrategy(cfg.SettlementDefaultStrategy),
		Retry: RetryPolicy{
			MaxRetries:      cfg.LockRetryMax,
			InitialInterval: cfg.LockRetryInterval,
		},
		BalanceCacheTTL: cfg.BalanceCacheTTL,
	}
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, options ...ServiceOption) *portssvc.ServiceContainer {
	return NewServiceContainerWithSettings(SettingsFromConfig(cfg), repos, options...)
}

// NewServiceContainerWithSettings wires the services from explicit settings. Options
// given here override the retry policy taken from settings.
func NewServiceContainerWithSettings(settings LedgerSettings, repos portsrepo.RepositoryProvider, options ...ServiceOption) *portssvc.ServiceContainer {
	opts := append([]ServiceOption{WithRetryPolicy(settings.Retry)}, options...)

	return &portssvc.ServiceContainer{
		Balance:        NewBalanceService(repos.UnitOfWork, repos.BalanceRepo, settings.BalanceCacheTTL, opts...),
		Payment:        NewPaymentService(repos.UnitOfWork, repos.TransactionRepo, repos.BalanceRepo, settings.Tolerance, opts...),
		Settlement:     NewSettlementService(repos.UnitOfWork, repos.ObligationRepo, settings.DefaultStrategy, opts...),
		Reconciliation: NewReconciliationService(repos.UnitOfWork, repos.ReconciliationRepo, repos.BalanceRepo, settings.VarianceThreshold, opts...),
	}
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.BalanceSvcFacade        = (*balanceService)(nil)
	_ portssvc.PaymentSvcFacade        = (*paymentService)(nil)
	_ portssvc.SettlementSvcFacade     = (*settlementService)(nil)
	_ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)
)
