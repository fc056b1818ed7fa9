package services

import (
	"time"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/platform/cache"
	"github.com/SscSPs/remittance_ledger/internal/platform/metrics"
)

// ServiceOption is a functional option for the shared parts of a service
type ServiceOption func(*BaseService)

// WithMetrics records mutation outcomes on m
func WithMetrics(m *metrics.LedgerMetrics) ServiceOption {
	return func(s *BaseService) {
		s.Metrics = m
	}
}

// WithBalanceCache sets the read-through balance cache. Writers use it for invalidation.
func WithBalanceCache(c cache.Client[domain.CashBalance]) ServiceOption {
	return func(s *BaseService) {
		s.BalanceCache = c
	}
}

// WithRetryPolicy overrides the conflict retry policy
func WithRetryPolicy(p RetryPolicy) ServiceOption {
	return func(s *BaseService) {
		s.Retry = p
	}
}

// WithClock overrides time.Now, used by tests
func WithClock(now func() time.Time) ServiceOption {
	return func(s *BaseService) {
		s.Now = now
	}
}

func newBaseService(options []ServiceOption) BaseService {
	base := BaseService{Retry: DefaultRetryPolicy}
	for _, option := range options {
		option(&base)
	}
	return base
}
