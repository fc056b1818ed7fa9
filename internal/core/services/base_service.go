package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	"github.com/SscSPs/remittance_ledger/internal/middleware"
	"github.com/SscSPs/remittance_ledger/internal/platform/cache"
	"github.com/SscSPs/remittance_ledger/internal/platform/metrics"
)

// BaseService provides common functionality for all services
type BaseService struct {
	Metrics      *metrics.LedgerMetrics
	BalanceCache cache.Client[domain.CashBalance]
	Retry        RetryPolicy
	Now          func() time.Time
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogWarn logs a rejected request.
func (s *BaseService) LogWarn(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+4)
	args = append(args, slog.String("error", err.Error()), slog.String("kind", string(apperrors.KindOf(err))))
	args = append(args, keyvals...)
	logger.Warn(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Debug(msg, keyvals...)
}

// LogOutcome logs err at the level its kind deserves: storage failures as errors,
// everything the caller can fix as a warning.
func (s *BaseService) LogOutcome(ctx context.Context, err error, msg string, keyvals ...any) {
	if apperrors.KindOf(err) == apperrors.KindInternal {
		s.LogError(ctx, err, msg, keyvals...)
		return
	}
	s.LogWarn(ctx, err, msg, keyvals...)
}

// AuthorizeBranch checks that the actor belongs to a tenant and may act on branchID.
func (s *BaseService) AuthorizeBranch(ctx context.Context, actor domain.Actor, branchID string) error {
	if actor.TenantID == "" || actor.UserID == "" {
		return fmt.Errorf("actor has no tenant or user: %w", apperrors.ErrForbidden)
	}
	if !actor.CanAccessBranch(branchID) {
		s.LogDebug(ctx, "Branch access denied",
			slog.String("actor_branch_id", actor.BranchID),
			slog.String("branch_id", branchID))
		return fmt.Errorf("actor of branch %s may not access branch %s: %w", actor.BranchID, branchID, apperrors.ErrForbidden)
	}
	return nil
}

func (s *BaseService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func balanceCacheKey(tenantID, branchID, currency string) string {
	return fmt.Sprintf("balance:%s:%s:%s", tenantID, branchID, currency)
}

// InvalidateBalances drops cached balances after a committed mutation. Cache failures
// are logged and counted, never returned.
func (s *BaseService) InvalidateBalances(ctx context.Context, tenantID, branchID string, currencies ...string) {
	if s.BalanceCache == nil || len(currencies) == 0 {
		return
	}
	keys := make([]string, len(currencies))
	for i, c := range currencies {
		keys[i] = balanceCacheKey(tenantID, branchID, c)
	}
	if err := s.BalanceCache.Delete(ctx, keys...); err != nil {
		s.Metrics.RecordCacheError("delete")
		s.LogError(ctx, err, "Failed to invalidate cached balances",
			slog.String("branch_id", branchID),
			slog.Any("currencies", currencies))
	}
}
