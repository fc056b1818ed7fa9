package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/SscSPs/remittance_ledger/internal/platform/cache"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// balanceService implements the BalanceSvcFacade interface
type balanceService struct {
	BaseService
	uow         portsrepo.UnitOfWork
	balanceRepo portsrepo.BalanceRepositoryFacade
	cacheTTL    time.Duration
}

// NewBalanceService creates the balance calculator
func NewBalanceService(uow portsrepo.UnitOfWork, repo portsrepo.BalanceRepositoryFacade, cacheTTL time.Duration, options ...ServiceOption) portssvc.BalanceSvcFacade {
	return &balanceService{
		BaseService: newBaseService(options),
		uow:         uow,
		balanceRepo: repo,
		cacheTTL:    cacheTTL,
	}
}

var _ portssvc.BalanceSvcFacade = (*balanceService)(nil)

func (s *balanceService) GetBalance(ctx context.Context, actor domain.Actor, branchID, currency string) (*domain.CashBalance, error) {
	if err := s.AuthorizeBranch(ctx, actor, branchID); err != nil {
		return nil, err
	}
	cur, err := domain.LookupCurrency(currency, "currency")
	if err != nil {
		return nil, err
	}

	var (
		loadErr error
		loaded  bool
	)
	load := func() (domain.CashBalance, error) {
		b, err := s.loadBalance(ctx, actor.TenantID, branchID, cur.CurrencyCode)
		loadErr, loaded = err, true
		return b, err
	}

	if s.BalanceCache == nil {
		b, err := load()
		if err != nil {
			s.LogError(ctx, err, "Failed to load balance", slog.String("branch_id", branchID), slog.String("currency", cur.CurrencyCode))
			return nil, err
		}
		return &b, nil
	}

	b, err := s.BalanceCache.GetOrSet(ctx, cache.GetOrSetOpts[domain.CashBalance]{
		Key:      balanceCacheKey(actor.TenantID, branchID, cur.CurrencyCode),
		TTL:      s.cacheTTL,
		Callback: load,
	})
	if err == nil {
		if loaded {
			return s.confirmCachedBalance(ctx, actor.TenantID, branchID, cur.CurrencyCode, b)
		}
		return &b, nil
	}
	if loadErr != nil {
		s.LogError(ctx, loadErr, "Failed to load balance", slog.String("branch_id", branchID), slog.String("currency", cur.CurrencyCode))
		return nil, loadErr
	}

	// The cache is down; serve from the database.
	s.Metrics.RecordCacheError("get")
	s.LogError(ctx, err, "Balance cache unavailable", slog.String("branch_id", branchID))
	b, err = s.loadBalance(ctx, actor.TenantID, branchID, cur.CurrencyCode)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// confirmCachedBalance re-reads a balance just written to the cache. A mutation that
// committed while the load was in flight may have invalidated the key before the
// older value landed; in that case the entry is dropped and the newer row served.
func (s *balanceService) confirmCachedBalance(ctx context.Context, tenantID, branchID, currency string, cached domain.CashBalance) (*domain.CashBalance, error) {
	current, err := s.loadBalance(ctx, tenantID, branchID, currency)
	if err != nil {
		s.InvalidateBalances(ctx, tenantID, branchID, currency)
		s.LogError(ctx, err, "Failed to confirm cached balance", slog.String("branch_id", branchID), slog.String("currency", currency))
		return nil, err
	}
	if current.Version != cached.Version || !current.Balance.Equal(cached.Balance) {
		s.InvalidateBalances(ctx, tenantID, branchID, currency)
		s.LogInfo(ctx, "Dropped stale cached balance",
			slog.String("branch_id", branchID),
			slog.String("currency", currency),
			slog.Int64("cached_version", cached.Version),
			slog.Int64("version", current.Version))
	}
	return &current, nil
}

func (s *balanceService) loadBalance(ctx context.Context, tenantID, branchID, currency string) (domain.CashBalance, error) {
	b, err := s.balanceRepo.FindBalance(ctx, tenantID, branchID, currency)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.CashBalance{
			TenantID: tenantID,
			BranchID: branchID,
			Currency: currency,
			Balance:  decimal.Zero,
		}, nil
	}
	if err != nil {
		return domain.CashBalance{}, err
	}
	return *b, nil
}

func (s *balanceService) ListBalances(ctx context.Context, actor domain.Actor, branchID string) ([]domain.CashBalance, error) {
	if err := s.AuthorizeBranch(ctx, actor, branchID); err != nil {
		return nil, err
	}
	balances, err := s.balanceRepo.ListBalancesByBranch(ctx, actor.TenantID, branchID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list balances", slog.String("branch_id", branchID))
		return nil, err
	}
	if balances == nil {
		return []domain.CashBalance{}, nil
	}
	return balances, nil
}

func (s *balanceService) ListAdjustments(ctx context.Context, actor domain.Actor, branchID, currency string) ([]domain.Adjustment, error) {
	if err := s.AuthorizeBranch(ctx, actor, branchID); err != nil {
		return nil, err
	}
	cur, err := domain.LookupCurrency(currency, "currency")
	if err != nil {
		return nil, err
	}
	adjustments, err := s.balanceRepo.ListAdjustments(ctx, actor.TenantID, branchID, cur.CurrencyCode)
	if err != nil {
		s.LogError(ctx, err, "Failed to list adjustments", slog.String("branch_id", branchID), slog.String("currency", cur.CurrencyCode))
		return nil, err
	}
	if adjustments == nil {
		return []domain.Adjustment{}, nil
	}
	return adjustments, nil
}

func (s *balanceService) RecomputeBalance(ctx context.Context, actor domain.Actor, branchID, currency string) (*domain.BalanceRecomputation, error) {
	if err := s.AuthorizeBranch(ctx, actor, branchID); err != nil {
		return nil, err
	}
	cur, err := domain.LookupCurrency(currency, "currency")
	if err != nil {
		return nil, err
	}

	var result *domain.BalanceRecomputation
	err = s.withConflictRetry(ctx, "recompute_balance", func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			stored, err := s.balanceRepo.LockBalanceForUpdate(ctx, tx, actor.TenantID, branchID, cur.CurrencyCode)
			if err != nil {
				return err
			}
			entries, err := s.balanceRepo.ListBalanceEntriesInTx(ctx, tx, actor.TenantID, branchID, cur.CurrencyCode)
			if err != nil {
				return err
			}

			folded := domain.FoldBalance(entries)
			updated := *stored
			drift := folded.Sub(stored.Balance)
			if !drift.IsZero() {
				now := s.now()
				if err := s.balanceRepo.SetBalanceInTx(ctx, tx, actor.TenantID, branchID, cur.CurrencyCode, folded, actor.UserID, now); err != nil {
					return err
				}
				updated.Balance = folded
				updated.Version++
				updated.LastUpdated = now
				updated.LastUpdatedBy = actor.UserID
			}

			result = &domain.BalanceRecomputation{
				Balance:  updated,
				Previous: stored.Balance,
				Drift:    drift,
				Entries:  len(entries),
			}
			return nil
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to recompute balance", slog.String("branch_id", branchID), slog.String("currency", cur.CurrencyCode))
		return nil, err
	}

	if !result.Drift.IsZero() {
		s.Metrics.RecordBalanceDrift(cur.CurrencyCode)
		s.GetLogger(ctx).Warn("Balance drift corrected",
			slog.String("branch_id", branchID),
			slog.String("currency", cur.CurrencyCode),
			slog.String("previous", result.Previous.String()),
			slog.String("recomputed", result.Balance.Balance.String()))
		s.InvalidateBalances(ctx, actor.TenantID, branchID, cur.CurrencyCode)
	}
	s.LogInfo(ctx, "Balance recomputed",
		slog.String("branch_id", branchID),
		slog.String("currency", cur.CurrencyCode),
		slog.Int("entries", result.Entries))
	return result, nil
}

func (s *balanceService) ApplyAdjustment(ctx context.Context, actor domain.Actor, branchID, currency string, req dto.CreateAdjustmentRequest) (*domain.Adjustment, error) {
	if err := s.AuthorizeBranch(ctx, actor, branchID); err != nil {
		return nil, err
	}
	cur, err := domain.LookupCurrency(currency, "currency")
	if err != nil {
		return nil, err
	}
	if req.Delta.IsZero() {
		return nil, apperrors.NewValidationError("delta", "must not be zero")
	}
	if err := cur.CheckScale(req.Delta, "delta"); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "is required")
	}

	var adjustment domain.Adjustment
	err = s.withConflictRetry(ctx, "apply_adjustment", func() error {
		adjustment = domain.Adjustment{
			AdjustmentID: uuid.NewString(),
			TenantID:     actor.TenantID,
			BranchID:     branchID,
			Currency:     cur.CurrencyCode,
			Delta:        req.Delta,
			Reason:       reason,
			SupersedesID: strings.TrimSpace(req.SupersedesID),
			PerformedBy:  actor.UserID,
			CreatedAt:    s.now(),
		}

		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			var superseded *domain.Adjustment
			if adjustment.SupersedesID != "" {
				prev, err := s.balanceRepo.FindAdjustmentForUpdate(ctx, tx, actor.TenantID, adjustment.SupersedesID)
				if err != nil {
					return err
				}
				if prev.BranchID != branchID || prev.Currency != cur.CurrencyCode {
					return apperrors.NewValidationError("supersedesID", "adjustment belongs to another balance")
				}
				if !prev.IsActive() {
					return apperrors.NewStateError(fmt.Sprintf("adjustment %s is already superseded by %s", prev.AdjustmentID, prev.SupersededBy))
				}
				superseded = prev
			}

			effective := adjustment.EffectiveDelta(superseded)
			if effective.IsZero() {
				return apperrors.NewValidationError("delta", "replacement must change the balance")
			}

			if err := s.balanceRepo.SaveAdjustmentInTx(ctx, tx, adjustment); err != nil {
				return err
			}
			if superseded != nil {
				if err := s.balanceRepo.MarkAdjustmentSupersededInTx(ctx, tx, actor.TenantID, superseded.AdjustmentID, adjustment.AdjustmentID); err != nil {
					return err
				}
			}

			deltas := domain.BalanceDeltas{}
			deltas.Add(cur.CurrencyCode, effective)
			return s.balanceRepo.ApplyBalanceDeltasInTx(ctx, tx, actor.TenantID, branchID, deltas, actor.UserID, adjustment.CreatedAt)
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to apply adjustment", slog.String("branch_id", branchID), slog.String("currency", cur.CurrencyCode))
		return nil, err
	}

	s.InvalidateBalances(ctx, actor.TenantID, branchID, cur.CurrencyCode)
	s.LogInfo(ctx, "Adjustment applied",
		slog.String("adjustment_id", adjustment.AdjustmentID),
		slog.String("branch_id", branchID),
		slog.String("currency", cur.CurrencyCode),
		slog.String("delta", adjustment.Delta.String()))
	return &adjustment, nil
}
