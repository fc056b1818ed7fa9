package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/SscSPs/remittance_ledger/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	dateLayout                = "2006-01-02"
	defaultVarianceReportSize = 50
)

// reconciliationService implements the ReconciliationSvcFacade interface
type reconciliationService struct {
	BaseService
	uow         portsrepo.UnitOfWork
	recRepo     portsrepo.ReconciliationRepositoryFacade
	balanceRepo portsrepo.BalanceRepositoryFacade
	threshold   decimal.Decimal
}

// NewReconciliationService creates the reconciliation auditor
func NewReconciliationService(
	uow portsrepo.UnitOfWork,
	recRepo portsrepo.ReconciliationRepositoryFacade,
	balanceRepo portsrepo.BalanceRepositoryFacade,
	threshold decimal.Decimal,
	options ...ServiceOption,
) portssvc.ReconciliationSvcFacade {
	return &reconciliationService{
		BaseService: newBaseService(options),
		uow:         uow,
		recRepo:     recRepo,
		balanceRepo: balanceRepo,
		threshold:   threshold,
	}
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

func (s *reconciliationService) GetExpectedBalance(ctx context.Context, actor domain.Actor, branchID string) ([]domain.CashBalance, error) {
	if err := s.AuthorizeBranch(ctx, actor, branchID); err != nil {
		return nil, err
	}
	balances, err := s.balanceRepo.ListBalancesByBranch(ctx, actor.TenantID, branchID)
	if err != nil {
		s.LogError(ctx, err, "Failed to read expected balances", slog.String("branch_id", branchID))
		return nil, err
	}
	if balances == nil {
		return []domain.CashBalance{}, nil
	}
	return balances, nil
}

func (s *reconciliationService) GetReconciliation(ctx context.Context, actor domain.Actor, reconciliationID string) (*domain.Reconciliation, error) {
	rec, err := s.recRepo.FindReconciliationByID(ctx, actor.TenantID, reconciliationID)
	if err != nil {
		return nil, err
	}
	if err := s.AuthorizeBranch(ctx, actor, rec.BranchID); err != nil {
		return nil, err
	}
	return rec, nil
}

func parseDate(raw, field string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

func checkCount(cur domain.Currency, amount decimal.Decimal, field string) error {
	if amount.IsNegative() {
		return apperrors.NewValidationError(field, "must not be negative")
	}
	return cur.CheckScale(amount, field)
}

func (s *reconciliationService) CreateReconciliation(ctx context.Context, actor domain.Actor, branchID string, req dto.CreateReconciliationRequest) (*domain.Reconciliation, error) {
	if err := s.AuthorizeBranch(ctx, actor, branchID); err != nil {
		return nil, err
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return nil, err
	}
	cur, err := domain.LookupCurrency(req.Currency, "currency")
	if err != nil {
		return nil, err
	}
	if err := checkCount(cur, req.OpeningBalance, "openingBalance"); err != nil {
		return nil, err
	}
	if err := checkCount(cur, req.ClosingBalance, "closingBalance"); err != nil {
		return nil, err
	}

	counts := make([]domain.CurrencyCount, 0, len(req.Breakdown))
	seen := map[string]bool{cur.CurrencyCode: true}
	currencies := []string{cur.CurrencyCode}
	for i, line := range req.Breakdown {
		field := fmt.Sprintf("currencyBreakdown[%d]", i)
		lc, err := domain.LookupCurrency(line.Currency, field+".currency")
		if err != nil {
			return nil, err
		}
		if err := checkCount(lc, line.Counted, field+".counted"); err != nil {
			return nil, err
		}
		if lc.CurrencyCode != cur.CurrencyCode {
			if seen[lc.CurrencyCode] {
				return nil, apperrors.NewValidationError(field+".currency", fmt.Sprintf("%s is listed twice", lc.CurrencyCode))
			}
			seen[lc.CurrencyCode] = true
			currencies = append(currencies, lc.CurrencyCode)
		}
		counts = append(counts, domain.CurrencyCount{Currency: lc.CurrencyCode, Counted: line.Counted})
	}
	sort.Strings(currencies)

	var rec domain.Reconciliation
	err = s.withConflictRetry(ctx, "create_reconciliation", func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			expected, err := s.balanceRepo.ReadBalancesInTx(ctx, tx, actor.TenantID, branchID, currencies)
			if err != nil {
				return err
			}
			expectedOf := func(code string) decimal.Decimal {
				if b, ok := expected[code]; ok {
					return b.Balance
				}
				return decimal.Zero
			}

			breakdown := make([]domain.CurrencyCount, len(counts))
			for i, c := range counts {
				c.Expected = expectedOf(c.Currency)
				c.Variance, c.Breached = domain.ComputeVariance(c.Counted, c.Expected, s.threshold)
				breakdown[i] = c
			}

			expectedBalance := expectedOf(cur.CurrencyCode)
			variance, breached := domain.ComputeVariance(req.ClosingBalance, expectedBalance, s.threshold)
			rec = domain.Reconciliation{
				ReconciliationID:  uuid.NewString(),
				TenantID:          actor.TenantID,
				BranchID:          branchID,
				Date:              date,
				Currency:          cur.CurrencyCode,
				OpeningBalance:    req.OpeningBalance,
				ClosingBalance:    req.ClosingBalance,
				ExpectedBalance:   expectedBalance,
				Variance:          variance,
				Threshold:         s.threshold,
				Breached:          breached,
				CurrencyBreakdown: breakdown,
				Notes:             strings.TrimSpace(req.Notes),
				CreatedBy:         actor.UserID,
				CreatedAt:         s.now(),
			}

			err = s.recRepo.SaveReconciliationInTx(ctx, tx, rec)
			if errors.Is(err, apperrors.ErrDuplicate) {
				return apperrors.NewStateError(fmt.Sprintf("branch %s is already reconciled for %s", branchID, date.Format(dateLayout)))
			}
			return err
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to create reconciliation", slog.String("branch_id", branchID), slog.String("date", req.Date))
		return nil, err
	}

	s.Metrics.RecordReconciliation(rec.Currency, rec.Breached)
	attrs := []any{
		slog.String("reconciliation_id", rec.ReconciliationID),
		slog.String("branch_id", branchID),
		slog.String("currency", rec.Currency),
		slog.String("expected", rec.ExpectedBalance.String()),
		slog.String("variance", rec.Variance.String()),
	}
	if rec.Breached {
		s.GetLogger(ctx).Warn("Reconciliation variance breached threshold", attrs...)
	} else {
		s.LogInfo(ctx, "Reconciliation recorded", attrs...)
	}
	return &rec, nil
}

func (s *reconciliationService) GetVarianceReport(ctx context.Context, actor domain.Actor, params dto.VarianceReportParams) (*dto.VarianceReportResponse, error) {
	filter := domain.VarianceFilter{
		BranchID:     strings.TrimSpace(params.BranchID),
		OnlyBreached: params.OnlyBreached,
		Limit:        params.Limit,
	}
	if filter.BranchID == "" {
		filter.BranchID = actor.BranchID
	}
	if err := s.AuthorizeBranch(ctx, actor, filter.BranchID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultVarianceReportSize
	}
	if params.Currency != "" {
		cur, err := domain.LookupCurrency(params.Currency, "currency")
		if err != nil {
			return nil, err
		}
		filter.Currency = cur.CurrencyCode
	}
	if params.From != "" {
		from, err := parseDate(params.From, "from")
		if err != nil {
			return nil, err
		}
		filter.From = &from
	}
	if params.To != "" {
		to, err := parseDate(params.To, "to")
		if err != nil {
			return nil, err
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperrors.NewValidationError("to", "must not be before from")
	}
	if params.NextToken != "" {
		cursor, err := pagination.DecodeToken(params.NextToken)
		if err != nil {
			return nil, apperrors.NewValidationError("nextToken", err.Error())
		}
		filter.AfterDate = &cursor.Date
		filter.AfterCreatedAt = &cursor.CreatedAt
		filter.AfterID = cursor.ID
	}

	pageSize := filter.Limit
	filter.Limit = pageSize + 1
	recs, err := s.recRepo.ListReconciliations(ctx, actor.TenantID, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to build variance report")
		return nil, err
	}

	resp := &dto.VarianceReportResponse{Reconciliations: []domain.Reconciliation{}}
	if len(recs) > pageSize {
		recs = recs[:pageSize]
		last := recs[len(recs)-1]
		token := pagination.EncodeToken(pagination.Cursor{Date: last.Date, CreatedAt: last.CreatedAt, ID: last.ReconciliationID})
		resp.NextToken = &token
	}
	for _, r := range recs {
		if r.Breached {
			resp.BreachedCount++
		}
	}
	if len(recs) > 0 {
		resp.Reconciliations = recs
	}
	return resp, nil
}
