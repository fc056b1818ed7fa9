package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// suggestionCandidateLimit caps the candidates read for a suggestion outside a lock.
const suggestionCandidateLimit = 1000

// settlementService implements the SettlementSvcFacade interface
type settlementService struct {
	BaseService
	uow             portsrepo.UnitOfWork
	obligationRepo  portsrepo.ObligationRepositoryFacade
	defaultStrategy domain.SettlementStrategy
}

// NewSettlementService creates the settlement matcher
func NewSettlementService(uow portsrepo.UnitOfWork, repo portsrepo.ObligationRepositoryFacade, defaultStrategy domain.SettlementStrategy, options ...ServiceOption) portssvc.SettlementSvcFacade {
	if defaultStrategy == "" {
		defaultStrategy = domain.StrategyFIFO
	}
	return &settlementService{
		BaseService:     newBaseService(options),
		uow:             uow,
		obligationRepo:  repo,
		defaultStrategy: defaultStrategy,
	}
}

var _ portssvc.SettlementSvcFacade = (*settlementService)(nil)

func (s *settlementService) ListObligations(ctx context.Context, actor domain.Actor, params dto.ListObligationsParams) ([]domain.Obligation, error) {
	filter := params.ToObligationFilter()
	if filter.BranchID == "" {
		filter.BranchID = actor.BranchID
	}
	if err := s.AuthorizeBranch(ctx, actor, filter.BranchID); err != nil {
		return nil, err
	}
	if filter.Direction != "" && filter.Direction != domain.DirectionIncoming && filter.Direction != domain.DirectionOutgoing {
		return nil, apperrors.NewValidationError("direction", fmt.Sprintf("unsupported direction %q", filter.Direction))
	}
	if filter.Currency != "" {
		cur, err := domain.LookupCurrency(filter.Currency, "currency")
		if err != nil {
			return nil, err
		}
		filter.Currency = cur.CurrencyCode
	}

	obligations, err := s.obligationRepo.ListObligations(ctx, actor.TenantID, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list obligations")
		return nil, err
	}
	if obligations == nil {
		return []domain.Obligation{}, nil
	}
	return obligations, nil
}

func (s *settlementService) ListSettlements(ctx context.Context, actor domain.Actor, obligationID string) ([]domain.Settlement, error) {
	if _, err := s.findObligation(ctx, actor, obligationID); err != nil {
		return nil, err
	}
	settlements, err := s.obligationRepo.ListSettlementsByObligation(ctx, actor.TenantID, obligationID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list settlements", slog.String("obligation_id", obligationID))
		return nil, err
	}
	if settlements == nil {
		return []domain.Settlement{}, nil
	}
	return settlements, nil
}

func (s *settlementService) findObligation(ctx context.Context, actor domain.Actor, obligationID string) (*domain.Obligation, error) {
	o, err := s.obligationRepo.FindObligationByID(ctx, actor.TenantID, obligationID)
	if err != nil {
		return nil, err
	}
	if err := s.AuthorizeBranch(ctx, actor, o.BranchID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *settlementService) findIncoming(ctx context.Context, actor domain.Actor, incomingID string) (*domain.Obligation, error) {
	incoming, err := s.findObligation(ctx, actor, incomingID)
	if err != nil {
		return nil, err
	}
	if incoming.Direction != domain.DirectionIncoming {
		return nil, apperrors.NewValidationError("obligationID", fmt.Sprintf("obligation %s is not INCOMING", incomingID))
	}
	return incoming, nil
}

// accessible drops candidates of branches the actor may not touch.
func accessible(actor domain.Actor, candidates []domain.Obligation) []domain.Obligation {
	if actor.BranchID == "" {
		return candidates
	}
	out := make([]domain.Obligation, 0, len(candidates))
	for _, c := range candidates {
		if actor.CanAccessBranch(c.BranchID) {
			out = append(out, c)
		}
	}
	return out
}

func (s *settlementService) SuggestSettlement(ctx context.Context, actor domain.Actor, incomingID string, strategy string) (*domain.SettlementPlan, error) {
	st, err := domain.ParseSettlementStrategy(strategy, s.defaultStrategy)
	if err != nil {
		return nil, err
	}
	incoming, err := s.findIncoming(ctx, actor, incomingID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.obligationRepo.ListObligations(ctx, actor.TenantID, domain.ObligationFilter{
		Direction: domain.DirectionOutgoing,
		Currency:  incoming.Currency,
		OnlyOpen:  true,
		Limit:     suggestionCandidateLimit,
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to list settlement candidates", slog.String("obligation_id", incomingID))
		return nil, err
	}

	plan := domain.AllocateSettlement(*incoming, accessible(actor, candidates), st)
	s.LogDebug(ctx, "Settlement suggested",
		slog.String("obligation_id", incomingID),
		slog.String("strategy", string(st)),
		slog.Int("allocations", len(plan.Allocations)),
		slog.String("total", plan.Total.String()))
	return &plan, nil
}

func (s *settlementService) ExecuteSettlement(ctx context.Context, actor domain.Actor, req dto.ExecuteSettlementRequest) (*domain.Settlement, error) {
	outgoingID := strings.TrimSpace(req.OutgoingObligationID)
	incomingID := strings.TrimSpace(req.IncomingObligationID)
	if outgoingID == "" {
		return nil, apperrors.NewValidationError("outgoingObligationID", "is required")
	}
	if incomingID == "" {
		return nil, apperrors.NewValidationError("incomingObligationID", "is required")
	}
	if outgoingID == incomingID {
		return nil, apperrors.NewValidationError("incomingObligationID", "must differ from outgoingObligationID")
	}
	if err := domain.RequirePositive(req.Amount, "amount"); err != nil {
		return nil, err
	}

	var settlement domain.Settlement
	err := s.withConflictRetry(ctx, "execute_settlement", func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			locked, err := s.obligationRepo.LockObligationsForUpdate(ctx, tx, actor.TenantID, []string{outgoingID, incomingID})
			if err != nil {
				return err
			}
			outgoing, incoming := locked[outgoingID], locked[incomingID]
			if err := s.AuthorizeBranch(ctx, actor, outgoing.BranchID); err != nil {
				return err
			}
			if err := s.AuthorizeBranch(ctx, actor, incoming.BranchID); err != nil {
				return err
			}
			if err := domain.ValidateSettlement(outgoing, incoming, req.Amount); err != nil {
				return err
			}
			cur, err := domain.LookupCurrency(outgoing.Currency, "currency")
			if err != nil {
				return err
			}
			if err := cur.CheckScale(req.Amount, "amount"); err != nil {
				return err
			}

			settlement = s.newSettlement(actor, outgoingID, incomingID, req.Amount, outgoing.Currency)
			return s.applySettlement(ctx, tx, actor, settlement)
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to execute settlement",
			slog.String("outgoing_obligation_id", outgoingID),
			slog.String("incoming_obligation_id", incomingID))
		return nil, err
	}

	s.Metrics.RecordSettled(settlement.Currency, settlement.Amount.InexactFloat64())
	s.LogInfo(ctx, "Settlement executed",
		slog.String("settlement_id", settlement.SettlementID),
		slog.String("outgoing_obligation_id", outgoingID),
		slog.String("incoming_obligation_id", incomingID),
		slog.String("amount", settlement.Amount.String()),
		slog.String("currency", settlement.Currency))
	return &settlement, nil
}

func (s *settlementService) newSettlement(actor domain.Actor, outgoingID, incomingID string, amount decimal.Decimal, currency string) domain.Settlement {
	return domain.Settlement{
		SettlementID:         uuid.NewString(),
		TenantID:             actor.TenantID,
		OutgoingObligationID: outgoingID,
		IncomingObligationID: incomingID,
		Amount:               amount,
		Currency:             currency,
		ExecutedAt:           s.now(),
		ExecutedBy:           actor.UserID,
	}
}

// applySettlement raises the settled amount on both sides and records the settlement.
// Both obligations must already be locked.
func (s *settlementService) applySettlement(ctx context.Context, tx pgx.Tx, actor domain.Actor, st domain.Settlement) error {
	if err := s.obligationRepo.AddSettledAmountInTx(ctx, tx, actor.TenantID, st.OutgoingObligationID, st.Amount); err != nil {
		return err
	}
	if err := s.obligationRepo.AddSettledAmountInTx(ctx, tx, actor.TenantID, st.IncomingObligationID, st.Amount); err != nil {
		return err
	}
	return s.obligationRepo.SaveSettlementInTx(ctx, tx, st)
}

func (s *settlementService) AutoSettle(ctx context.Context, actor domain.Actor, incomingID string, strategy string) (*domain.SettlementPlan, []domain.Settlement, error) {
	st, err := domain.ParseSettlementStrategy(strategy, s.defaultStrategy)
	if err != nil {
		return nil, nil, err
	}
	// Currency and direction never change after intake.
	probe, err := s.findIncoming(ctx, actor, incomingID)
	if err != nil {
		return nil, nil, err
	}

	var (
		plan        domain.SettlementPlan
		settlements []domain.Settlement
	)
	err = s.withConflictRetry(ctx, "auto_settle", func() error {
		settlements = []domain.Settlement{}
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			incoming, candidates, err := s.obligationRepo.LockSettlementCandidates(ctx, tx, actor.TenantID, incomingID, probe.Currency)
			if err != nil {
				return err
			}
			if !incoming.Unsettled().IsPositive() {
				return apperrors.NewStateError(fmt.Sprintf("incoming obligation %s is fully settled", incomingID))
			}

			plan = domain.AllocateSettlement(*incoming, accessible(actor, candidates), st)
			for _, a := range plan.Allocations {
				settlement := s.newSettlement(actor, a.OutgoingObligationID, incomingID, a.Amount, incoming.Currency)
				if err := s.applySettlement(ctx, tx, actor, settlement); err != nil {
					return err
				}
				settlements = append(settlements, settlement)
			}
			return nil
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to auto-settle", slog.String("obligation_id", incomingID))
		return nil, nil, err
	}

	s.Metrics.RecordSettled(plan.Currency, plan.Total.InexactFloat64())
	s.LogInfo(ctx, "Auto-settlement executed",
		slog.String("obligation_id", incomingID),
		slog.String("strategy", string(st)),
		slog.Int("settlements", len(settlements)),
		slog.String("total", plan.Total.String()),
		slog.String("remaining", plan.Remaining.String()))
	return &plan, settlements, nil
}
