package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Obligation is an outstanding remittance amount. Its ID is the ID of the
// transaction that carries the remittance.
type Obligation struct {
	ObligationID  string              `json:"obligationID"`
	TenantID      string              `json:"tenantID"`
	BranchID      string              `json:"branchID"`
	Direction     RemittanceDirection `json:"direction"`
	Currency      string              `json:"currency"`
	Amount        decimal.Decimal     `json:"amount"`
	SettledAmount decimal.Decimal     `json:"settledAmount"`
	Rate          decimal.Decimal     `json:"rate"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// Unsettled is amount minus what has been settled so far.
func (o Obligation) Unsettled() decimal.Decimal {
	return o.Amount.Sub(o.SettledAmount)
}

// ObligationFilter narrows obligation listings.
type ObligationFilter struct {
	Direction RemittanceDirection
	Currency  string
	BranchID  string
	OnlyOpen  bool
	Limit     int
}

// SettlementStrategy orders candidate outgoing obligations.
type SettlementStrategy string

const (
	StrategyFIFO     SettlementStrategy = "FIFO"
	StrategyBestRate SettlementStrategy = "BEST_RATE"
)

// ParseSettlementStrategy resolves s, falling back to def when s is empty.
func ParseSettlementStrategy(s string, def SettlementStrategy) (SettlementStrategy, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	switch st := SettlementStrategy(strings.ToUpper(strings.TrimSpace(s))); st {
	case StrategyFIFO, StrategyBestRate:
		return st, nil
	default:
		return "", apperrors.NewValidationError("strategy", fmt.Sprintf("unsupported settlement strategy %q", s))
	}
}

// Settlement records that part of an incoming credit offset part of an outgoing debt.
type Settlement struct {
	SettlementID         string          `json:"settlementID"`
	TenantID             string          `json:"tenantID"`
	OutgoingObligationID string          `json:"outgoingObligationID"`
	IncomingObligationID string          `json:"incomingObligationID"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	ExecutedAt           time.Time       `json:"executedAt"`
	ExecutedBy           string          `json:"executedBy"`
}

// Allocation is one suggested settlement against an outgoing obligation.
type Allocation struct {
	OutgoingObligationID string          `json:"outgoingObligationID"`
	Amount               decimal.Decimal `json:"amount"`
}

// SettlementPlan is the ordered allocation of an incoming credit.
type SettlementPlan struct {
	IncomingObligationID string             `json:"incomingObligationID"`
	Currency             string             `json:"currency"`
	Strategy             SettlementStrategy `json:"strategy"`
	Allocations          []Allocation       `json:"allocations"`
	Total                decimal.Decimal    `json:"total"`
	Remaining            decimal.Decimal    `json:"remaining"`
}

// IsEligibleCandidate reports whether o can absorb part of incoming.
func IsEligibleCandidate(incoming, o Obligation) bool {
	return o.Direction == DirectionOutgoing &&
		o.TenantID == incoming.TenantID &&
		o.Currency == incoming.Currency &&
		o.ObligationID != incoming.ObligationID &&
		o.Unsettled().IsPositive()
}

// OrderCandidates returns the eligible candidates in strategy order.
// FIFO: oldest first. BEST_RATE: highest rate first, then oldest, then ID.
func OrderCandidates(incoming Obligation, candidates []Obligation, strategy SettlementStrategy) []Obligation {
	eligible := make([]Obligation, 0, len(candidates))
	for _, c := range candidates {
		if IsEligibleCandidate(incoming, c) {
			eligible = append(eligible, c)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if strategy == StrategyBestRate && !a.Rate.Equal(b.Rate) {
			return a.Rate.GreaterThan(b.Rate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ObligationID < b.ObligationID
	})
	return eligible
}

// AllocateSettlement walks the ordered candidates, allocating min(remaining, unsettled)
// until the incoming credit is exhausted.
func AllocateSettlement(incoming Obligation, candidates []Obligation, strategy SettlementStrategy) SettlementPlan {
	plan := SettlementPlan{
		IncomingObligationID: incoming.ObligationID,
		Currency:             incoming.Currency,
		Strategy:             strategy,
		Allocations:          []Allocation{},
		Total:                decimal.Zero,
	}

	remaining := incoming.Unsettled()
	if !remaining.IsPositive() {
		plan.Remaining = decimal.Zero
		return plan
	}

	for _, c := range OrderCandidates(incoming, candidates, strategy) {
		if !remaining.IsPositive() {
			break
		}
		amount := decimal.Min(remaining, c.Unsettled())
		plan.Allocations = append(plan.Allocations, Allocation{OutgoingObligationID: c.ObligationID, Amount: amount})
		plan.Total = plan.Total.Add(amount)
		remaining = remaining.Sub(amount)
	}
	plan.Remaining = remaining
	return plan
}

// ValidateSettlement checks a manual settlement of amount between outgoing and incoming.
func ValidateSettlement(outgoing, incoming Obligation, amount decimal.Decimal) error {
	if outgoing.Direction != DirectionOutgoing {
		return apperrors.NewValidationError("outgoingObligationID", "obligation is not OUTGOING")
	}
	if incoming.Direction != DirectionIncoming {
		return apperrors.NewValidationError("incomingObligationID", "obligation is not INCOMING")
	}
	if outgoing.Currency != incoming.Currency {
		return apperrors.NewValidationError("currency",
			fmt.Sprintf("currency mismatch: outgoing %s, incoming %s", outgoing.Currency, incoming.Currency))
	}
	if err := RequirePositive(amount, "amount"); err != nil {
		return err
	}
	if !outgoing.Unsettled().IsPositive() {
		return apperrors.NewStateError(fmt.Sprintf("outgoing obligation %s is fully settled", outgoing.ObligationID))
	}
	if !incoming.Unsettled().IsPositive() {
		return apperrors.NewStateError(fmt.Sprintf("incoming obligation %s is fully settled", incoming.ObligationID))
	}
	if amount.GreaterThan(outgoing.Unsettled()) {
		return apperrors.NewValidationError("amount",
			fmt.Sprintf("amount exceeds outgoing unsettled %s", outgoing.Unsettled().String()))
	}
	if amount.GreaterThan(incoming.Unsettled()) {
		return apperrors.NewValidationError("amount",
			fmt.Sprintf("amount exceeds incoming unsettled %s", incoming.Unsettled().String()))
	}
	return nil
}
