package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/remittance_ledger/internal/core/ports/services"
	"github.com/SscSPs/remittance_ledger/internal/dto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// paymentService implements the PaymentSvcFacade interface
type paymentService struct {
	BaseService
	uow         portsrepo.UnitOfWork
	txnRepo     portsrepo.TransactionRepositoryFacade
	balanceRepo portsrepo.BalanceTransactionSupport
	tolerance   domain.Tolerance
}

// NewPaymentService creates the payment/drawdown tracker
func NewPaymentService(
	uow portsrepo.UnitOfWork,
	txnRepo portsrepo.TransactionRepositoryFacade,
	balanceRepo portsrepo.BalanceTransactionSupport,
	tolerance domain.Tolerance,
	options ...ServiceOption,
) portssvc.PaymentSvcFacade {
	return &paymentService{
		BaseService: newBaseService(options),
		uow:         uow,
		txnRepo:     txnRepo,
		balanceRepo: balanceRepo,
		tolerance:   tolerance,
	}
}

var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

var one = decimal.NewFromInt(1)

func (s *paymentService) RegisterTransaction(ctx context.Context, actor domain.Actor, req dto.RegisterTransactionRequest) (*domain.Transaction, error) {
	branchID := strings.TrimSpace(req.BranchID)
	if branchID == "" {
		branchID = actor.BranchID
	}
	if branchID == "" {
		return nil, apperrors.NewValidationError("branchID", "is required for actors without a branch")
	}
	if err := s.AuthorizeBranch(ctx, actor, branchID); err != nil {
		return nil, err
	}

	received, err := domain.LookupCurrency(req.ReceivedCurrency, "receivedCurrency")
	if err != nil {
		return nil, err
	}
	if err := domain.RequirePositive(req.TotalReceived, "totalReceived"); err != nil {
		return nil, err
	}
	if err := received.CheckScale(req.TotalReceived, "totalReceived"); err != nil {
		return nil, err
	}

	var remittance *domain.Remittance
	if req.Remittance != nil {
		remittance, err = buildRemittance(*req.Remittance)
		if err != nil {
			return nil, err
		}
	}

	transactionID := strings.TrimSpace(req.TransactionID)
	if transactionID == "" {
		transactionID = uuid.NewString()
	}

	var txn domain.Transaction
	err = s.withConflictRetry(ctx, "register_transaction", func() error {
		now := s.now()
		txn = domain.Transaction{
			TransactionID:       transactionID,
			TenantID:            actor.TenantID,
			BranchID:            branchID,
			CustomerID:          req.CustomerID,
			TotalReceived:       req.TotalReceived,
			ReceivedCurrency:    received.CurrencyCode,
			TotalPaid:           decimal.Zero,
			RemainingBalance:    req.TotalReceived,
			PaymentStatus:       domain.StatusOpen,
			AllowPartialPayment: req.AllowPartialPayment,
			Remittance:          remittance,
			Version:             1,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actor.UserID,
				LastUpdatedAt: now,
				LastUpdatedBy: actor.UserID,
			},
		}

		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			if err := s.txnRepo.SaveTransactionInTx(ctx, tx, txn); err != nil {
				return err
			}
			deltas := domain.BalanceDeltas{}
			deltas.Add(txn.ReceivedCurrency, txn.TotalReceived)
			return s.balanceRepo.ApplyBalanceDeltasInTx(ctx, tx, actor.TenantID, branchID, deltas, actor.UserID, now)
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to register transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}

	s.InvalidateBalances(ctx, actor.TenantID, branchID, txn.ReceivedCurrency)
	s.LogInfo(ctx, "Transaction registered",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("branch_id", branchID),
		slog.String("total_received", txn.TotalReceived.String()),
		slog.String("currency", txn.ReceivedCurrency))
	return &txn, nil
}

func buildRemittance(req dto.RegisterRemittanceRequest) (*domain.Remittance, error) {
	direction := domain.RemittanceDirection(strings.ToUpper(strings.TrimSpace(req.Direction)))
	if direction != domain.DirectionIncoming && direction != domain.DirectionOutgoing {
		return nil, apperrors.NewValidationError("remittance.direction", fmt.Sprintf("unsupported direction %q", req.Direction))
	}
	cur, err := domain.LookupCurrency(req.Currency, "remittance.currency")
	if err != nil {
		return nil, err
	}
	if err := domain.RequirePositive(req.Amount, "remittance.amount"); err != nil {
		return nil, err
	}
	if err := cur.CheckScale(req.Amount, "remittance.amount"); err != nil {
		return nil, err
	}
	if err := domain.RequirePositive(req.Rate, "remittance.rate"); err != nil {
		return nil, err
	}
	return &domain.Remittance{
		Direction:     direction,
		Amount:        req.Amount,
		Currency:      cur.CurrencyCode,
		Rate:          req.Rate,
		SettledAmount: decimal.Zero,
	}, nil
}

func (s *paymentService) GetTransaction(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, actor.TenantID, transactionID)
	if err != nil {
		return nil, err
	}
	if err := s.AuthorizeBranch(ctx, actor, txn.BranchID); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *paymentService) ListPayments(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, []domain.Payment, error) {
	txn, err := s.GetTransaction(ctx, actor, transactionID)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.txnRepo.ListPaymentsByTransaction(ctx, actor.TenantID, transactionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payments", slog.String("transaction_id", transactionID))
		return nil, nil, err
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	return txn, payments, nil
}

func (s *paymentService) ListPaymentEdits(ctx context.Context, actor domain.Actor, paymentID string) ([]domain.PaymentEdit, error) {
	payment, err := s.txnRepo.FindPaymentByID(ctx, actor.TenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetTransaction(ctx, actor, payment.TransactionID); err != nil {
		return nil, err
	}
	edits, err := s.txnRepo.ListPaymentEdits(ctx, actor.TenantID, paymentID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payment edits", slog.String("payment_id", paymentID))
		return nil, err
	}
	if edits == nil {
		return []domain.PaymentEdit{}, nil
	}
	return edits, nil
}

func (s *paymentService) ListTransactionEdits(ctx context.Context, actor domain.Actor, transactionID string) ([]domain.TransactionEdit, error) {
	if _, err := s.GetTransaction(ctx, actor, transactionID); err != nil {
		return nil, err
	}
	edits, err := s.txnRepo.ListTransactionEdits(ctx, actor.TenantID, transactionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transaction edits", slog.String("transaction_id", transactionID))
		return nil, err
	}
	if edits == nil {
		return []domain.TransactionEdit{}, nil
	}
	return edits, nil
}

// lockTransaction locks the transaction row and checks the actor's branch.
func (s *paymentService) lockTransaction(ctx context.Context, tx pgx.Tx, actor domain.Actor, transactionID string) (*domain.Transaction, domain.Currency, error) {
	txn, err := s.txnRepo.FindTransactionForUpdate(ctx, tx, actor.TenantID, transactionID)
	if err != nil {
		return nil, domain.Currency{}, err
	}
	if err := s.AuthorizeBranch(ctx, actor, txn.BranchID); err != nil {
		return nil, domain.Currency{}, err
	}
	base, err := domain.LookupCurrency(txn.ReceivedCurrency, "receivedCurrency")
	if err != nil {
		return nil, domain.Currency{}, err
	}
	return txn, base, nil
}

// checkRate enforces rate == 1 when paying out in the received currency.
func checkRate(paymentCurrency string, rate decimal.Decimal, base domain.Currency) error {
	if err := domain.RequirePositive(rate, "exchangeRate"); err != nil {
		return err
	}
	if paymentCurrency == base.CurrencyCode && !rate.Equal(one) {
		return apperrors.NewValidationError("exchangeRate", fmt.Sprintf("must be 1 for payments in %s", base.CurrencyCode))
	}
	return nil
}

// checkDrawdown applies the tolerance rules to a payment worth amountInBase, given
// the active total of the other payments.
func (s *paymentService) checkDrawdown(txn *domain.Transaction, otherCount int, otherTotal, amountInBase decimal.Decimal) error {
	if !amountInBase.IsPositive() {
		return apperrors.NewValidationError("amount", "converts to zero in "+txn.ReceivedCurrency)
	}
	if !txn.AllowPartialPayment && otherCount > 0 {
		return apperrors.NewStateError(fmt.Sprintf("transaction %s does not allow partial payments and already has a payment", txn.TransactionID))
	}
	if err := s.tolerance.CheckOverpayment(txn.TotalReceived, otherTotal, amountInBase); err != nil {
		return err
	}
	if !txn.AllowPartialPayment {
		remaining := txn.TotalReceived.Sub(otherTotal).Sub(amountInBase)
		if !s.tolerance.WithinBand(txn.TotalReceived, remaining) {
			return apperrors.NewValidationError("amount",
				fmt.Sprintf("transaction requires a single payment of %s %s", txn.TotalReceived.String(), txn.ReceivedCurrency))
		}
	}
	return nil
}

func (s *paymentService) AddPayment(ctx context.Context, actor domain.Actor, transactionID string, req dto.CreatePaymentRequest) (*domain.Payment, *domain.Transaction, error) {
	cur, err := domain.LookupCurrency(req.Currency, "currency")
	if err != nil {
		return nil, nil, err
	}
	if err := domain.RequirePositive(req.Amount, "amount"); err != nil {
		return nil, nil, err
	}
	if err := cur.CheckScale(req.Amount, "amount"); err != nil {
		return nil, nil, err
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, nil, err
	}
	details, err := domain.DecodePaymentDetails(method, req.Details)
	if err != nil {
		return nil, nil, err
	}

	var (
		payment domain.Payment
		txn     *domain.Transaction
	)
	err = s.withConflictRetry(ctx, "add_payment", func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			locked, base, err := s.lockTransaction(ctx, tx, actor, transactionID)
			if err != nil {
				return err
			}
			if locked.IsTerminal() {
				return apperrors.NewStateError(fmt.Sprintf("transaction %s is %s", locked.TransactionID, locked.PaymentStatus))
			}
			if err := checkRate(cur.CurrencyCode, req.ExchangeRate, base); err != nil {
				return err
			}

			payments, err := s.txnRepo.ListPaymentsInTx(ctx, tx, actor.TenantID, transactionID)
			if err != nil {
				return err
			}
			amountInBase := domain.ComputeAmountInBase(req.Amount, req.ExchangeRate, base)
			otherTotal := domain.SumActiveAmountInBase(payments)
			otherCount := domain.CountActive(payments)
			if err := s.checkDrawdown(locked, otherCount, otherTotal, amountInBase); err != nil {
				return err
			}

			now := s.now()
			payment = domain.Payment{
				PaymentID:     uuid.NewString(),
				TenantID:      actor.TenantID,
				TransactionID: transactionID,
				Amount:        req.Amount,
				Currency:      cur.CurrencyCode,
				ExchangeRate:  req.ExchangeRate,
				AmountInBase:  amountInBase,
				PaymentMethod: method,
				Details:       details,
				Status:        domain.PaymentCompleted,
				PaidBy:        actor.UserID,
				PaidAt:        now,
				Notes:         strings.TrimSpace(req.Notes),
				AuditFields: domain.AuditFields{
					CreatedAt:     now,
					CreatedBy:     actor.UserID,
					LastUpdatedAt: now,
					LastUpdatedBy: actor.UserID,
				},
			}
			if err := s.txnRepo.SavePaymentInTx(ctx, tx, payment); err != nil {
				return err
			}

			if err := s.saveTotals(ctx, tx, actor, locked, append(payments, payment), now); err != nil {
				return err
			}

			deltas := domain.BalanceDeltas{}
			deltas.Add(payment.Currency, payment.Amount.Neg())
			if err := s.balanceRepo.ApplyBalanceDeltasInTx(ctx, tx, actor.TenantID, locked.BranchID, deltas, actor.UserID, now); err != nil {
				return err
			}
			txn = locked
			return nil
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to add payment", slog.String("transaction_id", transactionID))
		return nil, nil, err
	}

	s.InvalidateBalances(ctx, actor.TenantID, txn.BranchID, payment.Currency)
	s.LogInfo(ctx, "Payment added",
		slog.String("payment_id", payment.PaymentID),
		slog.String("transaction_id", transactionID),
		slog.String("amount", payment.Amount.String()),
		slog.String("currency", payment.Currency),
		slog.String("amount_in_base", payment.AmountInBase.String()),
		slog.String("remaining", txn.RemainingBalance.String()))
	return &payment, txn, nil
}

// saveTotals recalculates txn from payments and writes it under its version.
func (s *paymentService) saveTotals(ctx context.Context, tx pgx.Tx, actor domain.Actor, txn *domain.Transaction, payments []domain.Payment, now time.Time) error {
	txn.Recalculate(payments)
	txn.LastUpdatedAt = now
	txn.LastUpdatedBy = actor.UserID
	if err := s.txnRepo.UpdateTransactionInTx(ctx, tx, *txn); err != nil {
		return err
	}
	txn.Version++
	return nil
}

// lockPayment locks the payment's transaction, then the payment itself.
func (s *paymentService) lockPayment(ctx context.Context, tx pgx.Tx, actor domain.Actor, transactionID, paymentID string) (*domain.Transaction, domain.Currency, *domain.Payment, error) {
	txn, base, err := s.lockTransaction(ctx, tx, actor, transactionID)
	if err != nil {
		return nil, domain.Currency{}, nil, err
	}
	payment, err := s.txnRepo.FindPaymentForUpdate(ctx, tx, actor.TenantID, paymentID)
	if err != nil {
		return nil, domain.Currency{}, nil, err
	}
	if txn.PaymentStatus == domain.StatusFullyPaid {
		return nil, domain.Currency{}, nil, apperrors.NewStateError(fmt.Sprintf("transaction %s is FULLY_PAID", txn.TransactionID))
	}
	if !payment.IsActive() {
		return nil, domain.Currency{}, nil, apperrors.NewStateError(fmt.Sprintf("payment %s is already cancelled", payment.PaymentID))
	}
	return txn, base, payment, nil
}

func (s *paymentService) EditPayment(ctx context.Context, actor domain.Actor, paymentID string, req dto.EditPaymentRequest) (*domain.Payment, *domain.Transaction, error) {
	if req.Amount == nil && req.ExchangeRate == nil {
		return nil, nil, apperrors.NewValidationError("amount", "amount or exchangeRate must be given")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, nil, apperrors.NewValidationError("reason", "is required")
	}

	// The transaction id never changes, so it is safe to read before locking.
	current, err := s.txnRepo.FindPaymentByID(ctx, actor.TenantID, paymentID)
	if err != nil {
		return nil, nil, err
	}

	var (
		payment domain.Payment
		txn     *domain.Transaction
		delta   decimal.Decimal
	)
	err = s.withConflictRetry(ctx, "edit_payment", func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			locked, base, old, err := s.lockPayment(ctx, tx, actor, current.TransactionID, paymentID)
			if err != nil {
				return err
			}
			if locked.PaymentStatus == domain.StatusCancelled {
				return apperrors.NewStateError(fmt.Sprintf("transaction %s is CANCELLED", locked.TransactionID))
			}

			cur, err := domain.LookupCurrency(old.Currency, "currency")
			if err != nil {
				return err
			}
			newAmount := old.Amount
			if req.Amount != nil {
				newAmount = *req.Amount
			}
			newRate := old.ExchangeRate
			if req.ExchangeRate != nil {
				newRate = *req.ExchangeRate
			}
			if err := domain.RequirePositive(newAmount, "amount"); err != nil {
				return err
			}
			if err := cur.CheckScale(newAmount, "amount"); err != nil {
				return err
			}
			if err := checkRate(old.Currency, newRate, base); err != nil {
				return err
			}
			if newAmount.Equal(old.Amount) && newRate.Equal(old.ExchangeRate) {
				return apperrors.NewValidationError("amount", "edit does not change the payment")
			}

			payments, err := s.txnRepo.ListPaymentsInTx(ctx, tx, actor.TenantID, locked.TransactionID)
			if err != nil {
				return err
			}
			others := withoutPayment(payments, paymentID)
			newBase := domain.ComputeAmountInBase(newAmount, newRate, base)
			if err := s.checkDrawdown(locked, domain.CountActive(others), domain.SumActiveAmountInBase(others), newBase); err != nil {
				return err
			}

			now := s.now()
			edit := domain.PaymentEdit{
				EditID:               uuid.NewString(),
				TenantID:             actor.TenantID,
				PaymentID:            paymentID,
				PreviousAmount:       old.Amount,
				PreviousExchangeRate: old.ExchangeRate,
				PreviousAmountInBase: old.AmountInBase,
				NewAmount:            newAmount,
				NewExchangeRate:      newRate,
				NewAmountInBase:      newBase,
				Reason:               reason,
				EditedBy:             actor.UserID,
				EditedAt:             now,
			}
			if err := s.txnRepo.SavePaymentEditInTx(ctx, tx, edit); err != nil {
				return err
			}

			updated := *old
			updated.Amount = newAmount
			updated.ExchangeRate = newRate
			updated.AmountInBase = newBase
			updated.IsEdited = true
			updated.EditReason = reason
			updated.LastUpdatedAt = now
			updated.LastUpdatedBy = actor.UserID
			if err := s.txnRepo.UpdatePaymentInTx(ctx, tx, updated); err != nil {
				return err
			}

			if err := s.saveTotals(ctx, tx, actor, locked, append(others, updated), now); err != nil {
				return err
			}

			delta = old.Amount.Sub(newAmount)
			deltas := domain.BalanceDeltas{}
			deltas.Add(updated.Currency, delta)
			if err := s.balanceRepo.ApplyBalanceDeltasInTx(ctx, tx, actor.TenantID, locked.BranchID, deltas, actor.UserID, now); err != nil {
				return err
			}
			payment = updated
			txn = locked
			return nil
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to edit payment", slog.String("payment_id", paymentID))
		return nil, nil, err
	}

	s.InvalidateBalances(ctx, actor.TenantID, txn.BranchID, payment.Currency)
	s.LogInfo(ctx, "Payment edited",
		slog.String("payment_id", paymentID),
		slog.String("transaction_id", txn.TransactionID),
		slog.String("cash_delta", delta.String()),
		slog.String("remaining", txn.RemainingBalance.String()))
	return &payment, txn, nil
}

func withoutPayment(payments []domain.Payment, paymentID string) []domain.Payment {
	out := make([]domain.Payment, 0, len(payments))
	for _, p := range payments {
		if p.PaymentID != paymentID {
			out = append(out, p)
		}
	}
	return out
}

func (s *paymentService) CancelPayment(ctx context.Context, actor domain.Actor, paymentID string, reason string) (*domain.Payment, *domain.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, apperrors.NewValidationError("reason", "is required")
	}

	current, err := s.txnRepo.FindPaymentByID(ctx, actor.TenantID, paymentID)
	if err != nil {
		return nil, nil, err
	}

	var (
		payment domain.Payment
		txn     *domain.Transaction
	)
	err = s.withConflictRetry(ctx, "cancel_payment", func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			locked, _, old, err := s.lockPayment(ctx, tx, actor, current.TransactionID, paymentID)
			if err != nil {
				return err
			}

			now := s.now()
			updated := *old
			updated.Status = domain.PaymentCancelled
			updated.CancelReason = reason
			updated.CancelledBy = actor.UserID
			updated.CancelledAt = &now
			updated.LastUpdatedAt = now
			updated.LastUpdatedBy = actor.UserID
			if err := s.txnRepo.UpdatePaymentInTx(ctx, tx, updated); err != nil {
				return err
			}

			payments, err := s.txnRepo.ListPaymentsInTx(ctx, tx, actor.TenantID, locked.TransactionID)
			if err != nil {
				return err
			}
			if err := s.saveTotals(ctx, tx, actor, locked, append(withoutPayment(payments, paymentID), updated), now); err != nil {
				return err
			}

			deltas := domain.BalanceDeltas{}
			deltas.Add(updated.Currency, updated.Amount)
			if err := s.balanceRepo.ApplyBalanceDeltasInTx(ctx, tx, actor.TenantID, locked.BranchID, deltas, actor.UserID, now); err != nil {
				return err
			}
			payment = updated
			txn = locked
			return nil
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to cancel payment", slog.String("payment_id", paymentID))
		return nil, nil, err
	}

	s.InvalidateBalances(ctx, actor.TenantID, txn.BranchID, payment.Currency)
	s.LogInfo(ctx, "Payment cancelled",
		slog.String("payment_id", paymentID),
		slog.String("transaction_id", txn.TransactionID),
		slog.String("remaining", txn.RemainingBalance.String()))
	return &payment, txn, nil
}

func (s *paymentService) CompleteTransaction(ctx context.Context, actor domain.Actor, transactionID string, req dto.CompleteTransactionRequest) (*domain.Transaction, error) {
	var txn *domain.Transaction
	err := s.withConflictRetry(ctx, "complete_transaction", func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			locked, _, err := s.lockTransaction(ctx, tx, actor, transactionID)
			if err != nil {
				return err
			}
			if locked.IsTerminal() {
				return apperrors.NewStateError(fmt.Sprintf("transaction %s is %s", locked.TransactionID, locked.PaymentStatus))
			}
			if !s.tolerance.WithinBand(locked.TotalReceived, locked.RemainingBalance) {
				return apperrors.NewStateError(fmt.Sprintf("remaining balance %s %s is outside the tolerance band %s",
					locked.RemainingBalance.String(), locked.ReceivedCurrency, s.tolerance.Band(locked.TotalReceived).String()))
			}
			if err := s.changeStatus(ctx, tx, actor, locked, domain.ActionCompleted, domain.StatusFullyPaid, strings.TrimSpace(req.Notes)); err != nil {
				return err
			}
			txn = locked
			return nil
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to complete transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}

	s.LogInfo(ctx, "Transaction completed",
		slog.String("transaction_id", transactionID),
		slog.String("remaining", txn.RemainingBalance.String()))
	return txn, nil
}

func (s *paymentService) CancelTransaction(ctx context.Context, actor domain.Actor, transactionID string, reason string) (*domain.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason", "is required")
	}

	var txn *domain.Transaction
	err := s.withConflictRetry(ctx, "cancel_transaction", func() error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			locked, _, err := s.lockTransaction(ctx, tx, actor, transactionID)
			if err != nil {
				return err
			}
			if locked.IsTerminal() {
				return apperrors.NewStateError(fmt.Sprintf("transaction %s is %s", locked.TransactionID, locked.PaymentStatus))
			}
			if locked.Remittance != nil && locked.Remittance.SettledAmount.IsPositive() {
				return apperrors.NewStateError(fmt.Sprintf("remittance of transaction %s already has %s settled",
					locked.TransactionID, locked.Remittance.SettledAmount.String()))
			}
			if err := s.changeStatus(ctx, tx, actor, locked, domain.ActionCancelled, domain.StatusCancelled, reason); err != nil {
				return err
			}
			txn = locked
			return nil
		})
	})
	if err != nil {
		s.LogOutcome(ctx, err, "Failed to cancel transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}

	s.InvalidateBalances(ctx, actor.TenantID, txn.BranchID, txn.ReceivedCurrency)
	s.LogInfo(ctx, "Transaction cancelled",
		slog.String("transaction_id", transactionID),
		slog.String("reversed", txn.TotalReceived.String()),
		slog.String("currency", txn.ReceivedCurrency))
	return txn, nil
}

// changeStatus records an explicit status change. Cancelling also reverses the intake.
func (s *paymentService) changeStatus(
	ctx context.Context,
	tx pgx.Tx,
	actor domain.Actor,
	txn *domain.Transaction,
	action domain.TransactionAction,
	status domain.PaymentStatus,
	reason string,
) error {
	now := s.now()
	edit := domain.TransactionEdit{
		EditID:            uuid.NewString(),
		TenantID:          actor.TenantID,
		TransactionID:     txn.TransactionID,
		Action:            action,
		PreviousStatus:    txn.PaymentStatus,
		NewStatus:         status,
		RemainingAtChange: txn.RemainingBalance,
		Reason:            reason,
		PerformedBy:       actor.UserID,
		PerformedAt:       now,
	}
	if err := s.txnRepo.SaveTransactionEditInTx(ctx, tx, edit); err != nil {
		return err
	}

	txn.PaymentStatus = status
	txn.LastUpdatedAt = now
	txn.LastUpdatedBy = actor.UserID
	if err := s.txnRepo.UpdateTransactionInTx(ctx, tx, *txn); err != nil {
		return err
	}
	txn.Version++

	if status == domain.StatusCancelled {
		deltas := domain.BalanceDeltas{}
		deltas.Add(txn.ReceivedCurrency, txn.TotalReceived.Neg())
		if err := s.balanceRepo.ApplyBalanceDeltasInTx(ctx, tx, actor.TenantID, txn.BranchID, deltas, actor.UserID, now); err != nil {
			return err
		}
	}
	return nil
}
