package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// memLedger is an in-memory ledger store. WithinTx serializes units of work and
// restores a snapshot when fn fails, so the services see the same atomicity as
// with PostgreSQL. InTx methods expect the store lock to be held by WithinTx.
type memLedger struct {
	mu sync.Mutex

	txns         map[string]domain.Transaction
	payments     map[string]domain.Payment
	paymentEdits []domain.PaymentEdit
	txnEdits     []domain.TransactionEdit
	balances     map[string]domain.CashBalance
	adjustments  map[string]domain.Adjustment
	settlements  []domain.Settlement
	recs         map[string]domain.Reconciliation

	// conflicts makes the next n units of work fail with a concurrency conflict.
	conflicts int
	txCount   int

	// afterFindBalance runs once a FindBalance read is taken, outside the store lock.
	afterFindBalance func()
}

func newMemLedger() *memLedger {
	return &memLedger{
		txns:        map[string]domain.Transaction{},
		payments:    map[string]domain.Payment{},
		balances:    map[string]domain.CashBalance{},
		adjustments: map[string]domain.Adjustment{},
		recs:        map[string]domain.Reconciliation{},
	}
}

func (m *memLedger) provider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UnitOfWork:         m,
		BalanceRepo:        m,
		TransactionRepo:    m,
		ObligationRepo:     m,
		ReconciliationRepo: m,
	}
}

var (
	_ portsrepo.UnitOfWork                     = (*memLedger)(nil)
	_ portsrepo.BalanceRepositoryFacade        = (*memLedger)(nil)
	_ portsrepo.TransactionRepositoryFacade    = (*memLedger)(nil)
	_ portsrepo.ObligationRepositoryFacade     = (*memLedger)(nil)
	_ portsrepo.ReconciliationRepositoryFacade = (*memLedger)(nil)
)

type memSnapshot struct {
	txns         map[string]domain.Transaction
	payments     map[string]domain.Payment
	paymentEdits []domain.PaymentEdit
	txnEdits     []domain.TransactionEdit
	balances     map[string]domain.CashBalance
	adjustments  map[string]domain.Adjustment
	settlements  []domain.Settlement
	recs         map[string]domain.Reconciliation
}

func cloneMap[T any](in map[string]T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneTxn(t domain.Transaction) domain.Transaction {
	if t.Remittance != nil {
		r := *t.Remittance
		t.Remittance = &r
	}
	return t
}

func (m *memLedger) snapshot() memSnapshot {
	txns := make(map[string]domain.Transaction, len(m.txns))
	for k, v := range m.txns {
		txns[k] = cloneTxn(v)
	}
	return memSnapshot{
		txns:         txns,
		payments:     cloneMap(m.payments),
		paymentEdits: append([]domain.PaymentEdit(nil), m.paymentEdits...),
		txnEdits:     append([]domain.TransactionEdit(nil), m.txnEdits...),
		balances:     cloneMap(m.balances),
		adjustments:  cloneMap(m.adjustments),
		settlements:  append([]domain.Settlement(nil), m.settlements...),
		recs:         cloneMap(m.recs),
	}
}

func (m *memLedger) restore(s memSnapshot) {
	m.txns = s.txns
	m.payments = s.payments
	m.paymentEdits = s.paymentEdits
	m.txnEdits = s.txnEdits
	m.balances = s.balances
	m.adjustments = s.adjustments
	m.settlements = s.settlements
	m.recs = s.recs
}

func (m *memLedger) failNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = n
}

func (m *memLedger) units() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCount
}

// --- UnitOfWork ---

func (m *memLedger) WithinTx(ctx context.Context, fn portsrepo.TxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	if m.conflicts > 0 {
		m.conflicts--
		return fmt.Errorf("lock row: %w", apperrors.ErrConcurrencyConflict)
	}

	snap := m.snapshot()
	if err := fn(ctx, nil); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// --- balances ---

func balanceKey(tenantID, branchID, currency string) string {
	return tenantID + "|" + branchID + "|" + currency
}

func (m *memLedger) FindBalance(ctx context.Context, tenantID, branchID, currency string) (*domain.CashBalance, error) {
	m.mu.Lock()
	b, ok := m.balances[balanceKey(tenantID, branchID, currency)]
	hook := m.afterFindBalance
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, apperrors.NewNotFoundError("balance", branchID+"/"+currency)
	}
	return &b, nil
}

func (m *memLedger) ListBalancesByBranch(ctx context.Context, tenantID, branchID string) ([]domain.CashBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.CashBalance{}
	for _, b := range m.balances {
		if b.TenantID == tenantID && b.BranchID == branchID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (m *memLedger) ListAdjustments(ctx context.Context, tenantID, branchID, currency string) ([]domain.Adjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Adjustment{}
	for _, a := range m.adjustments {
		if a.TenantID == tenantID && a.BranchID == branchID && a.Currency == currency {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].AdjustmentID > out[j].AdjustmentID
	})
	return out, nil
}

func (m *memLedger) LockBalanceForUpdate(ctx context.Context, tx pgx.Tx, tenantID, branchID, currency string) (*domain.CashBalance, error) {
	key := balanceKey(tenantID, branchID, currency)
	b, ok := m.balances[key]
	if !ok {
		b = domain.CashBalance{TenantID: tenantID, BranchID: branchID, Currency: currency, Balance: decimal.Zero}
		m.balances[key] = b
	}
	return &b, nil
}

func (m *memLedger) ReadBalancesInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID string, currencies []string) (map[string]domain.CashBalance, error) {
	out := map[string]domain.CashBalance{}
	for _, c := range currencies {
		if b, ok := m.balances[balanceKey(tenantID, branchID, c)]; ok {
			out[c] = b
		}
	}
	return out, nil
}

func (m *memLedger) ApplyBalanceDeltasInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID string, deltas domain.BalanceDeltas, userID string, now time.Time) error {
	for _, c := range deltas.Currencies() {
		key := balanceKey(tenantID, branchID, c)
		b, ok := m.balances[key]
		if !ok {
			b = domain.CashBalance{TenantID: tenantID, BranchID: branchID, Currency: c, Balance: decimal.Zero}
		}
		b.Balance = b.Balance.Add(deltas[c])
		b.Version++
		b.LastUpdated = now
		b.LastUpdatedBy = userID
		m.balances[key] = b
	}
	return nil
}

func (m *memLedger) SetBalanceInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID, currency string, balance decimal.Decimal, userID string, now time.Time) error {
	key := balanceKey(tenantID, branchID, currency)
	b := m.balances[key]
	b.Balance = balance
	b.Version++
	b.LastUpdated = now
	b.LastUpdatedBy = userID
	m.balances[key] = b
	return nil
}

func (m *memLedger) ListBalanceEntriesInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID, currency string) ([]domain.BalanceEntry, error) {
	var entries []domain.BalanceEntry
	for _, t := range m.txns {
		if t.TenantID != tenantID || t.BranchID != branchID {
			continue
		}
		if t.ReceivedCurrency == currency && t.PaymentStatus != domain.StatusCancelled {
			entries = append(entries, domain.BalanceEntry{Source: domain.SourceIntake, SourceID: t.TransactionID, Delta: t.TotalReceived, OccurredAt: t.CreatedAt})
		}
		for _, p := range m.payments {
			if p.TransactionID == t.TransactionID && p.Currency == currency && p.IsActive() {
				entries = append(entries, domain.BalanceEntry{Source: domain.SourcePayment, SourceID: p.PaymentID, Delta: p.Amount.Neg(), OccurredAt: p.PaidAt})
			}
		}
	}
	for _, a := range m.adjustments {
		if a.TenantID == tenantID && a.BranchID == branchID && a.Currency == currency && a.IsActive() {
			entries = append(entries, domain.BalanceEntry{Source: domain.SourceAdjustment, SourceID: a.AdjustmentID, Delta: a.Delta, OccurredAt: a.CreatedAt})
		}
	}
	return entries, nil
}

func (m *memLedger) SaveAdjustmentInTx(ctx context.Context, tx pgx.Tx, adjustment domain.Adjustment) error {
	if _, ok := m.adjustments[adjustment.AdjustmentID]; ok {
		return fmt.Errorf("adjustment %s: %w", adjustment.AdjustmentID, apperrors.ErrDuplicate)
	}
	m.adjustments[adjustment.AdjustmentID] = adjustment
	return nil
}

func (m *memLedger) FindAdjustmentForUpdate(ctx context.Context, tx pgx.Tx, tenantID, adjustmentID string) (*domain.Adjustment, error) {
	a, ok := m.adjustments[adjustmentID]
	if !ok || a.TenantID != tenantID {
		return nil, apperrors.NewNotFoundError("adjustment", adjustmentID)
	}
	return &a, nil
}

func (m *memLedger) MarkAdjustmentSupersededInTx(ctx context.Context, tx pgx.Tx, tenantID, adjustmentID, supersededBy string) error {
	a, ok := m.adjustments[adjustmentID]
	if !ok || a.SupersededBy != "" {
		return apperrors.NewStateError("adjustment " + adjustmentID + " cannot be superseded")
	}
	a.SupersededBy = supersededBy
	m.adjustments[adjustmentID] = a
	return nil
}

// --- transactions and payments ---

func (m *memLedger) FindTransactionByID(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findTxn(tenantID, transactionID)
}

func (m *memLedger) findTxn(tenantID, transactionID string) (*domain.Transaction, error) {
	t, ok := m.txns[transactionID]
	if !ok || t.TenantID != tenantID {
		return nil, apperrors.NewNotFoundError("transaction", transactionID)
	}
	t = cloneTxn(t)
	return &t, nil
}

func (m *memLedger) FindPaymentByID(ctx context.Context, tenantID, paymentID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findPayment(tenantID, paymentID)
}

func (m *memLedger) findPayment(tenantID, paymentID string) (*domain.Payment, error) {
	p, ok := m.payments[paymentID]
	if !ok || p.TenantID != tenantID {
		return nil, apperrors.NewNotFoundError("payment", paymentID)
	}
	return &p, nil
}

func (m *memLedger) ListPaymentsByTransaction(ctx context.Context, tenantID, transactionID string) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listPayments(tenantID, transactionID), nil
}

func (m *memLedger) listPayments(tenantID, transactionID string) []domain.Payment {
	out := []domain.Payment{}
	for _, p := range m.payments {
		if p.TenantID == tenantID && p.TransactionID == transactionID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].PaidAt.Before(out[j].PaidAt)
		}
		return out[i].PaymentID < out[j].PaymentID
	})
	return out
}

func (m *memLedger) ListPaymentEdits(ctx context.Context, tenantID, paymentID string) ([]domain.PaymentEdit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.PaymentEdit{}
	for _, e := range m.paymentEdits {
		if e.TenantID == tenantID && e.PaymentID == paymentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) ListTransactionEdits(ctx context.Context, tenantID, transactionID string) ([]domain.TransactionEdit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.TransactionEdit{}
	for _, e := range m.txnEdits {
		if e.TenantID == tenantID && e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) SaveTransactionInTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error {
	if _, ok := m.txns[txn.TransactionID]; ok {
		return fmt.Errorf("transaction %s: %w", txn.TransactionID, apperrors.ErrDuplicate)
	}
	m.txns[txn.TransactionID] = cloneTxn(txn)
	return nil
}

func (m *memLedger) FindTransactionForUpdate(ctx context.Context, tx pgx.Tx, tenantID, transactionID string) (*domain.Transaction, error) {
	return m.findTxn(tenantID, transactionID)
}

func (m *memLedger) UpdateTransactionInTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error {
	stored, ok := m.txns[txn.TransactionID]
	if !ok || stored.Version != txn.Version {
		return fmt.Errorf("transaction %s changed concurrently: %w", txn.TransactionID, apperrors.ErrConcurrencyConflict)
	}
	stored.TotalPaid = txn.TotalPaid
	stored.RemainingBalance = txn.RemainingBalance
	stored.PaymentStatus = txn.PaymentStatus
	stored.LastUpdatedAt = txn.LastUpdatedAt
	stored.LastUpdatedBy = txn.LastUpdatedBy
	stored.Version++
	m.txns[txn.TransactionID] = stored
	return nil
}

func (m *memLedger) FindPaymentForUpdate(ctx context.Context, tx pgx.Tx, tenantID, paymentID string) (*domain.Payment, error) {
	return m.findPayment(tenantID, paymentID)
}

func (m *memLedger) ListPaymentsInTx(ctx context.Context, tx pgx.Tx, tenantID, transactionID string) ([]domain.Payment, error) {
	return m.listPayments(tenantID, transactionID), nil
}

func (m *memLedger) SavePaymentInTx(ctx context.Context, tx pgx.Tx, payment domain.Payment) error {
	if _, ok := m.payments[payment.PaymentID]; ok {
		return fmt.Errorf("payment %s: %w", payment.PaymentID, apperrors.ErrDuplicate)
	}
	m.payments[payment.PaymentID] = payment
	return nil
}

func (m *memLedger) UpdatePaymentInTx(ctx context.Context, tx pgx.Tx, payment domain.Payment) error {
	if _, ok := m.payments[payment.PaymentID]; !ok {
		return apperrors.NewNotFoundError("payment", payment.PaymentID)
	}
	m.payments[payment.PaymentID] = payment
	return nil
}

func (m *memLedger) SavePaymentEditInTx(ctx context.Context, tx pgx.Tx, edit domain.PaymentEdit) error {
	m.paymentEdits = append(m.paymentEdits, edit)
	return nil
}

func (m *memLedger) SaveTransactionEditInTx(ctx context.Context, tx pgx.Tx, edit domain.TransactionEdit) error {
	m.txnEdits = append(m.txnEdits, edit)
	return nil
}

// --- obligations and settlements ---

func obligationOf(t domain.Transaction) (domain.Obligation, bool) {
	if t.Remittance == nil || t.PaymentStatus == domain.StatusCancelled {
		return domain.Obligation{}, false
	}
	return domain.Obligation{
		ObligationID:  t.TransactionID,
		TenantID:      t.TenantID,
		BranchID:      t.BranchID,
		Direction:     t.Remittance.Direction,
		Currency:      t.Remittance.Currency,
		Amount:        t.Remittance.Amount,
		SettledAmount: t.Remittance.SettledAmount,
		Rate:          t.Remittance.Rate,
		CreatedAt:     t.CreatedAt,
	}, true
}

func (m *memLedger) findObligation(tenantID, obligationID string) (*domain.Obligation, error) {
	t, ok := m.txns[obligationID]
	if ok && t.TenantID == tenantID {
		if o, ok := obligationOf(t); ok {
			return &o, nil
		}
	}
	return nil, apperrors.NewNotFoundError("obligation", obligationID)
}

func (m *memLedger) FindObligationByID(ctx context.Context, tenantID, obligationID string) (*domain.Obligation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findObligation(tenantID, obligationID)
}

func (m *memLedger) ListObligations(ctx context.Context, tenantID string, filter domain.ObligationFilter) ([]domain.Obligation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Obligation{}
	for _, t := range m.txns {
		o, ok := obligationOf(t)
		if !ok || o.TenantID != tenantID {
			continue
		}
		if filter.Direction != "" && o.Direction != filter.Direction {
			continue
		}
		if filter.Currency != "" && o.Currency != filter.Currency {
			continue
		}
		if filter.BranchID != "" && o.BranchID != filter.BranchID {
			continue
		}
		if filter.OnlyOpen && !o.Unsettled().IsPositive() {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ObligationID < out[j].ObligationID
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memLedger) ListSettlementsByObligation(ctx context.Context, tenantID, obligationID string) ([]domain.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Settlement{}
	for _, s := range m.settlements {
		if s.TenantID == tenantID && (s.OutgoingObligationID == obligationID || s.IncomingObligationID == obligationID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memLedger) LockObligationsForUpdate(ctx context.Context, tx pgx.Tx, tenantID string, obligationIDs []string) (map[string]domain.Obligation, error) {
	out := map[string]domain.Obligation{}
	for _, id := range obligationIDs {
		o, err := m.findObligation(tenantID, id)
		if err != nil {
			return nil, err
		}
		out[id] = *o
	}
	return out, nil
}

func (m *memLedger) LockSettlementCandidates(ctx context.Context, tx pgx.Tx, tenantID, incomingID, currency string) (*domain.Obligation, []domain.Obligation, error) {
	incoming, err := m.findObligation(tenantID, incomingID)
	if err != nil {
		return nil, nil, err
	}
	var candidates []domain.Obligation
	for _, t := range m.txns {
		o, ok := obligationOf(t)
		if !ok || o.TenantID != tenantID || o.Direction != domain.DirectionOutgoing || o.Currency != currency {
			continue
		}
		if o.Unsettled().IsPositive() {
			candidates = append(candidates, o)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ObligationID < candidates[j].ObligationID })
	return incoming, candidates, nil
}

func (m *memLedger) AddSettledAmountInTx(ctx context.Context, tx pgx.Tx, tenantID, obligationID string, amount decimal.Decimal) error {
	t, ok := m.txns[obligationID]
	if !ok || t.Remittance == nil {
		return apperrors.NewNotFoundError("obligation", obligationID)
	}
	settled := t.Remittance.SettledAmount.Add(amount)
	if settled.GreaterThan(t.Remittance.Amount) {
		return apperrors.NewValidationError("amount", "exceeds unsettled amount of obligation "+obligationID)
	}
	t = cloneTxn(t)
	t.Remittance.SettledAmount = settled
	m.txns[obligationID] = t
	return nil
}

func (m *memLedger) SaveSettlementInTx(ctx context.Context, tx pgx.Tx, settlement domain.Settlement) error {
	m.settlements = append(m.settlements, settlement)
	return nil
}

// --- reconciliations ---

func (m *memLedger) FindReconciliationByID(ctx context.Context, tenantID, reconciliationID string) (*domain.Reconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[reconciliationID]
	if !ok || r.TenantID != tenantID {
		return nil, apperrors.NewNotFoundError("reconciliation", reconciliationID)
	}
	return &r, nil
}

// newerFirst orders by (date, createdAt, id) descending.
func newerFirst(a, b domain.Reconciliation) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ReconciliationID > b.ReconciliationID
}

func (m *memLedger) ListReconciliations(ctx context.Context, tenantID string, filter domain.VarianceFilter) ([]domain.Reconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cursor *domain.Reconciliation
	if filter.AfterDate != nil && filter.AfterCreatedAt != nil {
		cursor = &domain.Reconciliation{Date: *filter.AfterDate, CreatedAt: *filter.AfterCreatedAt, ReconciliationID: filter.AfterID}
	}

	out := []domain.Reconciliation{}
	for _, r := range m.recs {
		switch {
		case r.TenantID != tenantID:
		case filter.BranchID != "" && r.BranchID != filter.BranchID:
		case filter.Currency != "" && r.Currency != filter.Currency:
		case filter.OnlyBreached && !r.Breached:
		case filter.From != nil && r.Date.Before(*filter.From):
		case filter.To != nil && r.Date.After(*filter.To):
		case cursor != nil && !newerFirst(*cursor, r):
		default:
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i], out[j]) })
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memLedger) SaveReconciliationInTx(ctx context.Context, tx pgx.Tx, rec domain.Reconciliation) error {
	for _, r := range m.recs {
		if r.TenantID == rec.TenantID && r.BranchID == rec.BranchID && r.Date.Equal(rec.Date) {
			return apperrors.ErrDuplicate
		}
	}
	m.recs[rec.ReconciliationID] = rec
	return nil
}

// --- helpers ---

// tickingClock returns a clock that advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
