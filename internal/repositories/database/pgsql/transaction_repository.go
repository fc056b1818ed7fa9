package pgsql

import (
	"context"
	"encoding/json"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates a repository for ledger transactions, payments and their edit trails.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

const transactionColumns = `transaction_id, tenant_id, branch_id, customer_id, total_received, received_currency,
	total_paid, remaining_balance, payment_status, allow_partial_payment,
	remittance_direction, remittance_amount, remittance_currency, remittance_rate, remittance_settled_amount,
	version, created_at, created_by, last_updated_at, last_updated_by`

const paymentColumns = `payment_id, tenant_id, transaction_id, amount, currency, exchange_rate, amount_in_base,
	payment_method, details, status, paid_by, paid_at, COALESCE(notes, ''), is_edited, COALESCE(edit_reason, ''),
	COALESCE(cancel_reason, ''), COALESCE(cancelled_by, ''), cancelled_at,
	created_at, created_by, last_updated_at, last_updated_by`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	var status string
	var direction, remCurrency *string
	var remAmount, remRate decimal.NullDecimal
	var settled decimal.Decimal

	err := row.Scan(
		&t.TransactionID, &t.TenantID, &t.BranchID, &t.CustomerID, &t.TotalReceived, &t.ReceivedCurrency,
		&t.TotalPaid, &t.RemainingBalance, &status, &t.AllowPartialPayment,
		&direction, &remAmount, &remCurrency, &remRate, &settled,
		&t.Version, &t.CreatedAt, &t.CreatedBy, &t.LastUpdatedAt, &t.LastUpdatedBy,
	)
	if err != nil {
		return t, err
	}
	t.PaymentStatus = domain.PaymentStatus(status)
	if direction != nil && remAmount.Valid {
		t.Remittance = &domain.Remittance{
			Direction:     domain.RemittanceDirection(*direction),
			Amount:        remAmount.Decimal,
			Rate:          remRate.Decimal,
			SettledAmount: settled,
		}
		if remCurrency != nil {
			t.Remittance.Currency = *remCurrency
		}
	}
	return t, nil
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	var method, status string
	var details []byte

	err := row.Scan(
		&p.PaymentID, &p.TenantID, &p.TransactionID, &p.Amount, &p.Currency, &p.ExchangeRate, &p.AmountInBase,
		&method, &details, &status, &p.PaidBy, &p.PaidAt, &p.Notes, &p.IsEdited, &p.EditReason,
		&p.CancelReason, &p.CancelledBy, &p.CancelledAt,
		&p.CreatedAt, &p.CreatedBy, &p.LastUpdatedAt, &p.LastUpdatedBy,
	)
	if err != nil {
		return p, err
	}
	p.PaymentMethod = domain.PaymentMethod(method)
	p.Status = domain.PaymentRecordStatus(status)

	decoded, err := domain.DecodePaymentDetails(p.PaymentMethod, details)
	if err != nil {
		return p, apperrors.NewAppError(500, "stored payment details are unreadable for payment "+p.PaymentID, err)
	}
	p.Details = decoded
	return p, nil
}

func marshalDetails(d domain.PaymentDetails) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func remittanceArgs(r *domain.Remittance) (direction, currency *string, amount, rate decimal.NullDecimal, settled decimal.Decimal) {
	if r == nil {
		return nil, nil, decimal.NullDecimal{}, decimal.NullDecimal{}, decimal.Zero
	}
	dir := string(r.Direction)
	cur := r.Currency
	return &dir, &cur,
		decimal.NullDecimal{Decimal: r.Amount, Valid: true},
		decimal.NullDecimal{Decimal: r.Rate, Valid: true},
		r.SettledAmount
}

func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, tenantID, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions WHERE tenant_id = $1 AND transaction_id = $2;`

	t, err := scanTransaction(r.Pool.QueryRow(ctx, query, tenantID, transactionID))
	if err != nil {
		return nil, notFoundOr(err, "transaction", transactionID, "failed to find transaction "+transactionID)
	}
	return &t, nil
}

func (r *PgxTransactionRepository) FindPaymentByID(ctx context.Context, tenantID, paymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 AND payment_id = $2;`

	p, err := scanPayment(r.Pool.QueryRow(ctx, query, tenantID, paymentID))
	if err != nil {
		return nil, notFoundOr(err, "payment", paymentID, "failed to find payment "+paymentID)
	}
	return &p, nil
}

func (r *PgxTransactionRepository) ListPaymentsByTransaction(ctx context.Context, tenantID, transactionID string) ([]domain.Payment, error) {
	return r.listPayments(ctx, r.Pool, tenantID, transactionID, "")
}

func (r *PgxTransactionRepository) ListPaymentsInTx(ctx context.Context, tx pgx.Tx, tenantID, transactionID string) ([]domain.Payment, error) {
	return r.listPayments(ctx, tx, tenantID, transactionID, " FOR UPDATE")
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PgxTransactionRepository) listPayments(ctx context.Context, q querier, tenantID, transactionID, lock string) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE tenant_id = $1 AND transaction_id = $2
		ORDER BY paid_at ASC, payment_id ASC` + lock + `;`

	rows, err := q.Query(ctx, query, tenantID, transactionID)
	if err != nil {
		return nil, translatePgError(err, "failed to list payments for transaction "+transactionID)
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan payment row", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating payment rows", err)
	}
	return payments, nil
}

func (r *PgxTransactionRepository) ListPaymentEdits(ctx context.Context, tenantID, paymentID string) ([]domain.PaymentEdit, error) {
	query := `
		SELECT edit_id, tenant_id, payment_id, previous_amount, previous_exchange_rate, previous_amount_in_base,
		       new_amount, new_exchange_rate, new_amount_in_base, reason, edited_by, edited_at
		FROM payment_edits
		WHERE tenant_id = $1 AND payment_id = $2
		ORDER BY edited_at ASC, edit_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, tenantID, paymentID)
	if err != nil {
		return nil, translatePgError(err, "failed to list payment edits")
	}
	defer rows.Close()

	edits := []domain.PaymentEdit{}
	for rows.Next() {
		var e domain.PaymentEdit
		if err := rows.Scan(&e.EditID, &e.TenantID, &e.PaymentID, &e.PreviousAmount, &e.PreviousExchangeRate,
			&e.PreviousAmountInBase, &e.NewAmount, &e.NewExchangeRate, &e.NewAmountInBase,
			&e.Reason, &e.EditedBy, &e.EditedAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan payment edit row", err)
		}
		edits = append(edits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating payment edit rows", err)
	}
	return edits, nil
}

func (r *PgxTransactionRepository) ListTransactionEdits(ctx context.Context, tenantID, transactionID string) ([]domain.TransactionEdit, error) {
	query := `
		SELECT edit_id, tenant_id, transaction_id, action, previous_status, new_status,
		       remaining_at_change, COALESCE(reason, ''), performed_by, performed_at
		FROM transaction_edits
		WHERE tenant_id = $1 AND transaction_id = $2
		ORDER BY performed_at ASC, edit_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, tenantID, transactionID)
	if err != nil {
		return nil, translatePgError(err, "failed to list transaction edits")
	}
	defer rows.Close()

	edits := []domain.TransactionEdit{}
	for rows.Next() {
		var e domain.TransactionEdit
		var action, prev, next string
		if err := rows.Scan(&e.EditID, &e.TenantID, &e.TransactionID, &action, &prev, &next,
			&e.RemainingAtChange, &e.Reason, &e.PerformedBy, &e.PerformedAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan transaction edit row", err)
		}
		e.Action = domain.TransactionAction(action)
		e.PreviousStatus = domain.PaymentStatus(prev)
		e.NewStatus = domain.PaymentStatus(next)
		edits = append(edits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating transaction edit rows", err)
	}
	return edits, nil
}

func (r *PgxTransactionRepository) SaveTransactionInTx(ctx context.Context, tx pgx.Tx, t domain.Transaction) error {
	query := `
		INSERT INTO ledger_transactions (
			transaction_id, tenant_id, branch_id, customer_id, total_received, received_currency,
			total_paid, remaining_balance, payment_status, allow_partial_payment,
			remittance_direction, remittance_amount, remittance_currency, remittance_rate, remittance_settled_amount,
			version, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20);
	`
	direction, currency, amount, rate, settled := remittanceArgs(t.Remittance)
	_, err := tx.Exec(ctx, query,
		t.TransactionID, t.TenantID, t.BranchID, t.CustomerID, t.TotalReceived, t.ReceivedCurrency,
		t.TotalPaid, t.RemainingBalance, string(t.PaymentStatus), t.AllowPartialPayment,
		direction, amount, currency, rate, settled,
		t.Version, t.CreatedAt, t.CreatedBy, t.LastUpdatedAt, t.LastUpdatedBy,
	)
	if err != nil {
		return translatePgError(err, "failed to insert transaction "+t.TransactionID)
	}
	return nil
}

func (r *PgxTransactionRepository) FindTransactionForUpdate(ctx context.Context, tx pgx.Tx, tenantID, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions
		WHERE tenant_id = $1 AND transaction_id = $2 FOR UPDATE;`

	t, err := scanTransaction(tx.QueryRow(ctx, query, tenantID, transactionID))
	if err != nil {
		return nil, notFoundOr(err, "transaction", transactionID, "failed to lock transaction "+transactionID)
	}
	return &t, nil
}

// UpdateTransactionInTx writes derived totals and status guarded by the row version.
func (r *PgxTransactionRepository) UpdateTransactionInTx(ctx context.Context, tx pgx.Tx, t domain.Transaction) error {
	query := `
		UPDATE ledger_transactions
		SET total_paid = $3, remaining_balance = $4, payment_status = $5,
		    version = version + 1, last_updated_at = $6, last_updated_by = $7
		WHERE tenant_id = $1 AND transaction_id = $2 AND version = $8;
	`
	cmdTag, err := tx.Exec(ctx, query, t.TenantID, t.TransactionID, t.TotalPaid, t.RemainingBalance,
		string(t.PaymentStatus), t.LastUpdatedAt, t.LastUpdatedBy, t.Version)
	if err != nil {
		return translatePgError(err, "failed to update transaction "+t.TransactionID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConcurrencyConflict
	}
	return nil
}

func (r *PgxTransactionRepository) FindPaymentForUpdate(ctx context.Context, tx pgx.Tx, tenantID, paymentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 AND payment_id = $2 FOR UPDATE;`

	p, err := scanPayment(tx.QueryRow(ctx, query, tenantID, paymentID))
	if err != nil {
		return nil, notFoundOr(err, "payment", paymentID, "failed to lock payment "+paymentID)
	}
	return &p, nil
}

func (r *PgxTransactionRepository) SavePaymentInTx(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
	details, err := marshalDetails(p.Details)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode payment details", err)
	}

	query := `
		INSERT INTO payments (
			payment_id, tenant_id, transaction_id, amount, currency, exchange_rate, amount_in_base,
			payment_method, details, status, paid_by, paid_at, notes, is_edited,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15, $16, $17, $18);
	`
	_, err = tx.Exec(ctx, query,
		p.PaymentID, p.TenantID, p.TransactionID, p.Amount, p.Currency, p.ExchangeRate, p.AmountInBase,
		string(p.PaymentMethod), details, string(p.Status), p.PaidBy, p.PaidAt, p.Notes, p.IsEdited,
		p.CreatedAt, p.CreatedBy, p.LastUpdatedAt, p.LastUpdatedBy,
	)
	if err != nil {
		return translatePgError(err, "failed to insert payment "+p.PaymentID)
	}
	return nil
}

// UpdatePaymentInTx writes the mutable fields of an edited or cancelled payment.
func (r *PgxTransactionRepository) UpdatePaymentInTx(ctx context.Context, tx pgx.Tx, p domain.Payment) error {
	query := `
		UPDATE payments
		SET amount = $3, exchange_rate = $4, amount_in_base = $5, status = $6,
		    is_edited = $7, edit_reason = NULLIF($8, ''),
		    cancel_reason = NULLIF($9, ''), cancelled_by = NULLIF($10, ''), cancelled_at = $11,
		    last_updated_at = $12, last_updated_by = $13
		WHERE tenant_id = $1 AND payment_id = $2;
	`
	cmdTag, err := tx.Exec(ctx, query, p.TenantID, p.PaymentID, p.Amount, p.ExchangeRate, p.AmountInBase,
		string(p.Status), p.IsEdited, p.EditReason, p.CancelReason, p.CancelledBy, p.CancelledAt,
		p.LastUpdatedAt, p.LastUpdatedBy)
	if err != nil {
		return translatePgError(err, "failed to update payment "+p.PaymentID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("payment", p.PaymentID)
	}
	return nil
}

func (r *PgxTransactionRepository) SavePaymentEditInTx(ctx context.Context, tx pgx.Tx, e domain.PaymentEdit) error {
	query := `
		INSERT INTO payment_edits (
			edit_id, tenant_id, payment_id, previous_amount, previous_exchange_rate, previous_amount_in_base,
			new_amount, new_exchange_rate, new_amount_in_base, reason, edited_by, edited_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := tx.Exec(ctx, query, e.EditID, e.TenantID, e.PaymentID, e.PreviousAmount, e.PreviousExchangeRate,
		e.PreviousAmountInBase, e.NewAmount, e.NewExchangeRate, e.NewAmountInBase, e.Reason, e.EditedBy, e.EditedAt)
	if err != nil {
		return translatePgError(err, "failed to insert payment edit for "+e.PaymentID)
	}
	return nil
}

func (r *PgxTransactionRepository) SaveTransactionEditInTx(ctx context.Context, tx pgx.Tx, e domain.TransactionEdit) error {
	query := `
		INSERT INTO transaction_edits (
			edit_id, tenant_id, transaction_id, action, previous_status, new_status,
			remaining_at_change, reason, performed_by, performed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10);
	`
	_, err := tx.Exec(ctx, query, e.EditID, e.TenantID, e.TransactionID, string(e.Action),
		string(e.PreviousStatus), string(e.NewStatus), e.RemainingAtChange, e.Reason, e.PerformedBy, e.PerformedAt)
	if err != nil {
		return translatePgError(err, "failed to insert transaction edit for "+e.TransactionID)
	}
	return nil
}
