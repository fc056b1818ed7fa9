package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxBalanceRepository struct {
	BaseRepository
}

func newPgxBalanceRepository(pool *pgxpool.Pool) portsrepo.BalanceRepositoryFacade {
	return &PgxBalanceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BalanceRepositoryFacade = (*PgxBalanceRepository)(nil)

const balanceColumns = `tenant_id, branch_id, currency, balance, version, last_updated_at, last_updated_by`

const adjustmentColumns = `adjustment_id, tenant_id, branch_id, currency, delta, reason,
	COALESCE(supersedes_id, ''), COALESCE(superseded_by, ''), performed_by, created_at`

func scanBalance(row pgx.Row) (domain.CashBalance, error) {
	var b domain.CashBalance
	err := row.Scan(&b.TenantID, &b.BranchID, &b.Currency, &b.Balance, &b.Version, &b.LastUpdated, &b.LastUpdatedBy)
	return b, err
}

func scanAdjustment(row pgx.Row) (domain.Adjustment, error) {
	var a domain.Adjustment
	err := row.Scan(&a.AdjustmentID, &a.TenantID, &a.BranchID, &a.Currency, &a.Delta, &a.Reason,
		&a.SupersedesID, &a.SupersededBy, &a.PerformedBy, &a.CreatedAt)
	return a, err
}

// FindBalance retrieves one stored balance.
func (r *PgxBalanceRepository) FindBalance(ctx context.Context, tenantID, branchID, currency string) (*domain.CashBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM cash_balances WHERE tenant_id = $1 AND branch_id = $2 AND currency = $3;`

	b, err := scanBalance(r.Pool.QueryRow(ctx, query, tenantID, branchID, currency))
	if err != nil {
		return nil, notFoundOr(err, "balance", branchID+"/"+currency, "failed to find balance")
	}
	return &b, nil
}

func (r *PgxBalanceRepository) ListBalancesByBranch(ctx context.Context, tenantID, branchID string) ([]domain.CashBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM cash_balances WHERE tenant_id = $1 AND branch_id = $2 ORDER BY currency ASC;`

	rows, err := r.Pool.Query(ctx, query, tenantID, branchID)
	if err != nil {
		return nil, translatePgError(err, "failed to list balances for branch "+branchID)
	}
	defer rows.Close()

	balances := []domain.CashBalance{}
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan balance row", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating balance rows", err)
	}
	return balances, nil
}

func (r *PgxBalanceRepository) ListAdjustments(ctx context.Context, tenantID, branchID, currency string) ([]domain.Adjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM adjustments
		WHERE tenant_id = $1 AND branch_id = $2 AND currency = $3
		ORDER BY created_at DESC, adjustment_id DESC;`

	rows, err := r.Pool.Query(ctx, query, tenantID, branchID, currency)
	if err != nil {
		return nil, translatePgError(err, "failed to list adjustments")
	}
	defer rows.Close()

	adjustments := []domain.Adjustment{}
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan adjustment row", err)
		}
		adjustments = append(adjustments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating adjustment rows", err)
	}
	return adjustments, nil
}

// LockBalanceForUpdate creates the balance row at zero if needed, then locks it.
func (r *PgxBalanceRepository) LockBalanceForUpdate(ctx context.Context, tx pgx.Tx, tenantID, branchID, currency string) (*domain.CashBalance, error) {
	ensure := `
		INSERT INTO cash_balances (tenant_id, branch_id, currency, balance, version, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, 0, 0, NOW(), 'system')
		ON CONFLICT (tenant_id, branch_id, currency) DO NOTHING;
	`
	if _, err := tx.Exec(ctx, ensure, tenantID, branchID, currency); err != nil {
		return nil, translatePgError(err, "failed to ensure balance row")
	}

	query := `SELECT ` + balanceColumns + ` FROM cash_balances
		WHERE tenant_id = $1 AND branch_id = $2 AND currency = $3 FOR UPDATE;`
	b, err := scanBalance(tx.QueryRow(ctx, query, tenantID, branchID, currency))
	if err != nil {
		return nil, notFoundOr(err, "balance", branchID+"/"+currency, "failed to lock balance")
	}
	return &b, nil
}

// ReadBalancesInTx reads a consistent snapshot of the requested balances.
func (r *PgxBalanceRepository) ReadBalancesInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID string, currencies []string) (map[string]domain.CashBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM cash_balances
		WHERE tenant_id = $1 AND branch_id = $2 AND ($3::text[] IS NULL OR currency = ANY($3))
		ORDER BY currency ASC FOR SHARE;`

	var filter []string
	if len(currencies) > 0 {
		filter = currencies
	}

	rows, err := tx.Query(ctx, query, tenantID, branchID, filter)
	if err != nil {
		return nil, translatePgError(err, "failed to read balances")
	}
	defer rows.Close()

	out := make(map[string]domain.CashBalance)
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan balance row", err)
		}
		out[b.Currency] = b
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating balance rows", err)
	}
	return out, nil
}

// ApplyBalanceDeltasInTx upserts every non-zero delta in ascending currency order,
// so concurrent mutations touching several currencies always lock rows the same way.
func (r *PgxBalanceRepository) ApplyBalanceDeltasInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID string, deltas domain.BalanceDeltas, userID string, now time.Time) error {
	currencies := deltas.Currencies()
	if len(currencies) == 0 {
		return nil
	}

	upsert := `
		INSERT INTO cash_balances (tenant_id, branch_id, currency, balance, version, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (tenant_id, branch_id, currency) DO UPDATE
		SET balance = cash_balances.balance + EXCLUDED.balance,
		    version = cash_balances.version + 1,
		    last_updated_at = EXCLUDED.last_updated_at,
		    last_updated_by = EXCLUDED.last_updated_by;
	`

	batch := &pgx.Batch{}
	for _, c := range currencies {
		batch.Queue(upsert, tenantID, branchID, c, deltas[c], now, userID)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return translatePgError(err, "failed to apply balance changes for branch "+branchID)
	}
	return nil
}

func (r *PgxBalanceRepository) SetBalanceInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID, currency string, balance decimal.Decimal, userID string, now time.Time) error {
	query := `
		UPDATE cash_balances
		SET balance = $4, version = version + 1, last_updated_at = $5, last_updated_by = $6
		WHERE tenant_id = $1 AND branch_id = $2 AND currency = $3;
	`
	cmdTag, err := tx.Exec(ctx, query, tenantID, branchID, currency, balance, now, userID)
	if err != nil {
		return translatePgError(err, "failed to overwrite balance")
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("balance", branchID+"/"+currency)
	}
	return nil
}

// ListBalanceEntriesInTx rebuilds the movements behind a balance from the source tables:
// intake of live transactions, completed payments and active adjustments.
func (r *PgxBalanceRepository) ListBalanceEntriesInTx(ctx context.Context, tx pgx.Tx, tenantID, branchID, currency string) ([]domain.BalanceEntry, error) {
	query := `
		SELECT 'INTAKE', t.transaction_id, t.total_received, t.created_at
		FROM ledger_transactions t
		WHERE t.tenant_id = $1 AND t.branch_id = $2 AND t.received_currency = $3
		  AND t.payment_status <> 'CANCELLED'
		UNION ALL
		SELECT 'PAYMENT', p.payment_id, -p.amount, p.paid_at
		FROM payments p
		JOIN ledger_transactions t ON t.transaction_id = p.transaction_id
		WHERE t.tenant_id = $1 AND t.branch_id = $2 AND p.currency = $3 AND p.status = 'COMPLETED'
		UNION ALL
		SELECT 'ADJUSTMENT', a.adjustment_id, a.delta, a.created_at
		FROM adjustments a
		WHERE a.tenant_id = $1 AND a.branch_id = $2 AND a.currency = $3 AND a.superseded_by IS NULL
		ORDER BY 4 ASC;
	`
	rows, err := tx.Query(ctx, query, tenantID, branchID, currency)
	if err != nil {
		return nil, translatePgError(err, "failed to load balance history")
	}
	defer rows.Close()

	entries := []domain.BalanceEntry{}
	for rows.Next() {
		var e domain.BalanceEntry
		var source string
		if err := rows.Scan(&source, &e.SourceID, &e.Delta, &e.OccurredAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan balance entry", err)
		}
		e.Source = domain.BalanceEntrySource(source)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating balance entries", err)
	}
	return entries, nil
}

func (r *PgxBalanceRepository) SaveAdjustmentInTx(ctx context.Context, tx pgx.Tx, a domain.Adjustment) error {
	query := `
		INSERT INTO adjustments (adjustment_id, tenant_id, branch_id, currency, delta, reason,
			supersedes_id, superseded_by, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10);
	`
	_, err := tx.Exec(ctx, query, a.AdjustmentID, a.TenantID, a.BranchID, a.Currency, a.Delta, a.Reason,
		a.SupersedesID, a.SupersededBy, a.PerformedBy, a.CreatedAt)
	if err != nil {
		return translatePgError(err, "failed to insert adjustment "+a.AdjustmentID)
	}
	return nil
}

func (r *PgxBalanceRepository) FindAdjustmentForUpdate(ctx context.Context, tx pgx.Tx, tenantID, adjustmentID string) (*domain.Adjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM adjustments
		WHERE tenant_id = $1 AND adjustment_id = $2 FOR UPDATE;`

	a, err := scanAdjustment(tx.QueryRow(ctx, query, tenantID, adjustmentID))
	if err != nil {
		return nil, notFoundOr(err, "adjustment", adjustmentID, "failed to lock adjustment")
	}
	return &a, nil
}

func (r *PgxBalanceRepository) MarkAdjustmentSupersededInTx(ctx context.Context, tx pgx.Tx, tenantID, adjustmentID, supersededBy string) error {
	query := `
		UPDATE adjustments SET superseded_by = $3
		WHERE tenant_id = $1 AND adjustment_id = $2 AND superseded_by IS NULL;
	`
	cmdTag, err := tx.Exec(ctx, query, tenantID, adjustmentID, supersededBy)
	if err != nil {
		return translatePgError(err, "failed to supersede adjustment "+adjustmentID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewStateError("adjustment " + adjustmentID + " is already superseded")
	}
	return nil
}
