package pgsql

import (
	"context"
	"sort"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxObligationRepository reads obligations from the remittance columns of
// ledger_transactions and records settlements between them.
type PgxObligationRepository struct {
	BaseRepository
}

func newPgxObligationRepository(pool *pgxpool.Pool) portsrepo.ObligationRepositoryFacade {
	return &PgxObligationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ObligationRepositoryFacade = (*PgxObligationRepository)(nil)

func scanObligation(row pgx.Row) (domain.Obligation, error) {
	var o domain.Obligation
	var direction string
	err := row.Scan(&o.ObligationID, &o.TenantID, &o.BranchID, &direction, &o.Currency,
		&o.Amount, &o.SettledAmount, &o.Rate, &o.CreatedAt)
	o.Direction = domain.RemittanceDirection(direction)
	return o, err
}

func collectObligations(rows pgx.Rows) ([]domain.Obligation, error) {
	defer rows.Close()

	obligations := []domain.Obligation{}
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan obligation row", err)
		}
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError(err, "error iterating obligation rows")
	}
	return obligations, nil
}

func (r *PgxObligationRepository) FindObligationByID(ctx context.Context, tenantID, obligationID string) (*domain.Obligation, error) {
	query, args, err := buildObligationBaseQuery(tenantID).
		Where("transaction_id = ?", obligationID).
		ToSql()
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to build obligation query", err)
	}

	o, err := scanObligation(r.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, "obligation", obligationID, "failed to find obligation "+obligationID)
	}
	return &o, nil
}

func (r *PgxObligationRepository) ListObligations(ctx context.Context, tenantID string, filter domain.ObligationFilter) ([]domain.Obligation, error) {
	query, args, err := buildListObligationsQuery(tenantID, filter)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to build obligation list query", err)
	}

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgError(err, "failed to list obligations")
	}
	return collectObligations(rows)
}

func (r *PgxObligationRepository) ListSettlementsByObligation(ctx context.Context, tenantID, obligationID string) ([]domain.Settlement, error) {
	query := `
		SELECT settlement_id, tenant_id, outgoing_obligation_id, incoming_obligation_id, amount, currency, executed_at, executed_by
		FROM settlements
		WHERE tenant_id = $1 AND (outgoing_obligation_id = $2 OR incoming_obligation_id = $2)
		ORDER BY executed_at ASC, settlement_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, tenantID, obligationID)
	if err != nil {
		return nil, translatePgError(err, "failed to list settlements")
	}
	defer rows.Close()

	settlements := []domain.Settlement{}
	for rows.Next() {
		var s domain.Settlement
		if err := rows.Scan(&s.SettlementID, &s.TenantID, &s.OutgoingObligationID, &s.IncomingObligationID,
			&s.Amount, &s.Currency, &s.ExecutedAt, &s.ExecutedBy); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan settlement row", err)
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating settlement rows", err)
	}
	return settlements, nil
}

// LockObligationsForUpdate locks every requested obligation or fails with NotFound.
func (r *PgxObligationRepository) LockObligationsForUpdate(ctx context.Context, tx pgx.Tx, tenantID string, obligationIDs []string) (map[string]domain.Obligation, error) {
	ids := make([]string, len(obligationIDs))
	copy(ids, obligationIDs)
	sort.Strings(ids)

	query, args, err := buildLockObligationsQuery(tenantID, ids)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to build obligation lock query", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgError(err, "failed to lock obligations")
	}
	obligations, err := collectObligations(rows)
	if err != nil {
		return nil, err
	}

	locked := make(map[string]domain.Obligation, len(obligations))
	for _, o := range obligations {
		locked[o.ObligationID] = o
	}
	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, apperrors.NewNotFoundError("obligation", id)
		}
	}
	return locked, nil
}

func (r *PgxObligationRepository) LockSettlementCandidates(ctx context.Context, tx pgx.Tx, tenantID, incomingID, currency string) (*domain.Obligation, []domain.Obligation, error) {
	query, args, err := buildLockSettlementCandidatesQuery(tenantID, incomingID, currency)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to build settlement candidate query", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, translatePgError(err, "failed to lock settlement candidates")
	}
	obligations, err := collectObligations(rows)
	if err != nil {
		return nil, nil, err
	}

	var incoming *domain.Obligation
	candidates := make([]domain.Obligation, 0, len(obligations))
	for i := range obligations {
		if obligations[i].ObligationID == incomingID {
			incoming = &obligations[i]
			continue
		}
		candidates = append(candidates, obligations[i])
	}
	if incoming == nil {
		return nil, nil, apperrors.NewNotFoundError("obligation", incomingID)
	}
	return incoming, candidates, nil
}

// AddSettledAmountInTx increases settled_amount; the table check keeps it within the obligation amount.
func (r *PgxObligationRepository) AddSettledAmountInTx(ctx context.Context, tx pgx.Tx, tenantID, obligationID string, amount decimal.Decimal) error {
	query := `
		UPDATE ledger_transactions
		SET remittance_settled_amount = remittance_settled_amount + $3
		WHERE tenant_id = $1 AND transaction_id = $2
		  AND remittance_settled_amount + $3 <= remittance_amount;
	`
	cmdTag, err := tx.Exec(ctx, query, tenantID, obligationID, amount)
	if err != nil {
		return translatePgError(err, "failed to update settled amount of "+obligationID)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewValidationError("amount", "settlement would exceed the amount of obligation "+obligationID)
	}
	return nil
}

func (r *PgxObligationRepository) SaveSettlementInTx(ctx context.Context, tx pgx.Tx, s domain.Settlement) error {
	query := `
		INSERT INTO settlements (settlement_id, tenant_id, outgoing_obligation_id, incoming_obligation_id, amount, currency, executed_at, executed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := tx.Exec(ctx, query, s.SettlementID, s.TenantID, s.OutgoingObligationID, s.IncomingObligationID,
		s.Amount, s.Currency, s.ExecutedAt, s.ExecutedBy)
	if err != nil {
		return translatePgError(err, "failed to insert settlement "+s.SettlementID)
	}
	return nil
}
