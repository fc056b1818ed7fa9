package pgsql

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	"github.com/SscSPs/remittance_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxReconciliationRepository struct {
	BaseRepository
}

func newPgxReconciliationRepository(pool *pgxpool.Pool) portsrepo.ReconciliationRepositoryFacade {
	return &PgxReconciliationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ReconciliationRepositoryFacade = (*PgxReconciliationRepository)(nil)

func scanReconciliation(row pgx.Row) (domain.Reconciliation, error) {
	var rec domain.Reconciliation
	var breakdown []byte
	err := row.Scan(&rec.ReconciliationID, &rec.TenantID, &rec.BranchID, &rec.Date, &rec.Currency,
		&rec.OpeningBalance, &rec.ClosingBalance, &rec.ExpectedBalance, &rec.Variance, &rec.Threshold,
		&rec.Breached, &breakdown, &rec.Notes, &rec.CreatedBy, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	rec.CurrencyBreakdown = []domain.CurrencyCount{}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &rec.CurrencyBreakdown); err != nil {
			return rec, apperrors.NewAppError(500, "failed to decode currency breakdown", err)
		}
	}
	return rec, nil
}

func (r *PgxReconciliationRepository) FindReconciliationByID(ctx context.Context, tenantID, reconciliationID string) (*domain.Reconciliation, error) {
	query, args, err := buildFindReconciliationQuery(tenantID, reconciliationID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to build reconciliation query", err)
	}

	rec, err := scanReconciliation(r.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFoundOr(err, "reconciliation", reconciliationID, "failed to find reconciliation "+reconciliationID)
	}
	return &rec, nil
}

func (r *PgxReconciliationRepository) ListReconciliations(ctx context.Context, tenantID string, filter domain.VarianceFilter) ([]domain.Reconciliation, error) {
	query, args, err := buildVarianceReportQuery(tenantID, filter)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to build variance report query", err)
	}

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgError(err, "failed to list reconciliations")
	}
	defer rows.Close()

	recs := []domain.Reconciliation{}
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan reconciliation row", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating reconciliation rows", err)
	}
	return recs, nil
}

func (r *PgxReconciliationRepository) SaveReconciliationInTx(ctx context.Context, tx pgx.Tx, rec domain.Reconciliation) error {
	breakdown, err := json.Marshal(rec.CurrencyBreakdown)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode currency breakdown", err)
	}

	query := `
		INSERT INTO reconciliations (
			reconciliation_id, tenant_id, branch_id, reconciliation_date, currency,
			opening_balance, closing_balance, expected_balance, variance, threshold, breached,
			currency_breakdown, notes, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15);
	`
	_, err = tx.Exec(ctx, query, rec.ReconciliationID, rec.TenantID, rec.BranchID, rec.Date, rec.Currency,
		rec.OpeningBalance, rec.ClosingBalance, rec.ExpectedBalance, rec.Variance, rec.Threshold, rec.Breached,
		breakdown, rec.Notes, rec.CreatedBy, rec.CreatedAt)
	if err != nil {
		translated := translatePgError(err, "failed to insert reconciliation for "+rec.BranchID)
		if errors.Is(translated, apperrors.ErrDuplicate) {
			return apperrors.ErrDuplicate
		}
		return translated
	}
	return nil
}
