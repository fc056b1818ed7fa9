package pgsql

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/SscSPs/remittance_ledger/internal/core/domain"
)

const (
	defaultObligationLimit     = 100
	defaultReconciliationLimit = 50
)

var obligationColumns = []string{
	"transaction_id",
	"tenant_id",
	"branch_id",
	"remittance_direction",
	"remittance_currency",
	"remittance_amount",
	"remittance_settled_amount",
	"remittance_rate",
	"created_at",
}

var reconciliationColumns = []string{
	"reconciliation_id",
	"tenant_id",
	"branch_id",
	"reconciliation_date",
	"currency",
	"opening_balance",
	"closing_balance",
	"expected_balance",
	"variance",
	"threshold",
	"breached",
	"currency_breakdown",
	"COALESCE(notes, '')",
	"created_by",
	"created_at",
}

// buildObligationBaseQuery selects live remittances of a tenant. Remittances of
// cancelled transactions are never obligations.
func buildObligationBaseQuery(tenantID string) sq.SelectBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	return psql.Select(obligationColumns...).
		From("ledger_transactions").
		Where(sq.Eq{"tenant_id": tenantID}).
		Where(sq.NotEq{"remittance_direction": nil}).
		Where(sq.NotEq{"payment_status": string(domain.StatusCancelled)})
}

func buildListObligationsQuery(tenantID string, filter domain.ObligationFilter) (sql string, args []interface{}, err error) {
	query := buildObligationBaseQuery(tenantID)

	if filter.Direction != "" {
		query = query.Where(sq.Eq{"remittance_direction": string(filter.Direction)})
	}

	if filter.Currency != "" {
		query = query.Where(sq.Eq{"remittance_currency": filter.Currency})
	}

	if filter.BranchID != "" {
		query = query.Where(sq.Eq{"branch_id": filter.BranchID})
	}

	if filter.OnlyOpen {
		query = query.Where("remittance_settled_amount < remittance_amount")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultObligationLimit
	}

	return query.OrderBy("created_at ASC", "transaction_id ASC").Limit(uint64(limit)).ToSql()
}

// buildLockObligationsQuery locks the given obligations in ascending ID order.
func buildLockObligationsQuery(tenantID string, ids []string) (sql string, args []interface{}, err error) {
	return buildObligationBaseQuery(tenantID).
		Where(sq.Eq{"transaction_id": ids}).
		OrderBy("transaction_id ASC").
		Suffix("FOR UPDATE").
		ToSql()
}

// buildLockSettlementCandidatesQuery locks the incoming obligation and every open
// outgoing obligation of its currency in a single ascending ID pass.
func buildLockSettlementCandidatesQuery(tenantID, incomingID, currency string) (sql string, args []interface{}, err error) {
	return buildObligationBaseQuery(tenantID).
		Where(sq.Or{
			sq.Eq{"transaction_id": incomingID},
			sq.And{
				sq.Eq{"remittance_direction": string(domain.DirectionOutgoing)},
				sq.Eq{"remittance_currency": currency},
				sq.Expr("remittance_settled_amount < remittance_amount"),
			},
		}).
		OrderBy("transaction_id ASC").
		Suffix("FOR UPDATE").
		ToSql()
}

func buildReconciliationBaseQuery(tenantID string) sq.SelectBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	return psql.Select(reconciliationColumns...).
		From("reconciliations").
		Where(sq.Eq{"tenant_id": tenantID})
}

func buildFindReconciliationQuery(tenantID, reconciliationID string) (sql string, args []interface{}, err error) {
	return buildReconciliationBaseQuery(tenantID).
		Where(sq.Eq{"reconciliation_id": reconciliationID}).
		ToSql()
}

func buildVarianceReportQuery(tenantID string, filter domain.VarianceFilter) (sql string, args []interface{}, err error) {
	query := buildReconciliationBaseQuery(tenantID)

	if filter.BranchID != "" {
		query = query.Where(sq.Eq{"branch_id": filter.BranchID})
	}

	if filter.Currency != "" {
		query = query.Where(sq.Eq{"currency": filter.Currency})
	}

	if filter.OnlyBreached {
		query = query.Where(sq.Eq{"breached": true})
	}

	if filter.From != nil {
		query = query.Where(sq.GtOrEq{"reconciliation_date": *filter.From})
	}

	if filter.To != nil {
		query = query.Where(sq.LtOrEq{"reconciliation_date": *filter.To})
	}

	if filter.AfterDate != nil && filter.AfterCreatedAt != nil {
		query = query.Where(
			sq.Expr("(reconciliation_date, created_at, reconciliation_id) < (?, ?, ?)",
				*filter.AfterDate, *filter.AfterCreatedAt, filter.AfterID),
		)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultReconciliationLimit
	}

	return query.
		OrderBy("reconciliation_date DESC", "created_at DESC", "reconciliation_id DESC").
		Limit(uint64(limit)).
		ToSql()
}
