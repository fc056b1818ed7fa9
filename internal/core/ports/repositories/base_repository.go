package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// Begin starts a new database transaction
	Begin(ctx context.Context) (pgx.Tx, error)

	// Commit commits a transaction
	Commit(ctx context.Context, tx pgx.Tx) error

	// Rollback rolls back a transaction
	Rollback(ctx context.Context, tx pgx.Tx) error
}

// TxFunc is a unit of work executed inside one database transaction.
type TxFunc func(ctx context.Context, tx pgx.Tx) error

// UnitOfWork runs fn atomically. The transaction commits when fn returns nil and
// rolls back otherwise. Lock timeouts and serialization failures surface as
// apperrors.ErrConcurrencyConflict.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}
