package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/remittance_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/remittance_ledger/internal/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxUnitOfWork runs ledger mutations inside one database transaction.
type PgxUnitOfWork struct {
	BaseRepository
	lockTimeout time.Duration
}

func newPgxUnitOfWork(pool *pgxpool.Pool, lockTimeout time.Duration) *PgxUnitOfWork {
	return &PgxUnitOfWork{
		BaseRepository: BaseRepository{Pool: pool},
		lockTimeout:    lockTimeout,
	}
}

var (
	_ portsrepo.UnitOfWork         = (*PgxUnitOfWork)(nil)
	_ portsrepo.TransactionManager = (*PgxUnitOfWork)(nil)
)

// WithinTx begins a transaction, bounds lock waits with lock_timeout and runs fn.
// A panic inside fn rolls back and is returned as an internal error.
func (u *PgxUnitOfWork) WithinTx(ctx context.Context, fn portsrepo.TxFunc) (err error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	tx, err := u.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = u.Rollback(ctx, tx)
			err = apperrors.NewAppError(500, fmt.Sprintf("panic inside ledger transaction: %v", p), nil)
			logger.Error("Ledger transaction panicked", "panic", p)
			return
		}
		if err != nil {
			if rbErr := u.Rollback(ctx, tx); rbErr != nil {
				logger.Warn("Rollback failed", "error", rbErr, "cause", err)
			}
			logger.Debug("Ledger transaction rolled back", "error", err)
			return
		}
		if err = u.Commit(ctx, tx); err != nil {
			logger.Warn("Ledger transaction commit failed", "error", err)
		}
	}()

	if u.lockTimeout > 0 {
		// SET does not accept bind parameters; the value is an integer we format ourselves.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", u.lockTimeout.Milliseconds())
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return translatePgError(err, "failed to set lock timeout")
		}
	}

	err = fn(ctx, tx)
	return surfaceConflict(err)
}

// surfaceConflict re-checks errors wrapped by repositories so a lock timeout deep in
// an AppError chain still reads as a concurrency conflict.
func surfaceConflict(err error) error {
	if err == nil || errors.Is(err, apperrors.ErrConcurrencyConflict) {
		return err
	}
	translated := translatePgError(err, "ledger transaction failed")
	if errors.Is(translated, apperrors.ErrConcurrencyConflict) {
		return translated
	}
	return err
}
