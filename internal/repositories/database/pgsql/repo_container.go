package pgsql

import (
	"time"

	portsrepo "github.com/SscSPs/remittance_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every Postgres repository onto one pool. lockTimeout
// bounds how long a ledger transaction waits for a row lock.
func NewRepositoryProvider(dbPool *pgxpool.Pool, lockTimeout time.Duration) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UnitOfWork:         newPgxUnitOfWork(dbPool, lockTimeout),
		BalanceRepo:        newPgxBalanceRepository(dbPool),
		TransactionRepo:    newPgxTransactionRepository(dbPool),
		ObligationRepo:     newPgxObligationRepository(dbPool),
		ReconciliationRepo: newPgxReconciliationRepository(dbPool),
	}
}
