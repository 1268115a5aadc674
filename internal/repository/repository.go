// Package repository implements the engine's durable store on MySQL. A
// single Repository value satisfies the store interfaces of the ledger and
// the booking service; its files are split by entity.
//
// Transactions are carried in the context: WithTx begins one, stashes it,
// and every query helper picks it up, so services compose multi-statement
// units of work without threading *sql.Tx through each call. They run at
// READ COMMITTED so the derived booked count observes every ticket committed
// before the pool's row lock was granted. InnoDB's row locks give bounded
// waits (lock_wait_timeout) and deadlock detection; the driver errors for
// both are translated into domain.ErrTxConflict so the service layer can
// retry them transparently.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/onvent/event-booking/internal/domain"
)

// MySQL server error numbers the engine cares about.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// Repository provides data access for events, ticket types, tickets and
// users, and the capacity-ledger primitives built on them.
type Repository struct {
	db *sql.DB
}

// New returns a Repository bound to the given database handle.
func New(db *sql.DB) *Repository { return &Repository{db: db} }

type txKey struct{}

// querier is the subset of *sql.DB and *sql.Tx the entity files use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction carried in ctx, or the bare handle when the
// caller is outside any transaction.
func (r *Repository) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

// WithTx runs fn inside a transaction. A nested call joins the transaction
// already in ctx. The transaction is rolled back when fn returns an error
// and committed otherwise; commit failures are classified like any other
// store error so serialization conflicts at commit time are retryable.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	// READ COMMITTED gives every statement a fresh read view. The reserve
	// and release paths sum ACTIVE tickets after waiting on the pool's row
	// lock; under InnoDB's default REPEATABLE READ that sum would come from
	// the view pinned by the transaction's first plain SELECT and miss
	// tickets committed while the lock was held by another writer.
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps driver-level contention errors onto domain.ErrTxConflict.
// Everything else passes through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
			return fmt.Errorf("%w: %v", domain.ErrTxConflict, err)
		}
	}
	return err
}

// isDuplicateEntry reports whether err is a unique-index violation.
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}
