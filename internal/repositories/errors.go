package repositories

import (
	"database/sql"
	"errors"
)

var (
	// ErrNotFound is returned when a specific record is not found.
	ErrNotFound = errors.New("requested record not found")

	// ErrDatabaseError is returned for unexpected database errors.
	// It can be used to wrap more specific driver errors.
	ErrDatabaseError = errors.New("database error")

	// ErrDuplicateKey is returned when an insert/update violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

	// ErrStockConflict is returned when a stock adjustment would drive the
	// count below zero. Callers validate availability first, so hitting this
	// means a concurrent reservation won the race.
	ErrStockConflict = errors.New("stock adjustment rejected: insufficient stock")

	// ErrStatusConflict is returned when a compare-and-swap status update
	// finds the row no longer in the expected status.
	ErrStatusConflict = errors.New("order status changed concurrently")

	// ErrPaymentImmutable is returned when an upsert targets a payment that
	// is already settled. Settled payments are never overwritten.
	ErrPaymentImmutable = errors.New("payment already settled")
)

// SQLExecutor defines an interface that can be satisfied by *sql.DB or *sql.Tx.
// This allows repository methods to be used within transactions or with a direct DB connection.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}
