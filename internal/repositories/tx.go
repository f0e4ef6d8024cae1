package repositories

import (
	"database/sql"
	"fmt"
)

// TxManager runs a function inside one atomic unit of work. Every multi-row
// mutation in the services goes through WithinTx; either all effects of fn
// land or none do.
type TxManager interface {
	WithinTx(fn func(executor SQLExecutor) error) error
}

type sqlTxManager struct {
	db *sql.DB
}

// NewSQLTxManager creates a TxManager backed by database transactions.
func NewSQLTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db}
}

func (m *sqlTxManager) WithinTx(fn func(executor SQLExecutor) error) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", ErrDatabaseError, err)
	}
	return nil
}
