package repository

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/pkg/database"
)

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type contextKey string

const txKey = contextKey("tx")

// TxManager implements port.TransactionManager over a sqlite connection. The
// open transaction rides the context; repositories pick it up via txExecutor.
type TxManager struct {
	db     *database.DB
	logger *zap.Logger
}

// NewTxManager creates a new transaction manager
func NewTxManager(db *database.DB, logger *zap.Logger) port.TransactionManager {
	return &TxManager{db: db, logger: logger}
}

// WithTransaction runs fn inside a single transaction. Repository calls made
// with the context passed to fn join that transaction.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested calls join the outer transaction instead of opening a second one.
	if _, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return fn(ctx)
	}
	return m.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

// txExecutor returns the context's transaction when one is open, else the pool.
func txExecutor(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db
}

var _ port.TransactionManager = (*TxManager)(nil)
