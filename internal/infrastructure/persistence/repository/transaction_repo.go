package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

// TransactionRepository implements port.TransactionRepository. The table is
// append-only: there is no UPDATE or DELETE statement in this file.
type TransactionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, logger *zap.Logger) port.TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a transaction row
func (r *TransactionRepository) Create(ctx context.Context, tx *entity.Transaction) error {
	query := `
		INSERT INTO transactions (
			invoice_id, date, amount, method, provider, external_ref, status, refund_of, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		tx.InvoiceID,
		tx.Date,
		tx.Amount,
		tx.Method,
		tx.Provider,
		tx.ExternalRef,
		tx.Status,
		tx.RefundOf,
		tx.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction",
			zap.Int64("invoice_id", tx.InvoiceID),
			zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	tx.ID = id
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*entity.Transaction, error) {
	query := selectTransaction + ` WHERE id = ?`

	tx, err := r.scanTransaction(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get transaction by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// GetByInvoiceID retrieves all transactions recorded against an invoice
func (r *TransactionRepository) GetByInvoiceID(ctx context.Context, invoiceID int64) ([]*entity.Transaction, error) {
	query := selectTransaction + ` WHERE invoice_id = ? ORDER BY id`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, invoiceID)
	if err != nil {
		r.logger.Error("Failed to get transactions by invoice ID",
			zap.Int64("invoice_id", invoiceID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	return r.scanTransactions(rows)
}

// List retrieves transactions matching the filter
func (r *TransactionRepository) List(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	query := selectTransaction + ` WHERE 1=1`
	var args []interface{}

	if filter.InvoiceID != 0 {
		query += ` AND invoice_id = ?`
		args = append(args, filter.InvoiceID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Method != "" {
		query += ` AND method = ?`
		args = append(args, filter.Method)
	}
	if !filter.Date.Start.IsZero() {
		query += ` AND date >= ?`
		args = append(args, filter.Date.Start)
	}
	if !filter.Date.End.IsZero() {
		query += ` AND date < ?`
		args = append(args, filter.Date.End)
	}

	query += ` ORDER BY date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return r.scanTransactions(rows)
}

const selectTransaction = `
	SELECT id, invoice_id, date, amount, method, provider, external_ref, status, refund_of, created_at
	FROM transactions`

func (r *TransactionRepository) scanTransaction(row rowScanner) (*entity.Transaction, error) {
	var tx entity.Transaction
	var refundOf sql.NullInt64
	err := row.Scan(
		&tx.ID,
		&tx.InvoiceID,
		&tx.Date,
		&tx.Amount,
		&tx.Method,
		&tx.Provider,
		&tx.ExternalRef,
		&tx.Status,
		&refundOf,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if refundOf.Valid {
		tx.RefundOf = &refundOf.Int64
	}
	return &tx, nil
}

func (r *TransactionRepository) scanTransactions(rows *sql.Rows) ([]*entity.Transaction, error) {
	var txs []*entity.Transaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *TransactionRepository) getExecutor(ctx context.Context) executor {
	return txExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.TransactionRepository = (*TransactionRepository)(nil)
