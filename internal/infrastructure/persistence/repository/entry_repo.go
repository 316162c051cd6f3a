package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

// EntryRepository implements port.EntryRepository for the append-only
// financial-entry ledger.
type EntryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEntryRepository creates a new financial entry repository
func NewEntryRepository(db *sql.DB, logger *zap.Logger) port.EntryRepository {
	return &EntryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a ledger entry
func (r *EntryRepository) Create(ctx context.Context, entry *entity.FinancialEntry) error {
	query := `
		INSERT INTO financial_entries (
			date, category, description, amount, type, invoice_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entry.Date,
		entry.Category,
		entry.Description,
		entry.Amount,
		entry.Type,
		entry.InvoiceID,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create financial entry",
			zap.String("category", entry.Category),
			zap.Error(err))
		return fmt.Errorf("failed to create financial entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// List retrieves entries matching the filter, oldest first
func (r *EntryRepository) List(ctx context.Context, filter entity.EntryFilter) ([]*entity.FinancialEntry, error) {
	query := `
		SELECT id, date, category, description, amount, type, invoice_id, created_at
		FROM financial_entries
		WHERE 1=1
	`
	var args []interface{}

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if !filter.Date.Start.IsZero() {
		query += ` AND date >= ?`
		args = append(args, filter.Date.Start)
	}
	if !filter.Date.End.IsZero() {
		query += ` AND date < ?`
		args = append(args, filter.Date.End)
	}
	query += ` ORDER BY date, id`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list financial entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list financial entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.FinancialEntry
	for rows.Next() {
		var entry entity.FinancialEntry
		var invoiceID sql.NullInt64
		err := rows.Scan(
			&entry.ID,
			&entry.Date,
			&entry.Category,
			&entry.Description,
			&entry.Amount,
			&entry.Type,
			&invoiceID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan financial entry: %w", err)
		}
		if invoiceID.Valid {
			entry.InvoiceID = &invoiceID.Int64
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *EntryRepository) getExecutor(ctx context.Context) executor {
	return txExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.EntryRepository = (*EntryRepository)(nil)
