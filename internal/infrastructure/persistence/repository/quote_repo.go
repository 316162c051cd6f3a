package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

// QuoteRepository implements port.QuoteRepository
type QuoteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *sql.DB, logger *zap.Logger) port.QuoteRepository {
	return &QuoteRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the quote and its line items. The caller is expected to run
// this inside a transaction so the document and its items commit together.
func (r *QuoteRepository) Create(ctx context.Context, quote *entity.Quote) error {
	query := `
		INSERT INTO quotes (
			number, customer_name, customer_email, customer_phone,
			customer_establishment, customer_city,
			subtotal, tax, shipping, total,
			status, priority, valid_until, message, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		quote.Number,
		quote.Customer.Name,
		quote.Customer.Email,
		quote.Customer.Phone,
		quote.Customer.Establishment,
		quote.Customer.City,
		quote.Subtotal,
		quote.Tax,
		quote.Shipping,
		quote.Total,
		quote.Status,
		quote.Priority,
		quote.ValidUntil,
		quote.Message,
		quote.Notes,
		quote.CreatedAt,
		quote.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create quote",
			zap.String("number", quote.Number),
			zap.Error(err))
		return fmt.Errorf("failed to create quote: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	quote.ID = id

	if err := r.insertItems(ctx, quote.ID, quote.Items); err != nil {
		return err
	}
	for i := range quote.Items {
		quote.Items[i].QuoteID = quote.ID
	}
	return nil
}

// GetByID retrieves a quote with its items
func (r *QuoteRepository) GetByID(ctx context.Context, id int64) (*entity.Quote, error) {
	query := selectQuote + ` WHERE id = ?`

	quote, err := r.scanQuote(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get quote by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	quote.Items = items
	return quote, nil
}

// List retrieves quotes matching the filter. Status is deliberately not a SQL
// predicate: expiry is derived at read time, so status filtering happens above
// this layer where the effective status is known.
func (r *QuoteRepository) List(ctx context.Context, filter entity.QuoteFilter) ([]*entity.Quote, error) {
	query := selectQuote + ` WHERE 1=1`
	var args []interface{}

	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, filter.Priority)
	}
	if !filter.Created.Start.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Created.Start)
	}
	if !filter.Created.End.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, filter.Created.End)
	}
	if filter.Search != "" {
		query += ` AND (number LIKE ? OR customer_name LIKE ? OR customer_establishment LIKE ?
			OR EXISTS (SELECT 1 FROM quote_items qi WHERE qi.quote_id = quotes.id AND qi.product_name LIKE ?))`
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like, like)
	}

	query += ` ORDER BY created_at DESC, id DESC`
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
		r.logger.Error("Failed to list quotes", zap.Error(err))
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	quotes, err := r.scanQuotes(rows)
	if err != nil {
		return nil, err
	}
	for _, quote := range quotes {
		items, err := r.getItems(ctx, quote.ID)
		if err != nil {
			return nil, err
		}
		quote.Items = items
	}
	return quotes, nil
}

// Update rewrites the quote row and replaces its items
func (r *QuoteRepository) Update(ctx context.Context, quote *entity.Quote) error {
	query := `
		UPDATE quotes
		SET customer_name = ?, customer_email = ?, customer_phone = ?,
			customer_establishment = ?, customer_city = ?,
			subtotal = ?, tax = ?, shipping = ?, total = ?,
			status = ?, priority = ?, valid_until = ?, message = ?, notes = ?,
			invoice_id = ?, updated_at = ?, sent_at = ?, responded_at = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		quote.Customer.Name,
		quote.Customer.Email,
		quote.Customer.Phone,
		quote.Customer.Establishment,
		quote.Customer.City,
		quote.Subtotal,
		quote.Tax,
		quote.Shipping,
		quote.Total,
		quote.Status,
		quote.Priority,
		quote.ValidUntil,
		quote.Message,
		quote.Notes,
		quote.InvoiceID,
		quote.UpdatedAt,
		quote.SentAt,
		quote.RespondedAt,
		quote.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update quote",
			zap.Int64("id", quote.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update quote: %w", err)
	}

	deleteItems := `DELETE FROM quote_items WHERE quote_id = ?`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, deleteItems, quote.ID); err != nil {
		return fmt.Errorf("failed to replace quote items: %w", err)
	}
	return r.insertItems(ctx, quote.ID, quote.Items)
}

// Delete removes a quote and its items
func (r *QuoteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM quote_items WHERE quote_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete quote items: %w", err)
	}
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to delete quote",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	return nil
}

// CountByRange returns total and accepted quote counts created in the range
func (r *QuoteRepository) CountByRange(ctx context.Context, dr entity.DateRange) (int64, int64, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'accepted' THEN 1 ELSE 0 END), 0)
		FROM quotes
		WHERE 1=1
	`
	var args []interface{}
	if !dr.Start.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, dr.Start)
	}
	if !dr.End.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, dr.End)
	}

	var total, accepted int64
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, args...).Scan(&total, &accepted)
	if err != nil {
		r.logger.Error("Failed to count quotes", zap.Error(err))
		return 0, 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return total, accepted, nil
}

const selectQuote = `
	SELECT id, number, customer_name, customer_email, customer_phone,
		customer_establishment, customer_city,
		subtotal, tax, shipping, total,
		status, priority, valid_until, message, notes,
		invoice_id, created_at, updated_at, sent_at, responded_at
	FROM quotes`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *QuoteRepository) scanQuote(row rowScanner) (*entity.Quote, error) {
	var quote entity.Quote
	var invoiceID sql.NullInt64
	var sentAt, respondedAt sql.NullTime

	err := row.Scan(
		&quote.ID,
		&quote.Number,
		&quote.Customer.Name,
		&quote.Customer.Email,
		&quote.Customer.Phone,
		&quote.Customer.Establishment,
		&quote.Customer.City,
		&quote.Subtotal,
		&quote.Tax,
		&quote.Shipping,
		&quote.Total,
		&quote.Status,
		&quote.Priority,
		&quote.ValidUntil,
		&quote.Message,
		&quote.Notes,
		&invoiceID,
		&quote.CreatedAt,
		&quote.UpdatedAt,
		&sentAt,
		&respondedAt,
	)
	if err != nil {
		return nil, err
	}

	if invoiceID.Valid {
		quote.InvoiceID = &invoiceID.Int64
	}
	if sentAt.Valid {
		quote.SentAt = &sentAt.Time
	}
	if respondedAt.Valid {
		quote.RespondedAt = &respondedAt.Time
	}
	return &quote, nil
}

func (r *QuoteRepository) scanQuotes(rows *sql.Rows) ([]*entity.Quote, error) {
	var quotes []*entity.Quote
	for rows.Next() {
		quote, err := r.scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

func (r *QuoteRepository) insertItems(ctx context.Context, quoteID int64, items []entity.QuoteItem) error {
	query := `
		INSERT INTO quote_items (quote_id, product_name, quantity, unit_price, line_total)
		VALUES (?, ?, ?, ?, ?)
	`
	for i := range items {
		result, err := r.getExecutor(ctx).ExecContext(ctx, query,
			quoteID,
			items[i].ProductName,
			items[i].Quantity,
			items[i].UnitPrice,
			items[i].LineTotal,
		)
		if err != nil {
			return fmt.Errorf("failed to create quote item: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		items[i].ID = id
	}
	return nil
}

func (r *QuoteRepository) getItems(ctx context.Context, quoteID int64) ([]entity.QuoteItem, error) {
	query := `
		SELECT id, quote_id, product_name, quantity, unit_price, line_total
		FROM quote_items
		WHERE quote_id = ?
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote items: %w", err)
	}
	defer rows.Close()

	var items []entity.QuoteItem
	for rows.Next() {
		var item entity.QuoteItem
		err := rows.Scan(&item.ID, &item.QuoteID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *QuoteRepository) getExecutor(ctx context.Context) executor {
	return txExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.QuoteRepository = (*QuoteRepository)(nil)
