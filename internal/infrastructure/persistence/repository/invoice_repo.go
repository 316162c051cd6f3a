package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the invoice and its line items
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			number, quote_id, customer_name, customer_email, customer_phone,
			customer_establishment, customer_city,
			subtotal, tax, shipping, total,
			status, delivery_status, issue_date, due_date, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		invoice.Number,
		invoice.QuoteID,
		invoice.Customer.Name,
		invoice.Customer.Email,
		invoice.Customer.Phone,
		invoice.Customer.Establishment,
		invoice.Customer.City,
		invoice.Subtotal,
		invoice.Tax,
		invoice.Shipping,
		invoice.Total,
		invoice.Status,
		invoice.DeliveryStatus,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Notes,
		invoice.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice",
			zap.String("number", invoice.Number),
			zap.Int64("quote_id", invoice.QuoteID),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	invoice.ID = id

	itemQuery := `
		INSERT INTO invoice_items (invoice_id, product_name, quantity, unit_price, line_total)
		VALUES (?, ?, ?, ?, ?)
	`
	for i := range invoice.Items {
		result, err := r.getExecutor(ctx).ExecContext(ctx, itemQuery,
			invoice.ID,
			invoice.Items[i].ProductName,
			invoice.Items[i].Quantity,
			invoice.Items[i].UnitPrice,
			invoice.Items[i].LineTotal,
		)
		if err != nil {
			return fmt.Errorf("failed to create invoice item: %w", err)
		}
		itemID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		invoice.Items[i].ID = itemID
		invoice.Items[i].InvoiceID = invoice.ID
	}
	return nil
}

// GetByID retrieves an invoice with its items
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	query := selectInvoice + ` WHERE id = ?`

	invoice, err := r.scanInvoice(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.Items = items
	return invoice, nil
}

// GetByQuoteID retrieves the invoice derived from a quote (1:1 relationship)
func (r *InvoiceRepository) GetByQuoteID(ctx context.Context, quoteID int64) (*entity.Invoice, error) {
	query := selectInvoice + ` WHERE quote_id = ?`

	invoice, err := r.scanInvoice(r.getExecutor(ctx).QueryRowContext(ctx, query, quoteID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice by quote ID",
			zap.Int64("quote_id", quoteID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	items, err := r.getItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.Items = items
	return invoice, nil
}

// List retrieves invoices matching the filter. The stored status column only
// carries cancelled reliably; paid and overdue are re-derived above this layer,
// so no status predicate appears here.
func (r *InvoiceRepository) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	query := selectInvoice + ` WHERE 1=1`
	var args []interface{}

	if !filter.Issued.Start.IsZero() {
		query += ` AND issue_date >= ?`
		args = append(args, filter.Issued.Start)
	}
	if !filter.Issued.End.IsZero() {
		query += ` AND issue_date < ?`
		args = append(args, filter.Issued.End)
	}
	if filter.Search != "" {
		query += ` AND (number LIKE ? OR customer_name LIKE ? OR customer_establishment LIKE ?)`
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}

	query += ` ORDER BY issue_date DESC, id DESC`
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
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*entity.Invoice
	for rows.Next() {
		invoice, err := r.scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, invoice := range invoices {
		items, err := r.getItems(ctx, invoice.ID)
		if err != nil {
			return nil, err
		}
		invoice.Items = items
	}
	return invoices, nil
}

// UpdateStatus persists a reconciled or cancelled status
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, status entity.InvoiceStatus) error {
	query := `UPDATE invoices SET status = ? WHERE id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update invoice status",
			zap.Int64("id", id),
			zap.String("status", status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	return nil
}

// UpdateDeliveryStatus persists the delivery side-effect outcome
func (r *InvoiceRepository) UpdateDeliveryStatus(ctx context.Context, id int64, status entity.DeliveryStatus) error {
	query := `UPDATE invoices SET delivery_status = ? WHERE id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update delivery status",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	return nil
}

// CountIssued returns the number of non-cancelled invoices issued in the range
func (r *InvoiceRepository) CountIssued(ctx context.Context, dr entity.DateRange) (int64, error) {
	query := `SELECT COUNT(*) FROM invoices WHERE status != 'cancelled'`
	var args []interface{}
	if !dr.Start.IsZero() {
		query += ` AND issue_date >= ?`
		args = append(args, dr.Start)
	}
	if !dr.End.IsZero() {
		query += ` AND issue_date < ?`
		args = append(args, dr.End)
	}

	var count int64
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, args...).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count invoices", zap.Error(err))
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

const selectInvoice = `
	SELECT id, number, quote_id, customer_name, customer_email, customer_phone,
		customer_establishment, customer_city,
		subtotal, tax, shipping, total,
		status, delivery_status, issue_date, due_date, notes, created_at
	FROM invoices`

func (r *InvoiceRepository) scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := row.Scan(
		&invoice.ID,
		&invoice.Number,
		&invoice.QuoteID,
		&invoice.Customer.Name,
		&invoice.Customer.Email,
		&invoice.Customer.Phone,
		&invoice.Customer.Establishment,
		&invoice.Customer.City,
		&invoice.Subtotal,
		&invoice.Tax,
		&invoice.Shipping,
		&invoice.Total,
		&invoice.Status,
		&invoice.DeliveryStatus,
		&invoice.IssueDate,
		&invoice.DueDate,
		&invoice.Notes,
		&invoice.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) getItems(ctx context.Context, invoiceID int64) ([]entity.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, product_name, quantity, unit_price, line_total
		FROM invoice_items
		WHERE invoice_id = ?
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	defer rows.Close()

	var items []entity.InvoiceItem
	for rows.Next() {
		var item entity.InvoiceItem
		err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *InvoiceRepository) getExecutor(ctx context.Context) executor {
	return txExecutor(ctx, r.db)
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
