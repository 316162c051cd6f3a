// Package port defines the persistence interfaces the application layer depends on.
// Implementations live under internal/infrastructure/persistence.
package port

import (
	"context"

	"github.com/ormeda/labdesk/internal/domain/entity"
)

// QuoteRepository defines persistence operations for Quote.
// GetByID returns (nil, nil) when the quote does not exist.
type QuoteRepository interface {
	Create(ctx context.Context, quote *entity.Quote) error
	GetByID(ctx context.Context, id int64) (*entity.Quote, error)
	List(ctx context.Context, filter entity.QuoteFilter) ([]*entity.Quote, error)
	Update(ctx context.Context, quote *entity.Quote) error
	Delete(ctx context.Context, id int64) error

	// CountByRange returns total and accepted quote counts created in the range,
	// for conversion-rate computation.
	CountByRange(ctx context.Context, r entity.DateRange) (total, accepted int64, err error)
}

// InvoiceRepository defines persistence operations for Invoice.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	GetByQuoteID(ctx context.Context, quoteID int64) (*entity.Invoice, error)
	List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error)
	UpdateStatus(ctx context.Context, id int64, status entity.InvoiceStatus) error
	UpdateDeliveryStatus(ctx context.Context, id int64, status entity.DeliveryStatus) error

	// CountIssued returns the number of non-cancelled invoices issued in the range.
	CountIssued(ctx context.Context, r entity.DateRange) (int64, error)
}

// TransactionRepository defines persistence operations for the append-only
// transaction log. There is no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	GetByID(ctx context.Context, id int64) (*entity.Transaction, error)
	GetByInvoiceID(ctx context.Context, invoiceID int64) ([]*entity.Transaction, error)
	List(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error)
}

// EntryRepository defines persistence operations for the append-only financial
// entry ledger.
type EntryRepository interface {
	Create(ctx context.Context, entry *entity.FinancialEntry) error
	List(ctx context.Context, filter entity.EntryFilter) ([]*entity.FinancialEntry, error)
}

// CounterRepository allocates durable per-kind, per-day document sequence numbers.
type CounterRepository interface {
	// Next atomically increments and returns the counter for (kind, dateKey).
	Next(ctx context.Context, kind, dateKey string) (int64, error)
}

// TransactionManager runs a function inside a single database transaction.
// Repository calls made with the passed context join that transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
