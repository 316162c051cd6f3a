package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ormeda/labdesk/internal/apperr"
	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/internal/domain/entity"
	"github.com/ormeda/labdesk/internal/domain/money"
	"github.com/ormeda/labdesk/internal/numbering"
)

// InvoiceService derives invoices from accepted quotes and manages their
// non-payment lifecycle. Payment state lives in the LedgerService.
type InvoiceService interface {
	// Derive converts an accepted quote into an invoice, at most once per quote.
	Derive(ctx context.Context, quoteID int64) (*entity.Invoice, error)
	Get(ctx context.Context, id int64) (*entity.Invoice, error)
	List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error)
	Cancel(ctx context.Context, id int64) (*entity.Invoice, error)
	// MarkDelivery records the outcome of the fire-and-forget delivery side
	// effect. It never re-enters the payment state machine.
	MarkDelivery(ctx context.Context, id int64, status entity.DeliveryStatus) error
}

type invoiceServiceImpl struct {
	invoiceRepo port.InvoiceRepository
	quoteRepo   port.QuoteRepository
	txRepo      port.TransactionRepository
	numbers     *numbering.Service
	txManager   port.TransactionManager
	quoteLocks  *KeyedMutex
	locks       *KeyedMutex
	rules       Rules
	logger      Logger
	now         func() time.Time
}

// NewInvoiceService creates a new InvoiceService. quoteLocks and invoiceLocks
// are the per-entity mutexes shared with the quote and ledger services, so a
// cancel here and a payment there on the same invoice are mutually exclusive.
func NewInvoiceService(
	invoiceRepo port.InvoiceRepository,
	quoteRepo port.QuoteRepository,
	txRepo port.TransactionRepository,
	numbers *numbering.Service,
	txManager port.TransactionManager,
	quoteLocks *KeyedMutex,
	invoiceLocks *KeyedMutex,
	rules Rules,
	logger Logger,
) InvoiceService {
	return &invoiceServiceImpl{
		invoiceRepo: invoiceRepo,
		quoteRepo:   quoteRepo,
		txRepo:      txRepo,
		numbers:     numbers,
		txManager:   txManager,
		quoteLocks:  quoteLocks,
		locks:       invoiceLocks,
		rules:       rules,
		logger:      logger,
		now:         time.Now,
	}
}

// Derive copies the quote's line items verbatim, recomputes subtotal, tax and
// shipping forward from the items, and fixes the total at issue time. The quote
// becomes a read-only input: it is marked invoiced inside the same transaction
// and a second derivation fails.
func (s *invoiceServiceImpl) Derive(ctx context.Context, quoteID int64) (*entity.Invoice, error) {
	unlock := s.quoteLocks.Lock(quoteID)
	defer unlock()

	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote == nil {
		return nil, apperr.NewNotFound("quote", fmt.Sprintf("%d", quoteID))
	}

	now := s.now().UTC()
	if status := quote.EffectiveStatus(now); status != entity.QuoteAccepted {
		return nil, apperr.NewInvalidTransition("quote", status.String(), "invoiced")
	}
	if quote.InvoiceID != nil {
		return nil, apperr.NewInvalidTransition("quote", "invoiced", "invoiced")
	}
	if existing, err := s.invoiceRepo.GetByQuoteID(ctx, quoteID); err != nil {
		return nil, fmt.Errorf("failed to check existing invoice: %w", err)
	} else if existing != nil {
		return nil, apperr.NewInvalidTransition("quote", "invoiced", "invoiced")
	}

	items := make([]entity.InvoiceItem, len(quote.Items))
	var subtotal int64
	for i, item := range quote.Items {
		items[i] = entity.InvoiceItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
		subtotal += item.LineTotal
	}
	tax := money.Tax(subtotal, s.rules.TaxRateBasisPoints)
	shipping := s.rules.Shipping.Amount(subtotal)
	total := subtotal + tax + shipping

	if !money.Reconciles(total, subtotal, tax, shipping) {
		err := &apperr.ArithmeticInvariantError{Entity: "invoice", Expected: subtotal + tax + shipping, Actual: total}
		s.logger.Error("Invoice totals do not reconcile",
			"quote_id", quoteID, "subtotal", subtotal, "tax", tax, "shipping", shipping, "total", total)
		return nil, err
	}

	invoice := &entity.Invoice{
		QuoteID:        quoteID,
		Customer:       quote.Customer,
		Items:          items,
		Subtotal:       subtotal,
		Tax:            tax,
		Shipping:       shipping,
		Total:          total,
		Status:         entity.InvoicePending,
		DeliveryStatus: entity.DeliveryNotSent,
		IssueDate:      now,
		DueDate:        now.AddDate(0, 0, s.rules.PaymentTermsDays),
		CreatedAt:      now,
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.Next(ctx, numbering.KindInvoice, now)
		if err != nil {
			return err
		}
		invoice.Number = number
		if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
			return err
		}
		quote.InvoiceID = &invoice.ID
		quote.UpdatedAt = now
		return s.quoteRepo.Update(ctx, quote)
	})
	if err != nil {
		s.logger.Error("Failed to derive invoice", "quote_id", quoteID, "error", err)
		return nil, fmt.Errorf("failed to derive invoice: %w", err)
	}

	s.logger.Info("Invoice derived",
		"id", invoice.ID, "number", invoice.Number, "quote_id", quoteID,
		"total", invoice.Total, "due", invoice.DueDate.Format(time.RFC3339))
	return invoice, nil
}

// Get returns the invoice with its status re-derived from transactions as of
// now, so overdue shows up without any write having happened.
func (s *invoiceServiceImpl) Get(ctx context.Context, id int64) (*entity.Invoice, error) {
	invoice, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	txs, err := s.txRepo.GetByInvoiceID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	invoice.Status = entity.ResolveInvoiceStatus(invoice, txs, s.now().UTC())
	return invoice, nil
}

func (s *invoiceServiceImpl) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	invoices, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	now := s.now().UTC()
	for _, inv := range invoices {
		txs, err := s.txRepo.GetByInvoiceID(ctx, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get transactions: %w", err)
		}
		inv.Status = entity.ResolveInvoiceStatus(inv, txs, now)
	}
	if filter.Status != "" {
		filtered := invoices[:0]
		for _, inv := range invoices {
			if inv.Status == filter.Status {
				filtered = append(filtered, inv)
			}
		}
		invoices = filtered
	}
	return invoices, nil
}

// Cancel is the explicit terminal operation. A settled invoice cannot be
// cancelled, and once cancelled no payments may be recorded.
func (s *invoiceServiceImpl) Cancel(ctx context.Context, id int64) (*entity.Invoice, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	invoice, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == entity.InvoiceCancelled {
		return nil, apperr.NewInvalidTransition("invoice", "cancelled", "cancelled")
	}

	txs, err := s.txRepo.GetByInvoiceID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	if entity.ResolveInvoiceStatus(invoice, txs, s.now().UTC()) == entity.InvoicePaid {
		return nil, apperr.NewInvalidTransition("invoice", "paid", "cancelled")
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, id, entity.InvoiceCancelled); err != nil {
		s.logger.Error("Failed to cancel invoice", "id", id, "error", err)
		return nil, fmt.Errorf("failed to cancel invoice: %w", err)
	}
	invoice.Status = entity.InvoiceCancelled

	s.logger.Info("Invoice cancelled", "id", id, "number", invoice.Number)
	return invoice, nil
}

func (s *invoiceServiceImpl) MarkDelivery(ctx context.Context, id int64, status entity.DeliveryStatus) error {
	if err := s.invoiceRepo.UpdateDeliveryStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	return nil
}

func (s *invoiceServiceImpl) load(ctx context.Context, id int64) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	if invoice == nil {
		return nil, apperr.NewNotFound("invoice", fmt.Sprintf("%d", id))
	}
	return invoice, nil
}
