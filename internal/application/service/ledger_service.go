package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ormeda/labdesk/internal/apperr"
	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/internal/domain/entity"
)

// EntryInput is a manual ledger line, e.g. an operating expense. Amount is the
// positive magnitude; the service signs it from the type.
type EntryInput struct {
	Date        time.Time
	Category    string
	Description string
	Amount      int64
	Type        entity.EntryType
}

// LedgerService owns the append-only transaction log, the derived invoice
// status, and the income projection into the financial-entry ledger.
type LedgerService interface {
	// Record appends a payment against an invoice and reconciles the invoice
	// status. Overpayment is accepted and recorded in full; the remaining
	// balance is floored at zero.
	Record(ctx context.Context, invoiceID int64, amount int64, method entity.PaymentMethod, provider string) (*entity.Transaction, error)

	// Refund appends a refunded transaction mirroring a paid one, plus a
	// compensating ledger entry. Nothing is ever deleted.
	Refund(ctx context.Context, transactionID int64) (*entity.Transaction, error)

	ListTransactions(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error)

	// AddEntry appends a manual financial entry. Entries are immutable once
	// created.
	AddEntry(ctx context.Context, input EntryInput) (*entity.FinancialEntry, error)
}

type ledgerServiceImpl struct {
	txRepo       port.TransactionRepository
	invoiceRepo  port.InvoiceRepository
	entryRepo    port.EntryRepository
	txManager    port.TransactionManager
	invoiceLocks *KeyedMutex
	logger       Logger
	now          func() time.Time
}

// NewLedgerService creates a new LedgerService. invoiceLocks is the per-invoice
// mutex shared with the invoice service, so Record and Cancel on the same
// invoice serialize.
func NewLedgerService(
	txRepo port.TransactionRepository,
	invoiceRepo port.InvoiceRepository,
	entryRepo port.EntryRepository,
	txManager port.TransactionManager,
	invoiceLocks *KeyedMutex,
	logger Logger,
) LedgerService {
	return &ledgerServiceImpl{
		txRepo:       txRepo,
		invoiceRepo:  invoiceRepo,
		entryRepo:    entryRepo,
		txManager:    txManager,
		invoiceLocks: invoiceLocks,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *ledgerServiceImpl) Record(ctx context.Context, invoiceID int64, amount int64, method entity.PaymentMethod, provider string) (*entity.Transaction, error) {
	if amount <= 0 {
		return nil, apperr.NewValidation("amount", "amount must be positive")
	}
	if !method.IsValid() {
		return nil, apperr.NewValidation("method", "unknown payment method: "+method.String())
	}

	unlock := s.invoiceLocks.Lock(invoiceID)
	defer unlock()

	now := s.now().UTC()
	tx := &entity.Transaction{
		InvoiceID: invoiceID,
		Date:      now,
		Amount:    amount,
		Method:    method,
		Provider:  provider,
		Status:    entity.TransactionPaid,
		CreatedAt: now,
	}

	// The transaction row, the reconciled invoice status and the income
	// projection commit together or not at all. The invoice is read inside the
	// transaction: a cancel that committed after the caller last saw the
	// invoice must still reject the payment.
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperr.NewNotFound("invoice", fmt.Sprintf("%d", invoiceID))
		}
		if invoice.Status == entity.InvoiceCancelled {
			return apperr.NewInvalidTransition("invoice", "cancelled", "payment")
		}

		if err := s.txRepo.Create(ctx, tx); err != nil {
			return err
		}
		if err := s.reconcile(ctx, invoiceID, now); err != nil {
			return err
		}
		entry := &entity.FinancialEntry{
			Date:        now,
			Category:    "sales",
			Description: fmt.Sprintf("Payment %s via %s", invoice.Number, method),
			Amount:      amount,
			Type:        entity.EntryIncome,
			InvoiceID:   &invoiceID,
			CreatedAt:   now,
		}
		return s.entryRepo.Create(ctx, entry)
	})
	if err != nil {
		s.logger.Error("Failed to record transaction", "invoice_id", invoiceID, "error", err)
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.logger.Info("Transaction recorded",
		"id", tx.ID, "invoice_id", invoiceID, "amount", amount, "method", method)
	return tx, nil
}

func (s *ledgerServiceImpl) Refund(ctx context.Context, transactionID int64) (*entity.Transaction, error) {
	original, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if original == nil {
		return nil, apperr.NewNotFound("transaction", fmt.Sprintf("%d", transactionID))
	}
	if original.Status != entity.TransactionPaid {
		return nil, apperr.NewInvalidTransition("transaction", original.Status.String(), "refunded")
	}

	unlock := s.invoiceLocks.Lock(original.InvoiceID)
	defer unlock()

	invoice, err := s.invoiceRepo.GetByID(ctx, original.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	if invoice == nil {
		return nil, apperr.NewNotFound("invoice", fmt.Sprintf("%d", original.InvoiceID))
	}

	now := s.now().UTC()
	refund := &entity.Transaction{
		InvoiceID:   original.InvoiceID,
		Date:        now,
		Amount:      original.Amount,
		Method:      original.Method,
		Provider:    original.Provider,
		ExternalRef: original.ExternalRef,
		Status:      entity.TransactionRefunded,
		RefundOf:    &original.ID,
		CreatedAt:   now,
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		// Each payment may be refunded at most once. The check runs under the
		// invoice lock inside the store transaction, so a retried refund
		// request appends nothing.
		siblings, err := s.txRepo.GetByInvoiceID(ctx, original.InvoiceID)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if sibling.RefundOf != nil && *sibling.RefundOf == original.ID {
				return apperr.NewInvalidTransition("transaction", "refunded", "refunded")
			}
		}

		if err := s.txRepo.Create(ctx, refund); err != nil {
			return err
		}
		if err := s.reconcile(ctx, original.InvoiceID, now); err != nil {
			return err
		}
		entry := &entity.FinancialEntry{
			Date:        now,
			Category:    "sales",
			Description: fmt.Sprintf("Refund %s", invoice.Number),
			Amount:      -original.Amount,
			Type:        entity.EntryIncome,
			InvoiceID:   &original.InvoiceID,
			CreatedAt:   now,
		}
		return s.entryRepo.Create(ctx, entry)
	})
	if err != nil {
		s.logger.Error("Failed to record refund", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("failed to record refund: %w", err)
	}

	s.logger.Info("Refund recorded",
		"id", refund.ID, "invoice_id", original.InvoiceID, "amount", refund.Amount)
	return refund, nil
}

func (s *ledgerServiceImpl) ListTransactions(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	txs, err := s.txRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (s *ledgerServiceImpl) AddEntry(ctx context.Context, input EntryInput) (*entity.FinancialEntry, error) {
	if !input.Type.IsValid() {
		return nil, apperr.NewValidation("type", "unknown entry type: "+input.Type.String())
	}
	if input.Amount <= 0 {
		return nil, apperr.NewValidation("amount", "amount must be a positive magnitude")
	}
	if input.Category == "" {
		return nil, apperr.NewValidation("category", "category is required")
	}

	now := s.now().UTC()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	amount := input.Amount
	if input.Type == entity.EntryExpense {
		amount = -amount
	}

	entry := &entity.FinancialEntry{
		Date:        date.UTC(),
		Category:    input.Category,
		Description: input.Description,
		Amount:      amount,
		Type:        input.Type,
		CreatedAt:   now,
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to append ledger entry", "error", err)
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	s.logger.Info("Ledger entry appended", "id", entry.ID, "type", entry.Type, "amount", entry.Amount)
	return entry, nil
}

// reconcile recomputes and persists the derived invoice status after a ledger
// write. It re-reads the invoice inside the current store transaction so the
// resolution never runs against a stale in-memory status; cancelled never
// changes here.
func (s *ledgerServiceImpl) reconcile(ctx context.Context, invoiceID int64, now time.Time) error {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return apperr.NewNotFound("invoice", fmt.Sprintf("%d", invoiceID))
	}
	txs, err := s.txRepo.GetByInvoiceID(ctx, invoiceID)
	if err != nil {
		return err
	}
	status := entity.ResolveInvoiceStatus(invoice, txs, now)
	if status == invoice.Status {
		return nil
	}
	return s.invoiceRepo.UpdateStatus(ctx, invoiceID, status)
}
