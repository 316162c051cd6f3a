package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ormeda/labdesk/internal/apperr"
	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/internal/domain/entity"
	"github.com/ormeda/labdesk/internal/domain/lifecycle"
	"github.com/ormeda/labdesk/internal/domain/money"
	"github.com/ormeda/labdesk/internal/numbering"
	"github.com/ormeda/labdesk/pkg/utils"
)

// QuoteItemInput is one requested line on a new quote.
type QuoteItemInput struct {
	ProductName string
	Quantity    int64
	UnitPrice   int64
}

// CreateQuoteInput carries everything needed to create a quote.
type CreateQuoteInput struct {
	Customer   entity.CustomerSnapshot
	Items      []QuoteItemInput
	Priority   entity.Priority
	Message    string
	ValidUntil *time.Time
}

// QuoteService owns the quote document lifecycle.
type QuoteService interface {
	Create(ctx context.Context, input CreateQuoteInput) (*entity.Quote, error)
	Get(ctx context.Context, id int64) (*entity.Quote, error)
	List(ctx context.Context, filter entity.QuoteFilter) ([]*entity.Quote, error)
	Search(ctx context.Context, text string) ([]*entity.Quote, error)
	UpdateStatus(ctx context.Context, id int64, status entity.QuoteStatus) (*entity.Quote, error)
	UpdatePriority(ctx context.Context, id int64, priority entity.Priority) (*entity.Quote, error)
	AddNote(ctx context.Context, id int64, text string) (*entity.Quote, error)
	Delete(ctx context.Context, id int64) error
	Duplicate(ctx context.Context, id int64) (*entity.Quote, error)
}

type quoteServiceImpl struct {
	quoteRepo port.QuoteRepository
	numbers   *numbering.Service
	txManager port.TransactionManager
	machine   *lifecycle.Machine
	locks     *KeyedMutex
	rules     Rules
	logger    Logger
	now       func() time.Time
}

// NewQuoteService creates a new QuoteService. locks is the per-quote mutex
// shared with every other service that mutates quotes.
func NewQuoteService(
	quoteRepo port.QuoteRepository,
	numbers *numbering.Service,
	txManager port.TransactionManager,
	locks *KeyedMutex,
	rules Rules,
	logger Logger,
) QuoteService {
	return &quoteServiceImpl{
		quoteRepo: quoteRepo,
		numbers:   numbers,
		txManager: txManager,
		machine:   lifecycle.ForQuotes(),
		locks:     locks,
		rules:     rules,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates the input, prices the quote and persists it in pending state.
func (s *quoteServiceImpl) Create(ctx context.Context, input CreateQuoteInput) (*entity.Quote, error) {
	if err := validateQuoteInput(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	priority := input.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}
	validUntil := now.AddDate(0, 0, s.rules.QuoteValidityDays)
	if input.ValidUntil != nil {
		validUntil = input.ValidUntil.UTC()
	}

	items := make([]entity.QuoteItem, 0, len(input.Items))
	for _, in := range input.Items {
		items = append(items, entity.QuoteItem{
			ProductName: in.ProductName,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			LineTotal:   in.Quantity * in.UnitPrice,
		})
	}

	quote := &entity.Quote{
		Customer:   input.Customer,
		Items:      items,
		Status:     entity.QuotePending,
		Priority:   priority,
		ValidUntil: validUntil,
		Message:    input.Message,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.price(quote)
	if err := s.checkTotals(quote); err != nil {
		return nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.Next(ctx, numbering.KindQuote, now)
		if err != nil {
			return err
		}
		quote.Number = number
		return s.quoteRepo.Create(ctx, quote)
	})
	if err != nil {
		s.logger.Error("Failed to create quote", "error", err)
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	s.logger.Info("Quote created", "id", quote.ID, "number", quote.Number, "total", quote.Total)
	return quote, nil
}

// Get returns the quote with its deadline-derived effective status.
func (s *quoteServiceImpl) Get(ctx context.Context, id int64) (*entity.Quote, error) {
	quote, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	quote.Status = quote.EffectiveStatus(s.now().UTC())
	return quote, nil
}

func (s *quoteServiceImpl) List(ctx context.Context, filter entity.QuoteFilter) ([]*entity.Quote, error) {
	quotes, err := s.quoteRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	now := s.now().UTC()
	for _, q := range quotes {
		q.Status = q.EffectiveStatus(now)
	}
	// Status filtering has to account for derived expiry, which the store
	// cannot see; re-filter after the effective status is applied.
	if filter.Status != "" {
		filtered := quotes[:0]
		for _, q := range quotes {
			if q.Status == filter.Status {
				filtered = append(filtered, q)
			}
		}
		quotes = filtered
	}
	return quotes, nil
}

func (s *quoteServiceImpl) Search(ctx context.Context, text string) ([]*entity.Quote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.NewValidation("q", "search text is required")
	}
	return s.List(ctx, entity.QuoteFilter{Search: text})
}

// UpdateStatus applies a lifecycle transition under the quote's exclusive lock.
// Transitions are validated against the deadline-derived effective status, so
// an expired quote cannot be accepted just because the expiry was never stored.
func (s *quoteServiceImpl) UpdateStatus(ctx context.Context, id int64, status entity.QuoteStatus) (*entity.Quote, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	quote, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	current := quote.EffectiveStatus(now)
	if err := s.machine.Validate(current, status); err != nil {
		return nil, err
	}

	switch status {
	case entity.QuoteSent:
		// Re-sending is idempotent: the timestamp marks the first send only.
		if quote.SentAt == nil {
			quote.SentAt = &now
		}
	case entity.QuoteAccepted, entity.QuoteRejected:
		quote.RespondedAt = &now
	}
	quote.Status = status
	quote.UpdatedAt = now

	if err := s.checkTotals(quote); err != nil {
		return nil, err
	}
	if err := s.quoteRepo.Update(ctx, quote); err != nil {
		s.logger.Error("Failed to update quote status", "id", id, "error", err)
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}

	s.logger.Info("Quote status updated", "id", id, "from", current, "to", status)
	return quote, nil
}

// UpdatePriority changes handling urgency. Priority is orthogonal to status and
// may change in any state.
func (s *quoteServiceImpl) UpdatePriority(ctx context.Context, id int64, priority entity.Priority) (*entity.Quote, error) {
	if !priority.IsValid() {
		return nil, apperr.NewValidation("priority", "unknown priority: "+priority.String())
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	quote, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	quote.Priority = priority
	quote.UpdatedAt = s.now().UTC()

	if err := s.quoteRepo.Update(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}
	return quote, nil
}

// AddNote replaces the internal notes. It never touches status.
func (s *quoteServiceImpl) AddNote(ctx context.Context, id int64, text string) (*entity.Quote, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	quote, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	quote.Notes = text
	quote.UpdatedAt = s.now().UTC()

	if err := s.quoteRepo.Update(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}
	return quote, nil
}

// Delete removes a quote. Invoiced quotes are read-only inputs to their invoice
// and cannot be deleted.
func (s *quoteServiceImpl) Delete(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	quote, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if quote.InvoiceID != nil {
		return apperr.NewInvalidTransition("quote", quote.Status.String(), "deleted")
	}
	if err := s.quoteRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	s.logger.Info("Quote deleted", "id", id, "number", quote.Number)
	return nil
}

// Duplicate creates an independent pending copy with a fresh number, cleared
// response timestamps and a reset validity deadline. The source is not touched.
func (s *quoteServiceImpl) Duplicate(ctx context.Context, id int64) (*entity.Quote, error) {
	source, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	copyItems := make([]entity.QuoteItem, len(source.Items))
	for i, item := range source.Items {
		copyItems[i] = entity.QuoteItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}

	dup := &entity.Quote{
		Customer:   source.Customer,
		Items:      copyItems,
		Status:     entity.QuotePending,
		Priority:   source.Priority,
		ValidUntil: now.AddDate(0, 0, s.rules.QuoteValidityDays),
		Message:    source.Message,
		Notes:      source.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.price(dup)
	if err := s.checkTotals(dup); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.Next(ctx, numbering.KindQuote, now)
		if err != nil {
			return err
		}
		dup.Number = number
		return s.quoteRepo.Create(ctx, dup)
	})
	if err != nil {
		s.logger.Error("Failed to duplicate quote", "source_id", id, "error", err)
		return nil, fmt.Errorf("failed to duplicate quote: %w", err)
	}

	s.logger.Info("Quote duplicated", "source_id", id, "id", dup.ID, "number", dup.Number)
	return dup, nil
}

// price fills subtotal, tax, shipping and total from the items.
func (s *quoteServiceImpl) price(q *entity.Quote) {
	q.Subtotal = q.ComputedSubtotal()
	q.Tax = money.Tax(q.Subtotal, s.rules.TaxRateBasisPoints)
	q.Shipping = s.rules.Shipping.Amount(q.Subtotal)
	q.Total = q.Subtotal + q.Tax + q.Shipping
}

// checkTotals enforces the totals invariant after every mutation. A violation
// is a bug: it is logged and surfaced, never re-rounded in place.
func (s *quoteServiceImpl) checkTotals(q *entity.Quote) error {
	expected := q.ComputedSubtotal()
	if q.Subtotal != expected || !money.Reconciles(q.Total, q.Subtotal, q.Tax, q.Shipping) {
		err := &apperr.ArithmeticInvariantError{Entity: "quote", Expected: expected + q.Tax + q.Shipping, Actual: q.Total}
		s.logger.Error("Quote totals do not reconcile",
			"id", q.ID, "subtotal", q.Subtotal, "tax", q.Tax, "shipping", q.Shipping, "total", q.Total)
		return err
	}
	return nil
}

func (s *quoteServiceImpl) load(ctx context.Context, id int64) (*entity.Quote, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote == nil {
		return nil, apperr.NewNotFound("quote", fmt.Sprintf("%d", id))
	}
	return quote, nil
}

func validateQuoteInput(input CreateQuoteInput) error {
	if strings.TrimSpace(input.Customer.Name) == "" {
		return apperr.NewValidation("customer.name", "customer name is required")
	}
	if strings.TrimSpace(input.Customer.Email) == "" {
		return apperr.NewValidation("customer.email", "customer email is required")
	}
	if err := utils.ValidateEmail(input.Customer.Email); err != nil {
		return apperr.NewValidation("customer.email", err.Error())
	}
	if len(input.Items) == 0 {
		return apperr.NewValidation("items", "at least one item is required")
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.ProductName) == "" {
			return apperr.NewValidation(fmt.Sprintf("items[%d].product_name", i), "product name is required")
		}
		if item.Quantity <= 0 {
			return apperr.NewValidation(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		if item.UnitPrice < 0 {
			return apperr.NewValidation(fmt.Sprintf("items[%d].unit_price", i), "unit price must not be negative")
		}
	}
	if input.Priority != "" && !input.Priority.IsValid() {
		return apperr.NewValidation("priority", "unknown priority: "+input.Priority.String())
	}
	return nil
}
