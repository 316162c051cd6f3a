package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ormeda/labdesk/internal/domain/entity"
	"github.com/ormeda/labdesk/internal/numbering"
)

// In-memory fakes implementing the port interfaces, shared by the service tests.

type memTxManager struct{}

func (memTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memCounterRepo struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (m *memCounterRepo) Next(ctx context.Context, kind, dateKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[kind+"/"+dateKey]++
	return m.counters[kind+"/"+dateKey], nil
}

type memQuoteRepo struct {
	mu     sync.Mutex
	nextID int64
	quotes map[int64]*entity.Quote
}

func newMemQuoteRepo() *memQuoteRepo {
	return &memQuoteRepo{quotes: make(map[int64]*entity.Quote)}
}

func (m *memQuoteRepo) Create(ctx context.Context, q *entity.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	q.ID = m.nextID
	copied := *q
	m.quotes[q.ID] = &copied
	return nil
}

func (m *memQuoteRepo) GetByID(ctx context.Context, id int64) (*entity.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, nil
	}
	copied := *q
	copied.Items = append([]entity.QuoteItem(nil), q.Items...)
	return &copied, nil
}

func (m *memQuoteRepo) List(ctx context.Context, filter entity.QuoteFilter) ([]*entity.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Quote
	for _, q := range m.quotes {
		if filter.Priority != "" && q.Priority != filter.Priority {
			continue
		}
		if !filter.Created.Contains(q.CreatedAt) {
			continue
		}
		if filter.Search != "" && !quoteMatches(q, filter.Search) {
			continue
		}
		copied := *q
		out = append(out, &copied)
	}
	return out, nil
}

func quoteMatches(q *entity.Quote, text string) bool {
	text = strings.ToLower(text)
	if strings.Contains(strings.ToLower(q.Number), text) ||
		strings.Contains(strings.ToLower(q.Customer.Name), text) ||
		strings.Contains(strings.ToLower(q.Customer.Establishment), text) {
		return true
	}
	for _, item := range q.Items {
		if strings.Contains(strings.ToLower(item.ProductName), text) {
			return true
		}
	}
	return false
}

func (m *memQuoteRepo) Update(ctx context.Context, q *entity.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *q
	m.quotes[q.ID] = &copied
	return nil
}

func (m *memQuoteRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quotes, id)
	return nil
}

func (m *memQuoteRepo) CountByRange(ctx context.Context, r entity.DateRange) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, accepted int64
	for _, q := range m.quotes {
		if !r.Contains(q.CreatedAt) {
			continue
		}
		total++
		if q.Status == entity.QuoteAccepted {
			accepted++
		}
	}
	return total, accepted, nil
}

type memInvoiceRepo struct {
	mu       sync.Mutex
	nextID   int64
	invoices map[int64]*entity.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[int64]*entity.Invoice)}
}

func (m *memInvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	inv.ID = m.nextID
	copied := *inv
	m.invoices[inv.ID] = &copied
	return nil
}

func (m *memInvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	copied := *inv
	copied.Items = append([]entity.InvoiceItem(nil), inv.Items...)
	return &copied, nil
}

func (m *memInvoiceRepo) GetByQuoteID(ctx context.Context, quoteID int64) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.QuoteID == quoteID {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memInvoiceRepo) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range m.invoices {
		if !filter.Issued.Contains(inv.IssueDate) {
			continue
		}
		copied := *inv
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memInvoiceRepo) UpdateStatus(ctx context.Context, id int64, status entity.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invoices[id]; ok {
		inv.Status = status
	}
	return nil
}

func (m *memInvoiceRepo) UpdateDeliveryStatus(ctx context.Context, id int64, status entity.DeliveryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invoices[id]; ok {
		inv.DeliveryStatus = status
	}
	return nil
}

func (m *memInvoiceRepo) CountIssued(ctx context.Context, r entity.DateRange) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, inv := range m.invoices {
		if inv.Status == entity.InvoiceCancelled {
			continue
		}
		if r.Contains(inv.IssueDate) {
			n++
		}
	}
	return n, nil
}

type memTransactionRepo struct {
	mu     sync.Mutex
	nextID int64
	txs    map[int64]*entity.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{txs: make(map[int64]*entity.Transaction)}
}

func (m *memTransactionRepo) Create(ctx context.Context, tx *entity.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	tx.ID = m.nextID
	copied := *tx
	m.txs[tx.ID] = &copied
	return nil
}

func (m *memTransactionRepo) GetByID(ctx context.Context, id int64) (*entity.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, nil
	}
	copied := *tx
	return &copied, nil
}

func (m *memTransactionRepo) GetByInvoiceID(ctx context.Context, invoiceID int64) ([]*entity.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Transaction
	for _, tx := range m.txs {
		if tx.InvoiceID == invoiceID {
			copied := *tx
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memTransactionRepo) List(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Transaction
	for _, tx := range m.txs {
		if filter.InvoiceID != 0 && tx.InvoiceID != filter.InvoiceID {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.Method != "" && tx.Method != filter.Method {
			continue
		}
		if !filter.Date.Contains(tx.Date) {
			continue
		}
		copied := *tx
		out = append(out, &copied)
	}
	return out, nil
}

type memEntryRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []*entity.FinancialEntry
}

func (m *memEntryRepo) Create(ctx context.Context, e *entity.FinancialEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	copied := *e
	m.entries = append(m.entries, &copied)
	return nil
}

func (m *memEntryRepo) List(ctx context.Context, filter entity.EntryFilter) ([]*entity.FinancialEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.FinancialEntry
	for _, e := range m.entries {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if !filter.Date.Contains(e.Date) {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

// fixture wires a full in-memory engine for service tests.
type fixture struct {
	quotes   *memQuoteRepo
	invoices *memInvoiceRepo
	txs      *memTransactionRepo
	entries  *memEntryRepo
	numbers  *numbering.Service

	quoteLocks   *KeyedMutex
	invoiceLocks *KeyedMutex

	quoteSvc   QuoteService
	invoiceSvc InvoiceService
	ledgerSvc  LedgerService
	statsSvc   StatsService
}

func newFixture(rules Rules, now func() time.Time) *fixture {
	f := &fixture{
		quotes:       newMemQuoteRepo(),
		invoices:     newMemInvoiceRepo(),
		txs:          newMemTransactionRepo(),
		entries:      &memEntryRepo{},
		numbers:      numbering.New(&memCounterRepo{}),
		quoteLocks:   NewKeyedMutex(),
		invoiceLocks: NewKeyedMutex(),
	}
	tm := memTxManager{}
	logger := nopLogger{}

	f.quoteSvc = NewQuoteService(f.quotes, f.numbers, tm, f.quoteLocks, rules, logger)
	f.invoiceSvc = NewInvoiceService(f.invoices, f.quotes, f.txs, f.numbers, tm, f.quoteLocks, f.invoiceLocks, rules, logger)
	f.ledgerSvc = NewLedgerService(f.txs, f.invoices, f.entries, tm, f.invoiceLocks, logger)
	f.statsSvc = NewStatsService(f.entries, f.quotes, f.invoices, tm, logger)

	if now != nil {
		f.quoteSvc.(*quoteServiceImpl).now = now
		f.invoiceSvc.(*invoiceServiceImpl).now = now
		f.ledgerSvc.(*ledgerServiceImpl).now = now
	}
	return f
}
