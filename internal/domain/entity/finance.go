package entity

import "time"

// EntryType classifies a financial ledger line.
type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

var validEntryTypes = map[EntryType]bool{
	EntryIncome:  true,
	EntryExpense: true,
}

// IsValid returns true if the type is a known entry type.
func (t EntryType) IsValid() bool { return validEntryTypes[t] }

func (t EntryType) String() string { return string(t) }

// FinancialEntry is one atomic, immutable ledger line. Income entries carry
// positive amounts and expense entries negative ones. Entries are never edited
// in place; corrections are compensating entries, so historical aggregates
// stay reproducible.
type FinancialEntry struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Type        EntryType `json:"type"`
	InvoiceID   *int64    `json:"invoice_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PeriodStats is an ephemeral, computed roll-up scoped to a period filter.
// It is never persisted.
type PeriodStats struct {
	Revenue        int64   `json:"revenue"`
	Expenses       int64   `json:"expenses"`
	NetProfit      int64   `json:"net_profit"`
	OrderCount     int64   `json:"order_count"`
	QuoteCount     int64   `json:"quote_count"`
	AcceptedQuotes int64   `json:"accepted_quotes"`
	ConversionRate float64 `json:"conversion_rate"`
	AvgOrderValue  int64   `json:"avg_order_value"`
}

// SalesPoint is one bucket in a sales-by-period series.
type SalesPoint struct {
	Label      string `json:"label"`
	Revenue    int64  `json:"revenue"`
	OrderCount int64  `json:"order_count"`
}

// DashboardSnapshot is a periodically recomputed roll-up of the ranges the
// dashboard shows. It is a read-side cache over committed data only.
type DashboardSnapshot struct {
	Today       *PeriodStats `json:"today"`
	ThisMonth   *PeriodStats `json:"this_month"`
	RefreshedAt time.Time    `json:"refreshed_at"`
}
