package entity

import "time"

// DateRange is a half-open interval [Start, End) in UTC. Zero ends are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End) {
		return false
	}
	return true
}

// QuoteFilter narrows quote listings. Zero values match everything.
type QuoteFilter struct {
	Status   QuoteStatus
	Priority Priority
	Created  DateRange
	Search   string
	Limit    int
	Offset   int
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	Status InvoiceStatus
	Issued DateRange
	Search string
	Limit  int
	Offset int
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	InvoiceID int64
	Status    TransactionStatus
	Method    PaymentMethod
	Date      DateRange
	Limit     int
	Offset    int
}

// EntryFilter narrows financial-entry scans.
type EntryFilter struct {
	Type EntryType
	Date DateRange
}
