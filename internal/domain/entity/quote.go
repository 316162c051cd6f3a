package entity

import "time"

// QuoteStatus represents the lifecycle state of a quote.
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pending"
	QuoteSent     QuoteStatus = "sent"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

var validQuoteStatuses = map[QuoteStatus]bool{
	QuotePending:  true,
	QuoteSent:     true,
	QuoteAccepted: true,
	QuoteRejected: true,
	QuoteExpired:  true,
}

var terminalQuoteStatuses = map[QuoteStatus]bool{
	QuoteAccepted: true,
	QuoteRejected: true,
	QuoteExpired:  true,
}

// IsValid returns true if the status is a known quote status.
func (s QuoteStatus) IsValid() bool { return validQuoteStatuses[s] }

// IsTerminal returns true if no transition leaves this status.
func (s QuoteStatus) IsTerminal() bool { return terminalQuoteStatuses[s] }

// String returns the string representation of the status.
func (s QuoteStatus) String() string { return string(s) }

// Priority classifies a quote's handling urgency. Orthogonal to status.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// IsValid returns true if the priority is a known value.
func (p Priority) IsValid() bool { return validPriorities[p] }

func (p Priority) String() string { return string(p) }

// CustomerSnapshot is a point-in-time copy of customer contact data. It is copied,
// not referenced, so historical documents stay stable if the customer record changes.
type CustomerSnapshot struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Establishment string `json:"establishment"`
	City          string `json:"city"`
}

// QuoteItem is a priced line on a quote. Product name is a snapshot, not a live
// reference. LineTotal is always Quantity * UnitPrice in minor currency units.
type QuoteItem struct {
	ID          int64  `json:"id"`
	QuoteID     int64  `json:"-"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

// Quote is a priced, non-binding proposal subject to acceptance before a deadline.
// All monetary fields are int64 minor currency units; Total = Subtotal + Tax + Shipping.
type Quote struct {
	ID          int64            `json:"id"`
	Number      string           `json:"number"`
	Customer    CustomerSnapshot `json:"customer"`
	Items       []QuoteItem      `json:"items"`
	Subtotal    int64            `json:"subtotal"`
	Tax         int64            `json:"tax"`
	Shipping    int64            `json:"shipping"`
	Total       int64            `json:"total"`
	Status      QuoteStatus      `json:"status"`
	Priority    Priority         `json:"priority"`
	ValidUntil  time.Time        `json:"valid_until"`
	Message     string           `json:"message,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	InvoiceID   *int64           `json:"invoice_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	SentAt      *time.Time       `json:"sent_at,omitempty"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
}

// EffectiveStatus reports the status as of now. A pending or sent quote whose
// validity deadline has passed reads as expired even if the transition was
// never written; expiry is a derived fact, not necessarily a stored one.
func (q *Quote) EffectiveStatus(now time.Time) QuoteStatus {
	if (q.Status == QuotePending || q.Status == QuoteSent) && now.After(q.ValidUntil) {
		return QuoteExpired
	}
	return q.Status
}

// ComputedSubtotal sums the line totals of all items.
func (q *Quote) ComputedSubtotal() int64 {
	var sum int64
	for _, item := range q.Items {
		sum += item.LineTotal
	}
	return sum
}
