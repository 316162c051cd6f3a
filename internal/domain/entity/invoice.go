package entity

import "time"

// InvoiceStatus represents the payment state of an invoice. Except for cancelled,
// it is derived from the invoice's transactions and due date, never set directly.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

var validInvoiceStatuses = map[InvoiceStatus]bool{
	InvoicePending:   true,
	InvoicePaid:      true,
	InvoiceOverdue:   true,
	InvoiceCancelled: true,
}

// IsValid returns true if the status is a known invoice status.
func (s InvoiceStatus) IsValid() bool { return validInvoiceStatuses[s] }

func (s InvoiceStatus) String() string { return string(s) }

// DeliveryStatus tracks the fire-and-forget delivery side effect of an invoice.
// It never feeds back into the payment state machine.
type DeliveryStatus string

const (
	DeliveryNotSent DeliveryStatus = "not_sent"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// InvoiceItem is a line item copied verbatim from the source document at
// derivation time.
type InvoiceItem struct {
	ID          int64  `json:"id"`
	InvoiceID   int64  `json:"-"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

// Invoice is a binding payment request derived from an accepted quote. Its total
// is fixed at issue time and never recomputed; a change requires a new invoice.
type Invoice struct {
	ID             int64            `json:"id"`
	Number         string           `json:"number"`
	QuoteID        int64            `json:"quote_id"`
	Customer       CustomerSnapshot `json:"customer"`
	Items          []InvoiceItem    `json:"items"`
	Subtotal       int64            `json:"subtotal"`
	Tax            int64            `json:"tax"`
	Shipping       int64            `json:"shipping"`
	Total          int64            `json:"total"`
	Status         InvoiceStatus    `json:"status"`
	DeliveryStatus DeliveryStatus   `json:"delivery_status"`
	IssueDate      time.Time        `json:"issue_date"`
	DueDate        time.Time        `json:"due_date"`
	Notes          string           `json:"notes,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ResolveInvoiceStatus derives an invoice's displayed status from its transactions
// and due date. Cancelled is sticky: it is only ever set by an explicit cancel
// operation and no payment outcome moves it.
//
// The effective paid amount is the sum of paid transaction amounts minus the sum
// of refunded transaction amounts; refunds are subtracted, never deleted.
func ResolveInvoiceStatus(inv *Invoice, txs []*Transaction, now time.Time) InvoiceStatus {
	if inv.Status == InvoiceCancelled {
		return InvoiceCancelled
	}
	if EffectivePaid(txs) >= inv.Total {
		return InvoicePaid
	}
	if now.After(inv.DueDate) {
		return InvoiceOverdue
	}
	return InvoicePending
}

// EffectivePaid returns the recognized paid amount across a set of transactions.
func EffectivePaid(txs []*Transaction) int64 {
	var paid int64
	for _, tx := range txs {
		switch tx.Status {
		case TransactionPaid:
			paid += tx.Amount
		case TransactionRefunded:
			paid -= tx.Amount
		}
	}
	return paid
}

// Outstanding returns the unpaid balance, floored at zero so overpayment never
// surfaces as a negative remainder.
func (i *Invoice) Outstanding(txs []*Transaction) int64 {
	remaining := i.Total - EffectivePaid(txs)
	if remaining < 0 {
		return 0
	}
	return remaining
}
