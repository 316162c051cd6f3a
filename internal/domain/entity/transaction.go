package entity

import "time"

// TransactionStatus is the state of a single payment event. It is independent of
// the invoice's derived status.
type TransactionStatus string

const (
	TransactionPaid     TransactionStatus = "paid"
	TransactionPending  TransactionStatus = "pending"
	TransactionFailed   TransactionStatus = "failed"
	TransactionRefunded TransactionStatus = "refunded"
)

var validTransactionStatuses = map[TransactionStatus]bool{
	TransactionPaid:     true,
	TransactionPending:  true,
	TransactionFailed:   true,
	TransactionRefunded: true,
}

// IsValid returns true if the status is a known transaction status.
func (s TransactionStatus) IsValid() bool { return validTransactionStatuses[s] }

func (s TransactionStatus) String() string { return string(s) }

// PaymentMethod is the channel a payment was made through.
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodCash         PaymentMethod = "cash"
	MethodCheck        PaymentMethod = "check"
	MethodOnline       PaymentMethod = "online"
)

var validPaymentMethods = map[PaymentMethod]bool{
	MethodBankTransfer: true,
	MethodCreditCard:   true,
	MethodCash:         true,
	MethodCheck:        true,
	MethodOnline:       true,
}

// IsValid returns true if the method is a known payment method.
func (m PaymentMethod) IsValid() bool { return validPaymentMethods[m] }

func (m PaymentMethod) String() string { return string(m) }

// Transaction is a single recorded payment event against exactly one invoice.
// The ledger is append-only: transactions are never edited or deleted. A
// refunded transaction references the paid transaction it compensates through
// RefundOf; each paid transaction may be referenced at most once.
type Transaction struct {
	ID          int64             `json:"id"`
	InvoiceID   int64             `json:"invoice_id"`
	Date        time.Time         `json:"date"`
	Amount      int64             `json:"amount"`
	Method      PaymentMethod     `json:"method"`
	Provider    string            `json:"provider,omitempty"`
	ExternalRef string            `json:"external_ref,omitempty"`
	Status      TransactionStatus `json:"status"`
	RefundOf    *int64            `json:"refund_of,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
