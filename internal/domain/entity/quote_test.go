package entity

import (
	"testing"
	"time"
)

func TestQuote_EffectiveStatus(t *testing.T) {
	deadline := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	before := deadline.Add(-time.Hour)
	after := deadline.Add(time.Hour)

	tests := []struct {
		name     string
		status   QuoteStatus
		now      time.Time
		expected QuoteStatus
	}{
		{"pending before deadline", QuotePending, before, QuotePending},
		{"pending past deadline reads expired", QuotePending, after, QuoteExpired},
		{"sent past deadline reads expired", QuoteSent, after, QuoteExpired},
		{"accepted never expires", QuoteAccepted, after, QuoteAccepted},
		{"rejected never expires", QuoteRejected, after, QuoteRejected},
		{"stored expired stays expired", QuoteExpired, before, QuoteExpired},
		{"exactly at deadline not yet expired", QuotePending, deadline, QuotePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &Quote{Status: tt.status, ValidUntil: deadline}
			if got := q.EffectiveStatus(tt.now); got != tt.expected {
				t.Errorf("EffectiveStatus() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestQuote_ComputedSubtotal(t *testing.T) {
	q := &Quote{Items: []QuoteItem{
		{Quantity: 25, UnitPrice: 8500, LineTotal: 212500},
		{Quantity: 2, UnitPrice: 280000, LineTotal: 560000},
	}}
	if got := q.ComputedSubtotal(); got != 772500 {
		t.Errorf("ComputedSubtotal() = %d, want 772500", got)
	}
}

func TestEnums_IsValid(t *testing.T) {
	if !QuotePending.IsValid() || QuoteStatus("draft").IsValid() {
		t.Error("QuoteStatus.IsValid() misclassifies")
	}
	if !PriorityUrgent.IsValid() || Priority("asap").IsValid() {
		t.Error("Priority.IsValid() misclassifies")
	}
	if !MethodCreditCard.IsValid() || PaymentMethod("barter").IsValid() {
		t.Error("PaymentMethod.IsValid() misclassifies")
	}
	if !TransactionRefunded.IsValid() || TransactionStatus("void").IsValid() {
		t.Error("TransactionStatus.IsValid() misclassifies")
	}
	if !EntryExpense.IsValid() || EntryType("transfer").IsValid() {
		t.Error("EntryType.IsValid() misclassifies")
	}
}

func TestQuoteStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   QuoteStatus
		expected bool
	}{
		{QuotePending, false},
		{QuoteSent, false},
		{QuoteAccepted, true},
		{QuoteRejected, true},
		{QuoteExpired, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.expected {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.expected)
		}
	}
}
