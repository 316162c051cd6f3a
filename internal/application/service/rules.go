package service

import "github.com/ormeda/labdesk/internal/domain/money"

// Rules carries the injected commercial policy: tax rate, shipping, payment
// terms and quote validity. It comes from configuration, never from constants
// buried in the services.
type Rules struct {
	TaxRateBasisPoints int64
	Shipping           money.ShippingPolicy
	PaymentTermsDays   int
	QuoteValidityDays  int
}

// DefaultRules returns the stock policy: 18% tax, no free-shipping threshold,
// 30-day payment terms, 30-day quote validity.
func DefaultRules() Rules {
	return Rules{
		TaxRateBasisPoints: money.DefaultTaxRateBasisPoints,
		PaymentTermsDays:   30,
		QuoteValidityDays:  30,
	}
}
