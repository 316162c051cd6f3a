// Package money implements minor-unit currency arithmetic.
//
// All amounts are int64 values in the smallest unit of the configured currency.
// Intermediate tax and shipping computations round half-up to the nearest unit
// before summing, so totals always reconcile exactly with their parts.
package money

// DefaultTaxRateBasisPoints is the process-wide default tax rate (18%).
const DefaultTaxRateBasisPoints = 1800

// Tax computes the tax amount for a subtotal at the given rate in basis points,
// rounding half-up. Tax is always computed forward from the subtotal, never
// backed out of a gross total.
func Tax(subtotal int64, rateBasisPoints int64) int64 {
	return DivHalfUp(subtotal*rateBasisPoints, 10000)
}

// DivHalfUp divides num by den rounding half-up. den must be positive.
func DivHalfUp(num, den int64) int64 {
	if num >= 0 {
		return (num + den/2) / den
	}
	return -((-num + den/2) / den)
}

// ShippingPolicy decides the shipping amount for an order subtotal.
// Shipping is zero at or above the free-shipping threshold, otherwise flat.
type ShippingPolicy struct {
	FreeThreshold int64
	FlatAmount    int64
}

// Amount returns the shipping charge for the given subtotal.
func (p ShippingPolicy) Amount(subtotal int64) int64 {
	if p.FreeThreshold > 0 && subtotal >= p.FreeThreshold {
		return 0
	}
	return p.FlatAmount
}

// Reconciles reports whether total equals subtotal + tax + shipping.
func Reconciles(total, subtotal, tax, shipping int64) bool {
	return total == subtotal+tax+shipping
}
