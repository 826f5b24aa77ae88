package order

import "github.com/shopspring/decimal"

// PricingPolicy holds the server-side pricing rules applied to every order
type PricingPolicy struct {
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// DefaultPricingPolicy returns the standard platform pricing
// 7% tax, flat 50 shipping waived at a 1000 subtotal
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.NewFromFloat(0.07),
		ShippingFee:           decimal.NewFromInt(50),
		FreeShippingThreshold: decimal.NewFromInt(1000),
	}
}

// Price computes tax and shipping for the given subtotal
// Shipping is free once the subtotal reaches the threshold
func (p PricingPolicy) Price(subtotal decimal.Decimal) (tax, shipping decimal.Decimal) {
	tax = subtotal.Mul(p.TaxRate).Round(2)
	shipping = p.ShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return tax, shipping
}
