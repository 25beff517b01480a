package cart

import (
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PricingPolicy holds the store-wide pricing rules applied to every cart
type PricingPolicy struct {
	TaxPerItem  decimal.Decimal // flat VAT charged per unit
	DeliveryFee decimal.Decimal // flat fee charged when the cart has any line
	Currency    string
}

// DefaultPricingPolicy returns the storefront's canonical rules: 10 per unit VAT and 60 delivery
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxPerItem:  decimal.NewFromInt(10),
		DeliveryFee: decimal.NewFromInt(60),
		Currency:    "BDT",
	}
}

// ComputePricing derives the cart totals from lines and the applied discount.
// It has no side effects and returns identical results for identical input.
func ComputePricing(lines []models.CartLine, discountPercent decimal.Decimal, policy PricingPolicy) models.CartPricing {
	subtotal := decimal.Zero
	units := int64(0)
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineSubtotal())
		units += int64(line.Quantity)
	}

	tax := policy.TaxPerItem.Mul(decimal.NewFromInt(units))

	delivery := decimal.Zero
	if len(lines) > 0 {
		delivery = policy.DeliveryFee
	}

	// Tax and delivery are never discounted.
	discount := subtotal.Mul(discountPercent).Div(hundred).Round(2)

	grand := subtotal.Add(tax).Add(delivery).Sub(discount).Round(2)
	if grand.IsNegative() {
		grand = decimal.Zero
	}

	return models.CartPricing{
		Subtotal:        subtotal,
		Tax:             tax,
		DeliveryFee:     delivery,
		DiscountPercent: discountPercent,
		DiscountAmount:  discount,
		GrandTotal:      grand,
		Currency:        policy.Currency,
	}
}
