package models

import "github.com/shopspring/decimal"

// CartLine is a single product in a user's cart
type CartLine struct {
	ProductID      string          `json:"productId"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int             `json:"quantity"`
	AvailableStock int             `json:"availableStock"`
}

// LineSubtotal returns unitPrice * quantity
func (l CartLine) LineSubtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartPricing is derived from the cart lines and never persisted
type CartPricing struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`
	Currency        string          `json:"currency"`
}

// Equal reports whether two pricings carry the same amounts
func (p CartPricing) Equal(o CartPricing) bool {
	return p.Subtotal.Equal(o.Subtotal) &&
		p.Tax.Equal(o.Tax) &&
		p.DeliveryFee.Equal(o.DeliveryFee) &&
		p.DiscountPercent.Equal(o.DiscountPercent) &&
		p.DiscountAmount.Equal(o.DiscountAmount) &&
		p.GrandTotal.Equal(o.GrandTotal) &&
		p.Currency == o.Currency
}
