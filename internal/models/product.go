package models

import "github.com/shopspring/decimal"

// Product represents a catalog item that can be added to a cart
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Price      decimal.Decimal `json:"price"`
	OfferPrice decimal.Decimal `json:"offerPrice,omitempty"`
	Stock      int             `json:"quantity"`
}

// UnitPrice is the offer price when one is set, otherwise the list price
func (p Product) UnitPrice() decimal.Decimal {
	if p.OfferPrice.IsPositive() {
		return p.OfferPrice
	}
	return p.Price
}
