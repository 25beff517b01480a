package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a paid checkout as handed to the order store
type Order struct {
	ID               string          `json:"id"`
	UserEmail        string          `json:"userEmail"`
	Lines            []CartLine      `json:"lines"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	DeliveryFee      decimal.Decimal `json:"deliveryFee"`
	Discount         decimal.Decimal `json:"discount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Currency         string          `json:"currency"`
	CouponCode       string          `json:"couponCode,omitempty"`
	PaymentReference string          `json:"paymentReference"`
	CreatedAt        time.Time       `json:"createdAt"`
}
