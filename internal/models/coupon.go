package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var maxDiscountPercent = decimal.NewFromInt(100)

// Coupon is a percentage discount applied to the cart subtotal
type Coupon struct {
	Code            string          `json:"code"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	DiscountPercent decimal.Decimal `json:"discount"`
}

// NormalizeCouponCode returns the canonical form used for case-insensitive lookups
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the coupon invariants
func (c Coupon) Validate() error {
	if NormalizeCouponCode(c.Code) == "" {
		return fmt.Errorf("coupon code is required")
	}
	if c.DiscountPercent.IsNegative() || c.DiscountPercent.GreaterThan(maxDiscountPercent) {
		return fmt.Errorf("discount %s must be between 0 and 100", c.DiscountPercent)
	}
	return nil
}
