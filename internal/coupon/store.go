// Package coupon resolves coupon codes to percentage discounts.
package coupon

import (
	"context"

	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
)

// Store looks up a coupon by code. Lookups are case-insensitive and
// return apperr.ErrCouponNotFound for unknown codes.
type Store interface {
	Lookup(ctx context.Context, code string) (models.Coupon, error)
}

var (
	_ Store = (*Catalog)(nil)
	_ Store = (*RemoteStore)(nil)
)
