// Package cart implements the cart ledger: the authoritative list of line
// items for one user's cart and the pricing derived from it.
package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// CouponLookup resolves a coupon code against the coupon store
type CouponLookup interface {
	Lookup(ctx context.Context, code string) (models.Coupon, error)
}

// State is the serializable content of a ledger, used by remote cart stores
type State struct {
	Lines           []models.CartLine `json:"lines"`
	CouponCode      string            `json:"couponCode,omitempty"`
	DiscountPercent decimal.Decimal   `json:"discountPercent"`
}

// Frozen is the cart content captured when a checkout takes hold of the ledger
type Frozen struct {
	Lines      []models.CartLine
	Pricing    models.CartPricing
	CouponCode string
}

// Ledger owns the line items of a single cart.
// All mutations are rejected with ErrCheckoutInProgress while frozen.
type Ledger struct {
	mu              sync.Mutex
	policy          PricingPolicy
	coupons         CouponLookup
	lines           []models.CartLine
	couponCode      string
	discountPercent decimal.Decimal
	frozen          bool
	couponSeq       uint64
}

// NewLedger creates an empty ledger priced with policy.
// coupons may be nil, in which case every coupon is unknown.
func NewLedger(policy PricingPolicy, coupons CouponLookup) *Ledger {
	return &Ledger{
		policy:          policy,
		coupons:         coupons,
		discountPercent: decimal.Zero,
	}
}

// QuantityFromFloat converts a client supplied number into a quantity
func QuantityFromFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("quantity %v: %w", f, apperr.ErrInvalidQuantity)
	}
	// Larger values are still valid requests; stock clamps them later.
	if f > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(f), nil
}

// AddItem puts quantity units of product into the cart, creating the line if needed.
// The resulting quantity is clamped to the product's stock.
func (l *Ledger) AddItem(product models.Product, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return apperr.ErrCheckoutInProgress
	}
	if quantity < 0 {
		return fmt.Errorf("quantity %d: %w", quantity, apperr.ErrInvalidQuantity)
	}

	if i := l.indexOf(product.ID); i >= 0 {
		line := l.lines[i]
		line.AvailableStock = product.Stock
		line.UnitPrice = product.UnitPrice()
		line.Name = product.Name
		l.setLine(i, line, line.Quantity+quantity)
		return nil
	}

	q := clamp(quantity, product.Stock)
	if q == 0 {
		return nil
	}

	l.lines = append(l.lines, models.CartLine{
		ProductID:      product.ID,
		Name:           product.Name,
		UnitPrice:      product.UnitPrice(),
		Quantity:       q,
		AvailableStock: product.Stock,
	})
	return nil
}

// SetQuantity replaces the quantity of an existing line.
// The value is clamped to [0, available stock]; zero removes the line.
func (l *Ledger) SetQuantity(productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return apperr.ErrCheckoutInProgress
	}
	if quantity < 0 {
		return fmt.Errorf("quantity %d: %w", quantity, apperr.ErrInvalidQuantity)
	}

	i := l.indexOf(productID)
	if i < 0 {
		return fmt.Errorf("product %s: %w", productID, apperr.ErrLineNotFound)
	}

	l.setLine(i, l.lines[i], quantity)
	return nil
}

// RemoveLine deletes the line for productID; absent lines are ignored
func (l *Ledger) RemoveLine(productID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return apperr.ErrCheckoutInProgress
	}

	if i := l.indexOf(productID); i >= 0 {
		l.removeAt(i)
	}
	return nil
}

// ApplyCoupon looks code up case-insensitively and applies its discount.
// Any failure resets the discount to zero so a stale coupon never survives,
// and a lookup overtaken by a newer call is not applied.
func (l *Ledger) ApplyCoupon(ctx context.Context, code string) (models.Coupon, error) {
	l.mu.Lock()
	frozen := l.frozen
	l.couponSeq++
	seq := l.couponSeq
	l.mu.Unlock()
	if frozen {
		return models.Coupon{}, apperr.ErrCheckoutInProgress
	}

	normalized := models.NormalizeCouponCode(code)

	var (
		coupon models.Coupon
		err    error
	)
	switch {
	case normalized == "":
		err = apperr.ErrCouponNotFound
	case l.coupons == nil:
		err = apperr.ErrCouponNotFound
	default:
		coupon, err = l.coupons.Lookup(ctx, normalized)
	}
	if err == nil {
		if verr := coupon.Validate(); verr != nil {
			err = apperr.NewFailure(apperr.ErrCouponNotFound, verr.Error())
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// The checkout may have started while the lookup was in flight.
	if l.frozen {
		return models.Coupon{}, apperr.ErrCheckoutInProgress
	}
	// A newer ApplyCoupon owns the discount now.
	if seq != l.couponSeq {
		return models.Coupon{}, apperr.NewFailure(apperr.ErrCouponNotFound, fmt.Sprintf("coupon %q superseded by a newer one", code))
	}

	if err != nil {
		l.couponCode = ""
		l.discountPercent = decimal.Zero
		if errors.Is(err, apperr.ErrCouponNotFound) {
			return models.Coupon{}, fmt.Errorf("coupon %q: %w", code, err)
		}
		return models.Coupon{}, fmt.Errorf("lookup coupon %q: %w", code, err)
	}

	l.couponCode = models.NormalizeCouponCode(coupon.Code)
	l.discountPercent = coupon.DiscountPercent
	return coupon, nil
}

// Pricing computes the current totals
func (l *Ledger) Pricing() models.CartPricing {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ComputePricing(l.lines, l.discountPercent, l.policy)
}

// Lines returns a copy of the current lines in insertion order
func (l *Ledger) Lines() []models.CartLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyLines(l.lines)
}

// Line returns the line for productID
func (l *Ledger) Line(productID string) (models.CartLine, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(productID); i >= 0 {
		return l.lines[i], true
	}
	return models.CartLine{}, false
}

// CouponCode returns the applied coupon code or ""
func (l *Ledger) CouponCode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.couponCode
}

// IsFrozen reports whether a checkout currently holds the ledger
func (l *Ledger) IsFrozen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frozen
}

// Freeze captures the cart for checkout and rejects further mutations
func (l *Ledger) Freeze() (Frozen, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return Frozen{}, apperr.ErrCheckoutInProgress
	}
	if len(l.lines) == 0 {
		return Frozen{}, apperr.ErrEmptyCart
	}

	l.frozen = true
	return Frozen{
		Lines:      copyLines(l.lines),
		Pricing:    ComputePricing(l.lines, l.discountPercent, l.policy),
		CouponCode: l.couponCode,
	}, nil
}

// Unfreeze releases the ledger back to the user, content untouched
func (l *Ledger) Unfreeze() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozen = false
}

// Clear empties the cart and drops the coupon. It is used once an order is recorded.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
	l.couponCode = ""
	l.discountPercent = decimal.Zero
}

// State exports the ledger content
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Lines:           copyLines(l.lines),
		CouponCode:      l.couponCode,
		DiscountPercent: l.discountPercent,
	}
}

// Restore replaces the ledger content with a previously exported state
func (l *Ledger) Restore(s State) error {
	for _, line := range s.Lines {
		if line.Quantity <= 0 || line.Quantity > line.AvailableStock {
			return fmt.Errorf("restore line %s quantity %d: %w", line.ProductID, line.Quantity, apperr.ErrInvalidQuantity)
		}
	}
	if s.DiscountPercent.IsNegative() || s.DiscountPercent.GreaterThan(hundred) {
		return fmt.Errorf("restore discount %s: %w", s.DiscountPercent, apperr.ErrInvalidCoupon)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.frozen {
		return apperr.ErrCheckoutInProgress
	}
	l.lines = copyLines(s.Lines)
	l.couponCode = s.CouponCode
	l.discountPercent = s.DiscountPercent
	return nil
}

func (l *Ledger) setLine(i int, line models.CartLine, quantity int) {
	q := clamp(quantity, line.AvailableStock)
	if q == 0 {
		l.removeAt(i)
		return
	}
	line.Quantity = q
	l.lines[i] = line
}

func (l *Ledger) indexOf(productID string) int {
	for i, line := range l.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (l *Ledger) removeAt(i int) {
	l.lines = append(l.lines[:i:i], l.lines[i+1:]...)
}

func clamp(quantity, stock int) int {
	if stock < 0 {
		stock = 0
	}
	if quantity > stock {
		return stock
	}
	if quantity < 0 {
		return 0
	}
	return quantity
}

func copyLines(lines []models.CartLine) []models.CartLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]models.CartLine, len(lines))
	copy(out, lines)
	return out
}
