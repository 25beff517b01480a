// Package apperr defines the error taxonomy shared by the cart ledger,
// the checkout orchestrator and the HTTP layer.
//
// Every error returned by the core wraps exactly one sentinel below, so
// callers classify with errors.Is and the UI can show the reason category.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCheckoutInProgress = errors.New("checkout in progress")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrPaymentError       = errors.New("payment error")
	ErrTimeout            = errors.New("payment timed out")
	ErrOrderPersistence   = errors.New("order persistence failed after payment")

	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrLineNotFound      = errors.New("cart line not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrCheckoutCancelled = errors.New("checkout cancelled")
	ErrNoActiveCheckout  = errors.New("no active checkout")
	ErrInvalidCoupon     = errors.New("invalid coupon")
	ErrCouponExists      = errors.New("coupon already exists")
)

// Failure attaches a collaborator-supplied reason to one of the sentinels.
type Failure struct {
	Err    error
	Reason string
}

func (f *Failure) Error() string {
	if f.Reason == "" {
		return f.Err.Error()
	}
	return fmt.Sprintf("%s: %s", f.Err, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// Kind returns the classification of the failure.
func (f *Failure) Kind() string { return Kind(f.Err) }

// NewFailure wraps sentinel with reason.
func NewFailure(sentinel error, reason string) *Failure {
	return &Failure{Err: sentinel, Reason: reason}
}

// Reason extracts the collaborator reason from err, if any.
func Reason(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}

// Kind maps err to a stable category string.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrCouponNotFound):
		return "coupon_not_found"
	case errors.Is(err, ErrInvalidCoupon):
		return "invalid_coupon"
	case errors.Is(err, ErrCouponExists):
		return "coupon_exists"
	case errors.Is(err, ErrCheckoutInProgress):
		return "checkout_in_progress"
	case errors.Is(err, ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, ErrPaymentError):
		return "payment_error"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrOrderPersistence):
		return "reconciliation_needed"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrLineNotFound):
		return "line_not_found"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrCheckoutCancelled), errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNoActiveCheckout):
		return "no_active_checkout"
	default:
		return "internal"
	}
}

var kindToStatus = map[string]int{
	"invalid_quantity":      http.StatusBadRequest,
	"coupon_not_found":      http.StatusNotFound,
	"invalid_coupon":        http.StatusBadRequest,
	"coupon_exists":         http.StatusConflict,
	"checkout_in_progress":  http.StatusConflict,
	"payment_declined":      http.StatusPaymentRequired,
	"payment_error":         http.StatusBadGateway,
	"timeout":               http.StatusGatewayTimeout,
	"reconciliation_needed": http.StatusAccepted,
	"empty_cart":            http.StatusBadRequest,
	"line_not_found":        http.StatusNotFound,
	"product_not_found":     http.StatusNotFound,
	"canceled":              http.StatusConflict,
	"no_active_checkout":    http.StatusConflict,
}

// HTTPStatus maps err to the response status used by the handlers.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[Kind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}
