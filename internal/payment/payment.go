// Package payment defines the payment collaborator contract used by checkout
// and the gateways that implement it.
//
// Authorization outcomes are tagged results rather than errors so callers
// handle Succeeded, Declined and Error explicitly.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Status is the outcome of an authorization attempt
type Status int

const (
	StatusSucceeded Status = iota + 1
	StatusDeclined
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusDeclined:
		return "declined"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Request asks the gateway to charge Amount.
// IdempotencyKey makes retries after an Error result safe.
type Request struct {
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	CustomerEmail  string
}

// Result is the gateway's answer. Reference is set only when Status is StatusSucceeded.
type Result struct {
	Status    Status
	Reference string
	Reason    string
	Amount    decimal.Decimal
}

// Gateway authorizes payments
type Gateway interface {
	Authorize(ctx context.Context, req Request) Result
}

// Succeeded builds a successful result for amount
func Succeeded(reference string, amount decimal.Decimal) Result {
	return Result{Status: StatusSucceeded, Reference: reference, Amount: amount}
}

// Declined builds a declined result
func Declined(reason string) Result {
	return Result{Status: StatusDeclined, Reason: reason}
}

// Failed builds an error result
func Failed(reason string) Result {
	return Result{Status: StatusError, Reason: reason}
}
