// Package checkout drives a cart from review to a recorded order.
//
// The orchestrator freezes the cart ledger when checkout begins, asks the
// payment gateway to authorize the frozen grand total, and hands the paid
// order to the order store. A payment that succeeded but could not be
// recorded is kept in StateReconciliationNeeded until RetryPersist succeeds.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/Lixing-Zhang/norivo-storefront/internal/cart"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/Lixing-Zhang/norivo-storefront/internal/payment"
	"github.com/google/uuid"
)

// Cart is the part of the cart ledger the orchestrator drives
type Cart interface {
	Freeze() (cart.Frozen, error)
	Unfreeze()
	Clear()
}

// OrderStore persists paid orders and returns the order ID
type OrderStore interface {
	Persist(ctx context.Context, order models.Order) (string, error)
}

// EventPublisher is notified once an order is recorded
type EventPublisher interface {
	PublishOrderRecorded(ctx context.Context, order models.Order) error
}

// Snapshot is the cart content frozen at the moment checkout began
type Snapshot struct {
	SessionID  string             `json:"sessionId"`
	Lines      []models.CartLine  `json:"lines"`
	Pricing    models.CartPricing `json:"pricing"`
	CouponCode string             `json:"couponCode,omitempty"`
	CapturedAt time.Time          `json:"capturedAt"`
}

// Failure describes why the last checkout attempt did not complete
type Failure struct {
	Kind   string    `json:"kind"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Status is a point-in-time view of the orchestrator
type Status struct {
	State            State     `json:"state"`
	Snapshot         *Snapshot `json:"snapshot,omitempty"`
	PaymentReference string    `json:"paymentReference,omitempty"`
	LastFailure      *Failure  `json:"lastFailure,omitempty"`
	LastOrderID      string    `json:"lastOrderId,omitempty"`
}

// Options configures an Orchestrator
type Options struct {
	UserEmail      string
	PaymentRetries int // extra attempts after a payment Error result; declines are never retried
	Events         EventPublisher
	Logger         *slog.Logger
	Now            func() time.Time
}

type session struct {
	snapshot   Snapshot
	paymentRef string
	paying     bool
}

// Orchestrator runs the checkout state machine for one cart.
// At most one session is active at a time.
type Orchestrator struct {
	cart    Cart
	gateway payment.Gateway
	orders  OrderStore
	opts    Options
	log     *slog.Logger

	mu          sync.Mutex
	state       State
	session     *session
	lastFailure *Failure
	lastOrderID string
}

// NewOrchestrator creates an idle orchestrator for c
func NewOrchestrator(c Cart, gateway payment.Gateway, orders OrderStore, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		cart:    c,
		gateway: gateway,
		orders:  orders,
		opts:    opts,
		log:     log,
		state:   StateIdle,
	}
}

// Begin freezes the cart and moves to StateAwaitingPayment.
// The amount to charge is fixed from this point on.
func (o *Orchestrator) Begin(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return Snapshot{}, fmt.Errorf("begin checkout in state %s: %w", o.state, apperr.ErrCheckoutInProgress)
	}

	frozen, err := o.cart.Freeze()
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin checkout: %w", err)
	}

	snap := Snapshot{
		SessionID:  uuid.NewString(),
		Lines:      frozen.Lines,
		Pricing:    frozen.Pricing,
		CouponCode: frozen.CouponCode,
		CapturedAt: o.opts.Now().UTC(),
	}
	o.session = &session{snapshot: snap}
	o.lastFailure = nil
	o.setState(StateAwaitingPayment)

	o.log.InfoContext(ctx, "checkout started",
		"session_id", snap.SessionID,
		"grand_total", snap.Pricing.GrandTotal.String(),
		"lines", len(snap.Lines),
	)
	return snap, nil
}

// Checkout begins a session and pays for it in one call
func (o *Orchestrator) Checkout(ctx context.Context) (models.Order, error) {
	if _, err := o.Begin(ctx); err != nil {
		return models.Order{}, err
	}
	return o.Pay(ctx)
}

// Pay authorizes the frozen grand total and, on success, records the order.
//
// Declines, gateway errors and deadline expiry return the orchestrator to
// StateIdle with the cart unfrozen and unchanged. A persistence failure after
// a successful charge leaves it in StateReconciliationNeeded.
func (o *Orchestrator) Pay(ctx context.Context) (models.Order, error) {
	o.mu.Lock()
	sess := o.session
	switch {
	case o.state == StateIdle:
		o.mu.Unlock()
		return models.Order{}, apperr.ErrNoActiveCheckout
	case o.state != StateAwaitingPayment || sess.paying:
		state := o.state
		o.mu.Unlock()
		return models.Order{}, fmt.Errorf("pay in state %s: %w", state, apperr.ErrCheckoutInProgress)
	}
	sess.paying = true
	snap := sess.snapshot
	o.mu.Unlock()

	res := o.authorize(ctx, sess, payment.Request{
		Amount:         snap.Pricing.GrandTotal,
		Currency:       snap.Pricing.Currency,
		IdempotencyKey: snap.SessionID,
		CustomerEmail:  o.opts.UserEmail,
	})

	o.mu.Lock()
	if o.session != sess {
		o.mu.Unlock()
		o.log.WarnContext(ctx, "discarding payment response for cancelled checkout",
			"session_id", snap.SessionID,
			"payment_status", res.Status.String(),
			"payment_reference", res.Reference,
		)
		return models.Order{}, fmt.Errorf("session %s: %w", snap.SessionID, apperr.ErrCheckoutCancelled)
	}
	sess.paying = false

	if res.Status != payment.StatusSucceeded {
		err := o.failLocked(ctx, classify(ctx, res))
		o.mu.Unlock()
		return models.Order{}, err
	}

	if !res.Amount.Equal(snap.Pricing.GrandTotal) {
		o.log.ErrorContext(ctx, "payment amount does not match frozen total",
			"session_id", snap.SessionID,
			"payment_reference", res.Reference,
			"charged", res.Amount.String(),
			"expected", snap.Pricing.GrandTotal.String(),
		)
		err := o.failLocked(ctx, apperr.NewFailure(apperr.ErrPaymentError,
			fmt.Sprintf("charged %s but expected %s", res.Amount, snap.Pricing.GrandTotal)))
		o.mu.Unlock()
		return models.Order{}, err
	}

	sess.paymentRef = res.Reference
	o.setState(StatePaymentConfirmed)
	o.mu.Unlock()

	o.log.InfoContext(ctx, "payment confirmed",
		"session_id", snap.SessionID,
		"payment_reference", res.Reference,
	)

	// The charge has happened; the caller's deadline must not abort recording it.
	return o.persist(context.WithoutCancel(ctx), sess)
}

// Cancel abandons a checkout that is still awaiting payment.
// A payment response that arrives afterwards is discarded.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateIdle:
		return apperr.ErrNoActiveCheckout
	case StateAwaitingPayment:
	default:
		return fmt.Errorf("cancel in state %s: %w", o.state, apperr.ErrCheckoutInProgress)
	}

	id := o.session.snapshot.SessionID
	o.session = nil
	o.cart.Unfreeze()
	o.setState(StateIdle)

	o.log.InfoContext(ctx, "checkout cancelled", "session_id", id)
	return nil
}

// RetryPersist records the order of a paid checkout whose first persistence failed
func (o *Orchestrator) RetryPersist(ctx context.Context) (models.Order, error) {
	o.mu.Lock()
	if o.state != StateReconciliationNeeded {
		state := o.state
		o.mu.Unlock()
		if state == StateIdle {
			return models.Order{}, apperr.ErrNoActiveCheckout
		}
		return models.Order{}, fmt.Errorf("retry persist in state %s: %w", state, apperr.ErrCheckoutInProgress)
	}
	sess := o.session
	o.setState(StatePaymentConfirmed)
	o.mu.Unlock()

	o.log.InfoContext(ctx, "retrying order persistence",
		"session_id", sess.snapshot.SessionID,
		"payment_reference", sess.paymentRef,
	)
	return o.persist(ctx, sess)
}

// Status returns the current state of the orchestrator
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{
		State:       o.state,
		LastOrderID: o.lastOrderID,
	}
	if o.session != nil {
		snap := o.session.snapshot
		st.Snapshot = &snap
		st.PaymentReference = o.session.paymentRef
	}
	if o.lastFailure != nil {
		f := *o.lastFailure
		st.LastFailure = &f
	}
	return st
}

func (o *Orchestrator) authorize(ctx context.Context, sess *session, req payment.Request) payment.Result {
	var res payment.Result
	for attempt := 0; attempt <= o.opts.PaymentRetries; attempt++ {
		res = o.gateway.Authorize(ctx, req)
		if res.Status != payment.StatusError || ctx.Err() != nil || !o.isCurrent(sess) {
			return res
		}
		o.log.WarnContext(ctx, "payment attempt failed",
			"session_id", req.IdempotencyKey,
			"attempt", attempt+1,
			"reason", res.Reason,
		)
	}
	return res
}

func (o *Orchestrator) persist(ctx context.Context, sess *session) (models.Order, error) {
	order := o.buildOrder(sess)

	orderID, err := o.orders.Persist(ctx, order)

	o.mu.Lock()
	if err != nil {
		o.setState(StateReconciliationNeeded)
		o.lastFailure = &Failure{
			Kind:   apperr.Kind(apperr.ErrOrderPersistence),
			Reason: err.Error(),
			At:     o.opts.Now().UTC(),
		}
		o.mu.Unlock()

		o.log.ErrorContext(ctx, "order not recorded after successful payment",
			"session_id", sess.snapshot.SessionID,
			"payment_reference", sess.paymentRef,
			"error", err,
		)
		return order, apperr.NewFailure(apperr.ErrOrderPersistence, err.Error())
	}

	order.ID = orderID
	o.setState(StateOrderRecorded)
	o.cart.Clear()
	o.cart.Unfreeze()
	o.session = nil
	o.lastFailure = nil
	o.lastOrderID = orderID
	o.setState(StateIdle)
	o.mu.Unlock()

	o.log.InfoContext(ctx, "order recorded",
		"order_id", orderID,
		"payment_reference", order.PaymentReference,
		"total", order.TotalAmount.String(),
	)

	if o.opts.Events != nil {
		if err := o.opts.Events.PublishOrderRecorded(ctx, order); err != nil {
			o.log.ErrorContext(ctx, "failed to publish order recorded event", "order_id", orderID, "error", err)
		}
	}
	return order, nil
}

func (o *Orchestrator) buildOrder(sess *session) models.Order {
	snap := sess.snapshot
	return models.Order{
		UserEmail:        o.opts.UserEmail,
		Lines:            snap.Lines,
		Subtotal:         snap.Pricing.Subtotal,
		Tax:              snap.Pricing.Tax,
		DeliveryFee:      snap.Pricing.DeliveryFee,
		Discount:         snap.Pricing.DiscountAmount,
		TotalAmount:      snap.Pricing.GrandTotal,
		Currency:         snap.Pricing.Currency,
		CouponCode:       snap.CouponCode,
		PaymentReference: sess.paymentRef,
		CreatedAt:        snap.CapturedAt,
	}
}

// failLocked records the failure and returns to StateIdle with the cart untouched.
// o.mu must be held.
func (o *Orchestrator) failLocked(ctx context.Context, failure *apperr.Failure) error {
	id := o.session.snapshot.SessionID
	o.setState(StateFailed)
	o.lastFailure = &Failure{
		Kind:   failure.Kind(),
		Reason: failure.Reason,
		At:     o.opts.Now().UTC(),
	}
	o.session = nil
	o.cart.Unfreeze()
	o.setState(StateIdle)

	o.log.WarnContext(ctx, "checkout failed",
		"session_id", id,
		"kind", failure.Kind(),
		"reason", failure.Reason,
	)
	return failure
}

func (o *Orchestrator) isCurrent(sess *session) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session == sess
}

// setState moves to the next state. o.mu must be held.
func (o *Orchestrator) setState(to State) {
	if !CanTransitionTo(o.state, to) {
		o.log.Error("illegal checkout transition", "from", o.state, "to", to)
	}
	o.state = to
}

// classify turns a non-successful payment result into a failure
func classify(ctx context.Context, res payment.Result) *apperr.Failure {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.NewFailure(apperr.ErrTimeout, "Timeout")
	}
	switch res.Status {
	case payment.StatusDeclined:
		return apperr.NewFailure(apperr.ErrPaymentDeclined, res.Reason)
	default:
		return apperr.NewFailure(apperr.ErrPaymentError, res.Reason)
	}
}
