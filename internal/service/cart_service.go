package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/cart"
	"github.com/Lixing-Zhang/norivo-storefront/internal/checkout"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/Lixing-Zhang/norivo-storefront/internal/payment"
	"github.com/Lixing-Zhang/norivo-storefront/internal/repository"
)

// CartView is what the storefront shows for a user's cart
type CartView struct {
	Lines      []models.CartLine  `json:"lines"`
	Pricing    models.CartPricing `json:"pricing"`
	CouponCode string             `json:"couponCode,omitempty"`
	Checkout   checkout.Status    `json:"checkout"`
}

// CartServiceOptions configures a CartService
type CartServiceOptions struct {
	Policy         cart.PricingPolicy
	PaymentTimeout time.Duration
	PaymentRetries int
	Events         checkout.EventPublisher
	Logger         *slog.Logger
}

// CartService owns one cart ledger and checkout orchestrator per user
type CartService struct {
	products *ProductService
	coupons  cart.CouponLookup
	gateway  payment.Gateway
	orders   repository.OrderRepository
	carts    repository.CartStore
	opts     CartServiceOptions
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*userSession
}

type userSession struct {
	mu       sync.Mutex
	ledger   *cart.Ledger
	checkout *checkout.Orchestrator
}

// NewCartService creates a cart service.
// carts may be nil, in which case carts live only in process memory.
func NewCartService(
	products *ProductService,
	coupons cart.CouponLookup,
	gateway payment.Gateway,
	orders repository.OrderRepository,
	carts repository.CartStore,
	opts CartServiceOptions,
) *CartService {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &CartService{
		products: products,
		coupons:  coupons,
		gateway:  gateway,
		orders:   orders,
		carts:    carts,
		opts:     opts,
		log:      log,
		sessions: make(map[string]*userSession),
	}
}

// Cart returns the user's cart
func (s *CartService) Cart(ctx context.Context, email string) CartView {
	return s.session(ctx, email).view()
}

// AddItem adds quantity units of a catalog product to the cart
func (s *CartService) AddItem(ctx context.Context, email, productID string, quantity int) (CartView, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return CartView{}, fmt.Errorf("add item: %w", err)
	}

	sess := s.session(ctx, email)
	return s.mutate(ctx, email, sess, func() error {
		return sess.ledger.AddItem(*product, quantity)
	})
}

// SetQuantity sets a line's quantity, clamped to stock. Zero removes the line.
func (s *CartService) SetQuantity(ctx context.Context, email, productID string, quantity int) (CartView, error) {
	sess := s.session(ctx, email)
	return s.mutate(ctx, email, sess, func() error {
		return sess.ledger.SetQuantity(productID, quantity)
	})
}

// RemoveLine drops a line from the cart
func (s *CartService) RemoveLine(ctx context.Context, email, productID string) (CartView, error) {
	sess := s.session(ctx, email)
	return s.mutate(ctx, email, sess, func() error {
		return sess.ledger.RemoveLine(productID)
	})
}

// ApplyCoupon applies code to the cart. On any lookup failure the discount is
// reset and the returned view reflects the reset.
func (s *CartService) ApplyCoupon(ctx context.Context, email, code string) (CartView, models.Coupon, error) {
	sess := s.session(ctx, email)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	coupon, err := sess.ledger.ApplyCoupon(ctx, code)
	s.save(ctx, email, sess)
	return sess.view(), coupon, err
}

// Checkout pays for the cart and records the order.
// The payment timeout bounds authorization only.
func (s *CartService) Checkout(ctx context.Context, email string) (models.Order, error) {
	sess := s.session(ctx, email)

	payCtx := ctx
	if s.opts.PaymentTimeout > 0 {
		var cancel context.CancelFunc
		payCtx, cancel = context.WithTimeout(ctx, s.opts.PaymentTimeout)
		defer cancel()
	}

	order, err := sess.checkout.Checkout(payCtx)
	if err != nil {
		return order, err
	}
	s.forget(ctx, email)
	return order, nil
}

// CancelCheckout abandons a checkout that is awaiting payment
func (s *CartService) CancelCheckout(ctx context.Context, email string) error {
	return s.session(ctx, email).checkout.Cancel(ctx)
}

// Reconcile retries recording the order of a paid checkout
func (s *CartService) Reconcile(ctx context.Context, email string) (models.Order, error) {
	order, err := s.session(ctx, email).checkout.RetryPersist(ctx)
	if err != nil {
		return order, err
	}
	s.forget(ctx, email)
	return order, nil
}

// CheckoutStatus returns the state of the user's checkout
func (s *CartService) CheckoutStatus(ctx context.Context, email string) checkout.Status {
	return s.session(ctx, email).checkout.Status()
}

// Orders lists the user's recorded orders, newest first
func (s *CartService) Orders(ctx context.Context, email string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, email)
}

func (s *CartService) mutate(ctx context.Context, email string, sess *userSession, fn func() error) (CartView, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := fn(); err != nil {
		return CartView{}, err
	}
	s.save(ctx, email, sess)
	return sess.view(), nil
}

// session returns the user's session, restoring the cart from the cart store on first use
func (s *CartService) session(ctx context.Context, email string) *userSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[email]; ok {
		return sess
	}

	ledger := cart.NewLedger(s.opts.Policy, s.coupons)
	if s.carts != nil {
		state, err := s.carts.Load(ctx, email)
		switch {
		case err == nil:
			if err := ledger.Restore(state); err != nil {
				s.log.WarnContext(ctx, "discarding stored cart", "user", email, "error", err)
			}
		case !errors.Is(err, repository.ErrCartNotFound):
			s.log.ErrorContext(ctx, "failed to load cart", "user", email, "error", err)
		}
	}

	sess := &userSession{
		ledger: ledger,
		checkout: checkout.NewOrchestrator(ledger, s.gateway, s.orders, checkout.Options{
			UserEmail:      email,
			PaymentRetries: s.opts.PaymentRetries,
			Events:         s.opts.Events,
			Logger:         s.log.With("user", email),
		}),
	}
	s.sessions[email] = sess
	return sess
}

func (s *CartService) save(ctx context.Context, email string, sess *userSession) {
	if s.carts == nil {
		return
	}
	if err := s.carts.Save(ctx, email, sess.ledger.State()); err != nil {
		s.log.ErrorContext(ctx, "failed to save cart", "user", email, "error", err)
	}
}

func (s *CartService) forget(ctx context.Context, email string) {
	if s.carts == nil {
		return
	}
	if err := s.carts.Delete(context.WithoutCancel(ctx), email); err != nil {
		s.log.ErrorContext(ctx, "failed to delete stored cart", "user", email, "error", err)
	}
}

func (sess *userSession) view() CartView {
	lines := sess.ledger.Lines()
	if lines == nil {
		lines = []models.CartLine{}
	}
	return CartView{
		Lines:      lines,
		Pricing:    sess.ledger.Pricing(),
		CouponCode: sess.ledger.CouponCode(),
		Checkout:   sess.checkout.Status(),
	}
}
