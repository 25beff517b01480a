package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/config"
	"github.com/Lixing-Zhang/norivo-storefront/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDeps are the handlers and settings the router is built from
type RouterDeps struct {
	Health   *HealthHandler
	Products *ProductHandler
	Coupons  *CouponHandler
	Cart     *CartHandler

	Auth           config.AuthConfig
	AllowedOrigins []string
	RequestTimeout time.Duration
	// AdminCoupons mounts the coupon admin routes; off when coupons come from a remote backend
	AdminCoupons bool
	Logger       *slog.Logger
}

// NewRouter wires every route of the storefront API
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(d.RequestTimeout))
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "api_key", middleware.UserHeader},
		ExposedHeaders:   []string{"Link", "X-Total-Count", "X-Page", "X-Total-Pages"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", d.Health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/product", d.Products.ListProducts)
		r.Get("/product/categories", d.Products.ListCategories)
		r.Get("/product/{productId}", d.Products.GetProduct)

		r.Get("/coupon/{couponCode}", d.Coupons.ValidateCoupon)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Get("/cart", d.Cart.GetCart)
			r.Post("/cart/items", d.Cart.AddItem)
			r.Put("/cart/items/{productId}", d.Cart.SetQuantity)
			r.Delete("/cart/items/{productId}", d.Cart.RemoveLine)
			r.Post("/cart/coupon", d.Cart.ApplyCoupon)

			r.Get("/checkout", d.Cart.CheckoutStatus)
			r.Post("/checkout", d.Cart.Checkout)
			r.Delete("/checkout", d.Cart.CancelCheckout)
			r.Post("/checkout/reconcile", d.Cart.Reconcile)

			r.Get("/orders", d.Cart.ListOrders)
		})

		if d.AdminCoupons {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.APIKeyAuth(d.Auth))

				r.Get("/coupons", d.Coupons.ListCoupons)
				r.Post("/coupons", d.Coupons.CreateCoupon)
				r.Put("/coupons/{code}", d.Coupons.UpdateCoupon)
				r.Delete("/coupons/{code}", d.Coupons.DeleteCoupon)
			})
		}
	})

	return r
}
