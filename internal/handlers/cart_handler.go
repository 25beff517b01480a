package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/Lixing-Zhang/norivo-storefront/internal/cart"
	"github.com/Lixing-Zhang/norivo-storefront/internal/middleware"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/Lixing-Zhang/norivo-storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

// CartHandler handles cart, checkout and order history requests for the signed-in user
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(service *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger,
	}
}

type addItemRequest struct {
	ProductID string   `json:"productId" validate:"required"`
	Quantity  *float64 `json:"quantity" validate:"required"`
}

type setQuantityRequest struct {
	Quantity *float64 `json:"quantity" validate:"required"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"max=64"`
}

type couponResponse struct {
	service.CartView
	Coupon *models.Coupon `json:"coupon,omitempty"`
}

type checkoutFailureResponse struct {
	ErrorResponse
	Order *models.Order `json:"order,omitempty"`
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.UserFromContext(r.Context())
	WriteJSON(w, http.StatusOK, h.service.Cart(r.Context(), email), h.logger)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeAndValidate(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), kindInvalidRequest, h.logger)
		return
	}
	qty, err := cart.QuantityFromFloat(*req.Quantity)
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}

	email, _ := middleware.UserFromContext(r.Context())
	view, err := h.service.AddItem(r.Context(), email, req.ProductID, qty)
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, view, h.logger)
}

// SetQuantity handles PUT /api/cart/items/{productId}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decodeAndValidate(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), kindInvalidRequest, h.logger)
		return
	}
	qty, err := cart.QuantityFromFloat(*req.Quantity)
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}

	email, _ := middleware.UserFromContext(r.Context())
	view, err := h.service.SetQuantity(r.Context(), email, chi.URLParam(r, "productId"), qty)
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, view, h.logger)
}

// RemoveLine handles DELETE /api/cart/items/{productId}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.UserFromContext(r.Context())
	view, err := h.service.RemoveLine(r.Context(), email, chi.URLParam(r, "productId"))
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, view, h.logger)
}

// ApplyCoupon handles POST /api/cart/coupon.
// An unknown code still returns the cart, with the discount reset.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decodeAndValidate(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), kindInvalidRequest, h.logger)
		return
	}

	email, _ := middleware.UserFromContext(r.Context())
	view, c, err := h.service.ApplyCoupon(r.Context(), email, req.Code)
	if err != nil {
		WriteJSON(w, apperr.HTTPStatus(err), struct {
			ErrorResponse
			Cart service.CartView `json:"cart"`
		}{
			ErrorResponse: appErrorBody(err, h.logger),
			Cart:          view,
		}, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, couponResponse{CartView: view, Coupon: &c}, h.logger)
}

// Checkout handles POST /api/checkout
// - 201: order recorded
// - 202: payment taken but the order still needs to be recorded
// - 402/502/504: payment failed, cart unchanged
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.UserFromContext(r.Context())

	order, err := h.service.Checkout(r.Context(), email)
	if err != nil {
		h.writeCheckoutError(w, err, order)
		return
	}

	h.logger.Info("order placed", "order_id", order.ID, "user", email, "total", order.TotalAmount.String())
	WriteJSON(w, http.StatusCreated, order, h.logger)
}

// CheckoutStatus handles GET /api/checkout
func (h *CartHandler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.UserFromContext(r.Context())
	WriteJSON(w, http.StatusOK, h.service.CheckoutStatus(r.Context(), email), h.logger)
}

// CancelCheckout handles DELETE /api/checkout
func (h *CartHandler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.UserFromContext(r.Context())
	if err := h.service.CancelCheckout(r.Context(), email); err != nil {
		WriteAppError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reconcile handles POST /api/checkout/reconcile
func (h *CartHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.UserFromContext(r.Context())

	order, err := h.service.Reconcile(r.Context(), email)
	if err != nil {
		h.writeCheckoutError(w, err, order)
		return
	}

	h.logger.Info("order reconciled", "order_id", order.ID, "user", email)
	WriteJSON(w, http.StatusCreated, order, h.logger)
}

// ListOrders handles GET /api/orders
func (h *CartHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	email, _ := middleware.UserFromContext(r.Context())

	orders, err := h.service.Orders(r.Context(), email)
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	WriteJSON(w, http.StatusOK, orders, h.logger)
}

func (h *CartHandler) writeCheckoutError(w http.ResponseWriter, err error, order models.Order) {
	resp := checkoutFailureResponse{
		ErrorResponse: appErrorBody(err, h.logger),
	}
	if order.PaymentReference != "" {
		resp.Order = &order
	}
	WriteJSON(w, apperr.HTTPStatus(err), resp, h.logger)
}

