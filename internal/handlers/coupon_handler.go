package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/norivo-storefront/internal/coupon"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// couponStore resolves a coupon code
type couponStore interface {
	Lookup(ctx context.Context, code string) (models.Coupon, error)
}

// couponAdmin manages the local coupon catalog
type couponAdmin interface {
	Create(c models.Coupon) (models.Coupon, error)
	Update(code string, c models.Coupon) (models.Coupon, error)
	Delete(code string) error
	List() []models.Coupon
	Stats() coupon.CatalogStats
}

// CouponHandler handles coupon lookup and administration
type CouponHandler struct {
	store  couponStore
	admin  couponAdmin
	logger *slog.Logger
}

// NewCouponHandler creates a new CouponHandler. admin may be nil when
// coupons come from a remote backend.
func NewCouponHandler(store couponStore, admin couponAdmin, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{
		store:  store,
		admin:  admin,
		logger: logger,
	}
}

type couponRequest struct {
	Code        string  `json:"code" validate:"required,alphanum,max=32"`
	Title       string  `json:"title" validate:"max=120"`
	Description string  `json:"description" validate:"max=1000"`
	Discount    float64 `json:"discount" validate:"gte=0,lte=100"`
}

func (req couponRequest) toCoupon() models.Coupon {
	return models.Coupon{
		Code:            req.Code,
		Title:           req.Title,
		Description:     req.Description,
		DiscountPercent: decimal.NewFromFloat(req.Discount),
	}
}

// ValidateCoupon handles GET /api/coupon/{couponCode}
func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "couponCode")

	c, err := h.store.Lookup(r.Context(), code)
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  true,
		"coupon": c,
	}, h.logger)
}

// ListCoupons handles GET /api/admin/coupons
func (h *CouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"coupons": h.admin.List(),
		"stats":   h.admin.Stats(),
	}, h.logger)
}

// CreateCoupon handles POST /api/admin/coupons
func (h *CouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeAndValidate(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), kindInvalidRequest, h.logger)
		return
	}

	c, err := h.admin.Create(req.toCoupon())
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}

	h.logger.Info("coupon created", "code", c.Code, "discount", c.DiscountPercent.String())
	WriteJSON(w, http.StatusCreated, c, h.logger)
}

// UpdateCoupon handles PUT /api/admin/coupons/{code}
func (h *CouponHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	req.Code = chi.URLParam(r, "code")
	if err := decodeAndValidate(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), kindInvalidRequest, h.logger)
		return
	}
	req.Code = chi.URLParam(r, "code")

	c, err := h.admin.Update(req.Code, req.toCoupon())
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}

	h.logger.Info("coupon updated", "code", c.Code, "discount", c.DiscountPercent.String())
	WriteJSON(w, http.StatusOK, c, h.logger)
}

// DeleteCoupon handles DELETE /api/admin/coupons/{code}
func (h *CouponHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.admin.Delete(code); err != nil {
		WriteAppError(w, err, h.logger)
		return
	}

	h.logger.Info("coupon deleted", "code", code)
	w.WriteHeader(http.StatusNoContent)
}
