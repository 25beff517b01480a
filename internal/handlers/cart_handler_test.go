package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Lixing-Zhang/norivo-storefront/internal/cart"
	"github.com/Lixing-Zhang/norivo-storefront/internal/middleware"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/Lixing-Zhang/norivo-storefront/internal/payment"
	"github.com/Lixing-Zhang/norivo-storefront/internal/repository"
	"github.com/Lixing-Zhang/norivo-storefront/internal/service"
	"github.com/Lixing-Zhang/norivo-storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unreachableCoupons struct{}

func (unreachableCoupons) Lookup(context.Context, string) (models.Coupon, error) {
	return models.Coupon{}, errors.New(`Get "http://coupons.internal:9000/coupons": dial tcp 10.0.0.7:9000: connect: connection refused`)
}

func TestCartHandler_ApplyCoupon_MasksBackendFailure(t *testing.T) {
	products := service.NewProductService(repository.NewInMemoryProductRepository())
	svc := service.NewCartService(products, unreachableCoupons{}, payment.NewSimulator(payment.SimulatorOptions{}),
		repository.NewInMemoryOrderRepository(), nil, service.CartServiceOptions{
			Policy: cart.DefaultPricingPolicy(),
			Logger: logger.Discard(),
		})
	h := NewCartHandler(svc, logger.Discard())

	req := httptest.NewRequest(http.MethodPost, "/api/cart/coupon", strings.NewReader(`{"code":"SAVE10"}`))
	req = req.WithContext(middleware.WithUser(req.Context(), shopper))
	w := httptest.NewRecorder()
	h.ApplyCoupon(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "coupons.internal")
	assert.NotContains(t, w.Body.String(), "connection refused")

	var resp struct {
		ErrorResponse
		Cart service.CartView `json:"cart"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "internal", resp.Kind)
	assert.Equal(t, "Internal server error", resp.Error)
	assert.Empty(t, resp.Cart.CouponCode)
}
