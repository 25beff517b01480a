package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/Lixing-Zhang/norivo-storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ListProducts handles GET /api/product
// Query: q, category (repeatable or comma separated), minPrice, maxPrice, page, pageSize.
// The body stays a plain array; paging details go in the X-Total-Count, X-Page and X-Total-Pages headers.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r.URL.Query())
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), kindInvalidRequest, h.logger)
		return
	}

	page, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		WriteAppError(w, err, h.logger)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(page.Total))
	w.Header().Set("X-Page", strconv.Itoa(page.Page))
	w.Header().Set("X-Total-Pages", strconv.Itoa(page.TotalPages))
	WriteJSON(w, http.StatusOK, page.Products, h.logger)
}

// ListCategories handles GET /api/product/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		WriteAppError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, categories, h.logger)
}

func parseProductFilter(q url.Values) (service.ProductFilter, error) {
	filter := service.ProductFilter{Search: q.Get("q")}

	for _, v := range q["category"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				filter.Categories = append(filter.Categories, c)
			}
		}
	}

	var err error
	if filter.MinPrice, err = parsePrice(q, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = parsePrice(q, "maxPrice"); err != nil {
		return filter, err
	}
	if filter.MinPrice.IsPositive() && filter.MaxPrice.IsPositive() && filter.MinPrice.GreaterThan(filter.MaxPrice) {
		return filter, errors.New("minPrice must not exceed maxPrice")
	}
	if filter.Page, err = parseCount(q, "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = parseCount(q, "pageSize"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parsePrice(q url.Values, key string) (decimal.Decimal, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseCount(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// GetProduct handles GET /api/product/{productId}
// - 200: successful operation
// - 400: Invalid ID supplied
// - 404: Product not found
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		h.logger.Warn("product ID is required")
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", kindInvalidRequest, h.logger)
		return
	}

	product, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, apperr.ErrProductNotFound) {
			h.logger.Info("product not found", "productId", productID)
		}
		WriteAppError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, product, h.logger)
}
