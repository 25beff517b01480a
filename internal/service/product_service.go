package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/Lixing-Zhang/norivo-storefront/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 8
	MaxPageSize     = 100
)

// ProductFilter narrows the catalog listing.
// Zero prices disable the price bounds. Paging is off unless Page or PageSize is set.
type ProductFilter struct {
	Search     string
	Categories []string
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	Page       int
	PageSize   int
}

func (f ProductFilter) paginated() bool {
	return f.Page > 0 || f.PageSize > 0
}

func (f ProductFilter) matches(p models.Product, search string, categories map[string]struct{}) bool {
	if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
		return false
	}
	if len(categories) > 0 {
		if _, ok := categories[strings.ToLower(p.Category)]; !ok {
			return false
		}
	}
	// bounds apply to the list price, as the storefront shows it
	if f.MinPrice.IsPositive() && p.Price.LessThan(f.MinPrice) {
		return false
	}
	if f.MaxPrice.IsPositive() && p.Price.GreaterThan(f.MaxPrice) {
		return false
	}
	return true
}

// ProductPage is one page of a filtered listing
type ProductPage struct {
	Products   []models.Product
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ProductService handles business logic for products
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService creates a new product service
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// ListProducts returns the products matching filter, in catalog order.
// A page past the end is empty, not an error.
func (s *ProductService) ListProducts(ctx context.Context, filter ProductFilter) (ProductPage, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return ProductPage{}, fmt.Errorf("list products: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	categories := make(map[string]struct{}, len(filter.Categories))
	for _, c := range filter.Categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			categories[c] = struct{}{}
		}
	}

	matched := make([]models.Product, 0, len(all))
	for _, p := range all {
		if filter.matches(p, search, categories) {
			matched = append(matched, p)
		}
	}

	page := ProductPage{Products: matched, Total: len(matched), Page: 1, PageSize: len(matched), TotalPages: 1}
	if !filter.paginated() {
		return page, nil
	}

	page.Page = max(filter.Page, 1)
	page.PageSize = filter.PageSize
	if page.PageSize <= 0 {
		page.PageSize = DefaultPageSize
	}
	page.PageSize = min(page.PageSize, MaxPageSize)
	page.TotalPages = (len(matched) + page.PageSize - 1) / page.PageSize

	start := (page.Page - 1) * page.PageSize
	if start >= len(matched) {
		page.Products = []models.Product{}
		return page, nil
	}
	page.Products = matched[start:min(start+page.PageSize, len(matched))]
	return page, nil
}

// Categories returns the distinct product categories, sorted
func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	seen := make(map[string]struct{})
	categories := []string{}
	for _, p := range all {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// GetProduct returns a product by ID, with its current stock and offer price
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return product, nil
}
