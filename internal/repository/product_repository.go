package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

// InMemoryProductRepository implements ProductRepository with in-memory storage
type InMemoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]models.Product
}

// NewInMemoryProductRepository creates a new in-memory product repository with seed data
func NewInMemoryProductRepository() *InMemoryProductRepository {
	return NewInMemoryProductRepositoryWith(seedProducts())
}

// NewInMemoryProductRepositoryWith creates a repository holding exactly products
func NewInMemoryProductRepositoryWith(products []models.Product) *InMemoryProductRepository {
	m := make(map[string]models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &InMemoryProductRepository{products: m}
}

func seedProducts() []models.Product {
	price := decimal.RequireFromString
	return []models.Product{
		{ID: "1", Name: "Fresh Carrots", Category: "Vegetables", Price: price("120"), OfferPrice: price("100"), Stock: 40},
		{ID: "2", Name: "Red Tomatoes", Category: "Vegetables", Price: price("90"), Stock: 25},
		{ID: "3", Name: "Green Apples", Category: "Fruits", Price: price("260"), OfferPrice: price("240"), Stock: 18},
		{ID: "4", Name: "Bananas", Category: "Fruits", Price: price("110"), Stock: 60},
		{ID: "5", Name: "Whole Milk 1L", Category: "Dairy", Price: price("95"), Stock: 30},
		{ID: "6", Name: "Cheddar Cheese", Category: "Dairy", Price: price("450"), OfferPrice: price("399.50"), Stock: 8},
		{ID: "7", Name: "Brown Bread", Category: "Bakery", Price: price("75"), Stock: 20},
		{ID: "8", Name: "Basmati Rice 5kg", Category: "Grains", Price: price("950"), OfferPrice: price("899"), Stock: 12},
		{ID: "9", Name: "Free Range Eggs (12)", Category: "Dairy", Price: price("160"), Stock: 0},
		{ID: "10", Name: "Orange Juice", Category: "Beverages", Price: price("220"), Stock: 15},
	}
}

// GetAll returns all products ordered by ID
func (r *InMemoryProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]models.Product, 0, len(r.products))
	for _, product := range r.products {
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool {
		if len(products[i].ID) != len(products[j].ID) {
			return len(products[i].ID) < len(products[j].ID)
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

// GetByID returns a product by its ID
func (r *InMemoryProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		return nil, apperr.ErrProductNotFound
	}
	return &product, nil
}
