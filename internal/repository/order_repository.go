package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/google/uuid"
)

// OrderRepository stores paid orders.
// Persist is idempotent on the payment reference: persisting the same
// payment twice returns the first order's ID.
type OrderRepository interface {
	Persist(ctx context.Context, order models.Order) (string, error)
	ListByUser(ctx context.Context, email string) ([]models.Order, error)
}

// InMemoryOrderRepository keeps orders in process memory
type InMemoryOrderRepository struct {
	mu          sync.RWMutex
	orders      []models.Order
	byReference map[string]string
}

func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{byReference: make(map[string]string)}
}

func (r *InMemoryOrderRepository) Persist(ctx context.Context, order models.Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if order.PaymentReference != "" {
		if id, ok := r.byReference[order.PaymentReference]; ok {
			return id, nil
		}
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	r.orders = append(r.orders, order)
	if order.PaymentReference != "" {
		r.byReference[order.PaymentReference] = order.ID
	}
	return order.ID, nil
}

// ListByUser returns the user's orders, newest first
func (r *InMemoryOrderRepository) ListByUser(ctx context.Context, email string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Order
	for _, o := range r.orders {
		if o.UserEmail == email {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
