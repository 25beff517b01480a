package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
)

func TestInMemoryProductRepository_GetAll(t *testing.T) {
	repo := NewInMemoryProductRepository()

	products, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 10 {
		t.Fatalf("expected 10 products, got %d", len(products))
	}
	if products[0].ID != "1" || products[9].ID != "10" {
		t.Errorf("expected products ordered by id, got %s..%s", products[0].ID, products[9].ID)
	}
}

func TestInMemoryProductRepository_GetByID(t *testing.T) {
	repo := NewInMemoryProductRepository()

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{"existing product", "3", nil},
		{"missing product", "999", apperr.ErrProductNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := repo.GetByID(context.Background(), tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("GetByID() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && p.ID != tt.id {
				t.Errorf("GetByID() id = %s, want %s", p.ID, tt.id)
			}
		})
	}
}
