package coupon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

func TestRemoteStore_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coupons" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"code":"Eid25","title":"Eid","discount":25},{"code":"SAVE10","discount":"10"}]`))
	}))
	defer srv.Close()

	store := NewRemoteStore(srv.URL+"/", srv.Client())

	tests := []struct {
		code    string
		want    int64
		wantErr error
	}{
		{"EID25", 25, nil},
		{"save10", 10, nil},
		{"missing", 0, apperr.ErrCouponNotFound},
		{"", 0, apperr.ErrCouponNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c, err := store.Lookup(context.Background(), tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lookup(%q) error = %v, want %v", tt.code, err, tt.wantErr)
			}
			if tt.wantErr == nil && !c.DiscountPercent.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("discount = %s, want %d", c.DiscountPercent, tt.want)
			}
		})
	}
}

func TestRemoteStore_BackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewRemoteStore(srv.URL, srv.Client())
	_, err := store.Lookup(context.Background(), "SAVE10")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, apperr.ErrCouponNotFound) {
		t.Error("transport failure must not look like an unknown coupon")
	}
}
