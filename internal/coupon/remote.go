package coupon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/apperr"
	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// RemoteStore looks coupons up in the coupon backend's /coupons collection
type RemoteStore struct {
	baseURL string
	client  *http.Client
	group   singleflight.Group
}

// NewRemoteStore creates a store for the backend at baseURL.
// A nil client gets a traced client with a 5s timeout.
func NewRemoteStore(baseURL string, client *http.Client) *RemoteStore {
	if client == nil {
		client = &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &RemoteStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Lookup fetches the coupon list and matches code case-insensitively.
// Concurrent lookups of the same code share one request.
func (s *RemoteStore) Lookup(ctx context.Context, code string) (models.Coupon, error) {
	key := models.NormalizeCouponCode(code)
	if key == "" {
		return models.Coupon{}, apperr.ErrCouponNotFound
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.fetch(ctx, key)
	})
	if err != nil {
		return models.Coupon{}, err
	}
	return v.(models.Coupon), nil
}

func (s *RemoteStore) fetch(ctx context.Context, key string) (models.Coupon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/coupons", nil)
	if err != nil {
		return models.Coupon{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Coupon{}, fmt.Errorf("coupon backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coupon{}, fmt.Errorf("coupon backend returned status %d", resp.StatusCode)
	}

	var coupons []models.Coupon
	if err := json.NewDecoder(resp.Body).Decode(&coupons); err != nil {
		return models.Coupon{}, fmt.Errorf("decode coupons: %w", err)
	}

	for _, c := range coupons {
		if models.NormalizeCouponCode(c.Code) == key {
			c.Code = key
			return c, nil
		}
	}
	return models.Coupon{}, apperr.ErrCouponNotFound
}
