package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/cart"
	"github.com/redis/go-redis/v9"
)

var ErrCartNotFound = errors.New("cart not found")

// CartStore keeps each user's cart between requests
type CartStore interface {
	Load(ctx context.Context, email string) (cart.State, error)
	Save(ctx context.Context, email string, state cart.State) error
	Delete(ctx context.Context, email string) error
}

// RedisCartStore stores cart state as JSON with a sliding TTL
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisCartStore{client: client, ttl: ttl}
}

func (s *RedisCartStore) Load(ctx context.Context, email string) (cart.State, error) {
	data, err := s.client.Get(ctx, cartKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.State{}, ErrCartNotFound
	}
	if err != nil {
		return cart.State{}, fmt.Errorf("redis get failed: %w", err)
	}

	var state cart.State
	if err := json.Unmarshal(data, &state); err != nil {
		return cart.State{}, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return state, nil
}

func (s *RedisCartStore) Save(ctx context.Context, email string, state cart.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(email), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisCartStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, cartKey(email)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(email string) string {
	return fmt.Sprintf("cart:%s", email)
}

// InMemoryCartStore is a CartStore for single-process deployments and tests
type InMemoryCartStore struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

func NewInMemoryCartStore() *InMemoryCartStore {
	return &InMemoryCartStore{carts: make(map[string][]byte)}
}

func (s *InMemoryCartStore) Load(_ context.Context, email string) (cart.State, error) {
	s.mu.RLock()
	data, ok := s.carts[email]
	s.mu.RUnlock()
	if !ok {
		return cart.State{}, ErrCartNotFound
	}

	var state cart.State
	if err := json.Unmarshal(data, &state); err != nil {
		return cart.State{}, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return state, nil
}

func (s *InMemoryCartStore) Save(_ context.Context, email string, state cart.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	s.mu.Lock()
	s.carts[email] = data
	s.mu.Unlock()
	return nil
}

func (s *InMemoryCartStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	delete(s.carts, email)
	s.mu.Unlock()
	return nil
}
