package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	idempotencyKeyTTL = 24 * time.Hour
	cartTTL           = 30 * 24 * time.Hour
)

// RedisAdapter holds order idempotency keys and persisted carts.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) LoadCart(ctx context.Context, key string) ([]domain.CartLineItem, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cart: %w", err)
	}

	items, err := decodeCart(raw)
	if err != nil {
		return nil, false, err
	}
	return items, true, nil
}

// SaveCart refreshes the cart's expiry on every write.
func (r *RedisAdapter) SaveCart(ctx context.Context, key string, items []domain.CartLineItem) error {
	raw, err := encodeCart(items)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, cartTTL).Err()
}

func encodeCart(items []domain.CartLineItem) ([]byte, error) {
	if items == nil {
		items = []domain.CartLineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return raw, nil
}

func decodeCart(raw []byte) ([]domain.CartLineItem, error) {
	var items []domain.CartLineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}
