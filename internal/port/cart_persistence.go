package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// CartPersistence stores serialized carts under their identity storage key.
type CartPersistence interface {
	// LoadCart returns the stored items; found is false when nothing is stored under key
	LoadCart(ctx context.Context, key string) (items []domain.CartLineItem, found bool, err error)

	// SaveCart replaces whatever is stored under key
	SaveCart(ctx context.Context, key string, items []domain.CartLineItem) error
}
