package service

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("invalid product")
)

// CartStore is the active identity's cart. Every mutation is written through
// to persistence before the lock is released, so a read never observes a
// state that has not been handed to storage.
type CartStore struct {
	mu          sync.Mutex
	persistence port.CartPersistence
	logger      *zap.Logger

	identity domain.IdentityKey
	items    []domain.CartLineItem
}

// NewCartStore starts on the guest cart.
func NewCartStore(ctx context.Context, persistence port.CartPersistence, logger *zap.Logger) *CartStore {
	s := &CartStore{
		persistence: persistence,
		logger:      logger,
	}
	s.load(ctx, domain.GuestIdentity)
	return s
}

func (s *CartStore) Identity() domain.IdentityKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SwitchIdentity replaces the in-memory cart with the one persisted for key.
// The previous identity's cart stays in storage untouched.
func (s *CartStore) SwitchIdentity(ctx context.Context, key domain.IdentityKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == s.identity {
		return
	}
	s.load(ctx, key)
}

func (s *CartStore) AddItem(ctx context.Context, product domain.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if product.ID == "" || product.Price.IsNegative() {
		return ErrInvalidProduct
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(product.ID); i >= 0 {
		s.items[i].Quantity += quantity
	} else {
		s.items = append(s.items, domain.NewCartLineItem(product, quantity))
	}
	s.persist(ctx)
	return nil
}

func (s *CartStore) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(ctx, productID)
}

// UpdateQuantity sets the quantity outright; zero or less removes the line.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.remove(ctx, productID)
		return
	}

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items[i].Quantity = quantity
	s.persist(ctx)
}

func (s *CartStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx)
}

// RemoveOrdered takes the ordered lines out of the cart stored for key,
// whether or not key is the active identity. Quantities added after the
// order was taken stay in the cart.
func (s *CartStore) RemoveOrdered(ctx context.Context, key domain.IdentityKey, ordered []domain.CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == s.identity {
		s.items = subtractLines(s.items, ordered)
		s.persist(ctx)
		return
	}

	storageKey := domain.CartStorageKey(key)
	items, _, err := s.persistence.LoadCart(ctx, storageKey)
	if err != nil || domain.ValidateCart(items) != nil {
		items = nil
	}
	if err := s.persistence.SaveCart(ctx, storageKey, subtractLines(items, ordered)); err != nil {
		s.logger.Warn("failed to update cart", zap.String("identity", string(key)), zap.Error(err))
	}
}

func (s *CartStore) Items() []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Snapshot returns the identity and items as one consistent view.
func (s *CartStore) Snapshot() (domain.IdentityKey, []domain.CartLineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, slices.Clone(s.items)
}

func (s *CartStore) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// TotalPrice uses the unit prices captured when each item was added.
func (s *CartStore) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sumLines(s.items)
}

func (s *CartStore) indexOf(productID string) int {
	return slices.IndexFunc(s.items, func(item domain.CartLineItem) bool {
		return item.ProductID == productID
	})
}

func (s *CartStore) remove(ctx context.Context, productID string) {
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.persist(ctx)
}

func subtractLines(items, ordered []domain.CartLineItem) []domain.CartLineItem {
	orderedQty := make(map[string]int, len(ordered))
	for _, line := range ordered {
		orderedQty[line.ProductID] += line.Quantity
	}

	var left []domain.CartLineItem
	for _, item := range items {
		item.Quantity -= orderedQty[item.ProductID]
		if item.Quantity > 0 {
			left = append(left, item)
		}
	}
	return left
}

// load must be called with s.mu held.
func (s *CartStore) load(ctx context.Context, key domain.IdentityKey) {
	s.identity = key
	s.items = nil

	items, found, err := s.persistence.LoadCart(ctx, domain.CartStorageKey(key))
	if err != nil {
		s.logger.Warn("failed to load cart, starting empty", zap.String("identity", string(key)), zap.Error(err))
		return
	}
	if !found {
		return
	}
	if err := domain.ValidateCart(items); err != nil {
		s.logger.Warn("discarding corrupt cart", zap.String("identity", string(key)), zap.Error(err))
		return
	}
	s.items = items
}

// persist must be called with s.mu held. Storage is best effort.
func (s *CartStore) persist(ctx context.Context) {
	key := domain.CartStorageKey(s.identity)
	if err := s.persistence.SaveCart(ctx, key, slices.Clone(s.items)); err != nil {
		s.logger.Warn("failed to persist cart", zap.String("key", key), zap.Error(err))
	}
}
