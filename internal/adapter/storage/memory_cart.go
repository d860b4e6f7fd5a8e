package storage

import (
	"context"
	"sync"

	"github.com/rl1809/storefront/internal/core/domain"
)

// MemoryCartStore keeps serialized carts in process memory, the way a browser
// keeps them in local storage.
type MemoryCartStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{data: make(map[string][]byte)}
}

func (m *MemoryCartStore) LoadCart(ctx context.Context, key string) ([]domain.CartLineItem, bool, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()

	if !ok {
		return nil, false, nil
	}
	items, err := decodeCart(raw)
	if err != nil {
		return nil, false, err
	}
	return items, true, nil
}

func (m *MemoryCartStore) SaveCart(ctx context.Context, key string, items []domain.CartLineItem) error {
	raw, err := encodeCart(items)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

// Raw returns the serialized value stored under key.
func (m *MemoryCartStore) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	return raw, ok
}

// SetRaw stores an already serialized value.
func (m *MemoryCartStore) SetRaw(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
}
