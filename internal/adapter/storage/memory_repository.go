package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var (
	_ port.DatabaseRepository = (*MemoryRepository)(nil)
	_ port.CacheRepository    = (*MemoryCache)(nil)
	_ port.CartPersistence    = (*MemoryCartStore)(nil)
	_ port.DatabaseRepository = (*MySQLAdapter)(nil)
	_ port.CacheRepository    = (*RedisAdapter)(nil)
	_ port.CartPersistence    = (*RedisAdapter)(nil)
)

// MemoryRepository is an in-process stand-in for MySQL, used by the server's
// memory storage mode and by tests. Lists come back in insertion order.
type MemoryRepository struct {
	mu           sync.RWMutex
	products     []domain.Product
	categories   []domain.Category
	testimonials []domain.Testimonial
	orders       []domain.Order
	content      map[string]domain.Content
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{content: make(map[string]domain.Content)}
}

func (m *MemoryRepository) ListProducts(ctx context.Context, categoryID string) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []domain.Product{}
	for _, p := range m.products {
		if categoryID == "" || p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryRepository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := indexByID(m.products, id, func(p domain.Product) string { return p.ID })
	if i < 0 {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return m.products[i], nil
}

func (m *MemoryRepository) CreateProduct(ctx context.Context, p domain.Product, featuredLimit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.IsFeatured && m.featuredCount() >= featuredLimit {
		return domain.ErrFeaturedLimit
	}
	m.products = append(m.products, p)
	return nil
}

// UpdateProduct keeps the stored created_at.
func (m *MemoryRepository) UpdateProduct(ctx context.Context, p domain.Product, featuredLimit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexByID(m.products, p.ID, func(p domain.Product) string { return p.ID })
	if i < 0 {
		return fmt.Errorf("product %s: %w", p.ID, domain.ErrNotFound)
	}
	if p.IsFeatured && !m.products[i].IsFeatured && m.featuredCount() >= featuredLimit {
		return domain.ErrFeaturedLimit
	}
	p.CreatedAt = m.products[i].CreatedAt
	m.products[i] = p
	return nil
}

func (m *MemoryRepository) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	m.products, err = removeByID(m.products, id, "product", func(p domain.Product) string { return p.ID })
	return err
}

func (m *MemoryRepository) featuredCount() int {
	count := 0
	for _, p := range m.products {
		if p.IsFeatured {
			count++
		}
	}
	return count
}

func (m *MemoryRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Category{}, m.categories...), nil
}

func (m *MemoryRepository) CreateCategory(ctx context.Context, c domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append(m.categories, c)
	return nil
}

func (m *MemoryRepository) UpdateCategory(ctx context.Context, c domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexByID(m.categories, c.ID, func(c domain.Category) string { return c.ID })
	if i < 0 {
		return fmt.Errorf("category %s: %w", c.ID, domain.ErrNotFound)
	}
	m.categories[i].Name = c.Name
	m.categories[i].Description = c.Description
	return nil
}

func (m *MemoryRepository) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	m.categories, err = removeByID(m.categories, id, "category", func(c domain.Category) string { return c.ID })
	return err
}

func (m *MemoryRepository) ListTestimonials(ctx context.Context) ([]domain.Testimonial, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Testimonial{}, m.testimonials...), nil
}

func (m *MemoryRepository) CreateTestimonial(ctx context.Context, t domain.Testimonial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.testimonials = append(m.testimonials, t)
	return nil
}

func (m *MemoryRepository) DeleteTestimonial(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	m.testimonials, err = removeByID(m.testimonials, id, "testimonial", func(t domain.Testimonial) string { return t.ID })
	return err
}

func (m *MemoryRepository) GetContent(ctx context.Context, page string) (domain.Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.content[page]
	if !ok {
		return domain.Content{}, fmt.Errorf("content %s: %w", page, domain.ErrNotFound)
	}
	return c, nil
}

func (m *MemoryRepository) PutContent(ctx context.Context, c domain.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[c.Page] = c
	return nil
}

func (m *MemoryRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order.Items = slices.Clone(order.Items)
	m.orders = append(m.orders, order)
	return nil
}

// ListOrders returns the newest orders first, like the MySQL adapter.
func (m *MemoryRepository) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []domain.Order{}
	for i := len(m.orders) - 1; i >= 0; i-- {
		if userID == "" || m.orders[i].UserID == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *MemoryRepository) UpdateOrderStatus(ctx context.Context, id string, update domain.OrderStatusUpdate) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexByID(m.orders, id, func(o domain.Order) string { return o.ID })
	if i < 0 {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if update.PaymentStatus != nil {
		m.orders[i].PaymentStatus = *update.PaymentStatus
	}
	if update.DeliveryStatus != nil {
		m.orders[i].DeliveryStatus = *update.DeliveryStatus
	}
	return m.orders[i], nil
}

func (m *MemoryRepository) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	m.orders, err = removeByID(m.orders, id, "order", func(o domain.Order) string { return o.ID })
	return err
}

func indexByID[T any](items []T, id string, idOf func(T) string) int {
	return slices.IndexFunc(items, func(item T) bool { return idOf(item) == id })
}

func removeByID[T any](items []T, id, kind string, idOf func(T) string) ([]T, error) {
	i := indexByID(items, id, idOf)
	if i < 0 {
		return items, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return slices.Delete(items, i, i+1), nil
}

// MemoryCache keeps idempotency keys without expiry.
type MemoryCache struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{keys: make(map[string]struct{})}
}

func (c *MemoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = struct{}{}
	return true, nil
}

func (c *MemoryCache) ReleaseIdempotency(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}
