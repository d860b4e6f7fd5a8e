package service

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

var errBackend = errors.New("backend unavailable")

// Mock CacheRepository
type mockCacheRepo struct {
	idempotencySet map[string]bool
	released       []string
	failSet        error
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{idempotencySet: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSet != nil {
		return false, m.failSet
	}
	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	m.released = append(m.released, key)
	return nil
}

// Mock OrderRepository
type mockOrderRepo struct {
	orders     []domain.Order
	failCreate int // number of CreateOrder calls that fail before one succeeds
	mu         sync.Mutex
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreate > 0 {
		m.failCreate--
		return errBackend
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrderRepo) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Order
	for _, o := range m.orders {
		if userID == "" || o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateOrderStatus(ctx context.Context, id string, update domain.OrderStatusUpdate) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.orders {
		if m.orders[i].ID != id {
			continue
		}
		if update.PaymentStatus != nil {
			m.orders[i].PaymentStatus = *update.PaymentStatus
		}
		if update.DeliveryStatus != nil {
			m.orders[i].DeliveryStatus = *update.DeliveryStatus
		}
		return m.orders[i], nil
	}
	return domain.Order{}, domain.ErrNotFound
}

func (m *mockOrderRepo) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.orders, func(o domain.Order) bool { return o.ID == id })
	if i < 0 {
		return domain.ErrNotFound
	}
	m.orders = slices.Delete(m.orders, i, i+1)
	return nil
}

func (m *mockOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mock CartPersistence whose reads and writes can be made to fail
type failingPersistence struct {
	loadErr error
	saveErr error
	saves   atomic.Int32
}

func (f *failingPersistence) LoadCart(ctx context.Context, key string) ([]domain.CartLineItem, bool, error) {
	return nil, false, f.loadErr
}

func (f *failingPersistence) SaveCart(ctx context.Context, key string, items []domain.CartLineItem) error {
	f.saves.Add(1)
	return f.saveErr
}

// Mock OrderAPI. When block is set, CreateOrder waits on it before answering.
type mockOrderAPI struct {
	calls     atomic.Int32
	block     chan struct{}
	entered   chan struct{}
	err       error
	lastReq   domain.OrderRequest
	lastToken string
	mu        sync.Mutex
}

func (m *mockOrderAPI) CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.Order, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastReq, m.lastToken = req, token
	m.mu.Unlock()

	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return domain.Order{}, m.err
	}
	return domain.Order{
		ID:             "order-1",
		Items:          req.Items,
		DeliveryType:   req.DeliveryType,
		Subtotal:       req.Subtotal,
		DeliveryCharge: req.DeliveryCharge,
		TotalAmount:    req.TotalAmount,
		Customer:       req.Customer,
	}, nil
}

func (m *mockOrderAPI) ListOrders(ctx context.Context, token string) ([]domain.Order, error) {
	return nil, nil
}

type staticTokens string

func (t staticTokens) BearerToken() (string, bool) { return string(t), t != "" }

// Mock CatalogAPI
type mockCatalogAPI struct {
	products     []domain.Product
	categories   []domain.Category
	testimonials []domain.Testimonial
	content      map[string]domain.Content

	productsErr   error
	categoriesErr error
	calls         atomic.Int32
}

func (m *mockCatalogAPI) ListProducts(ctx context.Context, categoryID string) ([]domain.Product, error) {
	m.calls.Add(1)
	if m.productsErr != nil {
		return nil, m.productsErr
	}
	if categoryID == "" {
		return slices.Clone(m.products), nil
	}
	var out []domain.Product
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalogAPI) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	m.calls.Add(1)
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrNotFound
}

func (m *mockCatalogAPI) ListCategories(ctx context.Context) ([]domain.Category, error) {
	m.calls.Add(1)
	if m.categoriesErr != nil {
		return nil, m.categoriesErr
	}
	return slices.Clone(m.categories), nil
}

func (m *mockCatalogAPI) ListTestimonials(ctx context.Context) ([]domain.Testimonial, error) {
	m.calls.Add(1)
	return slices.Clone(m.testimonials), nil
}

func (m *mockCatalogAPI) GetContent(ctx context.Context, page string) (domain.Content, error) {
	m.calls.Add(1)
	c, ok := m.content[page]
	if !ok {
		return domain.Content{}, errBackend
	}
	return c, nil
}

// Mock AdminAPI keeping products in memory and counting writes
type mockAdminAPI struct {
	mockCatalogAPI
	mu        sync.Mutex
	writes    atomic.Int32
	writeErr  error
	lastToken string
	orders    []domain.Order
}

func (m *mockAdminAPI) write(token string) error {
	m.writes.Add(1)
	m.mu.Lock()
	m.lastToken = token
	m.mu.Unlock()
	return m.writeErr
}

func (m *mockAdminAPI) CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.Order, error) {
	return domain.Order{}, errors.New("not used")
}

func (m *mockAdminAPI) ListOrders(ctx context.Context, token string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.orders), nil
}

func (m *mockAdminAPI) CreateProduct(ctx context.Context, token string, p domain.Product) (domain.Product, error) {
	if err := m.write(token); err != nil {
		return domain.Product{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, p)
	return p, nil
}

func (m *mockAdminAPI) UpdateProduct(ctx context.Context, token string, p domain.Product) (domain.Product, error) {
	if err := m.write(token); err != nil {
		return domain.Product{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = p
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrNotFound
}

func (m *mockAdminAPI) DeleteProduct(ctx context.Context, token, id string) error {
	if err := m.write(token); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = slices.DeleteFunc(m.products, func(p domain.Product) bool { return p.ID == id })
	return nil
}

func (m *mockAdminAPI) CreateCategory(ctx context.Context, token string, c domain.Category) (domain.Category, error) {
	if err := m.write(token); err != nil {
		return domain.Category{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *mockAdminAPI) UpdateCategory(ctx context.Context, token string, c domain.Category) (domain.Category, error) {
	return c, m.write(token)
}

func (m *mockAdminAPI) DeleteCategory(ctx context.Context, token, id string) error {
	return m.write(token)
}

func (m *mockAdminAPI) CreateTestimonial(ctx context.Context, token string, t domain.Testimonial) (domain.Testimonial, error) {
	if err := m.write(token); err != nil {
		return domain.Testimonial{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.testimonials = append(m.testimonials, t)
	return t, nil
}

func (m *mockAdminAPI) DeleteTestimonial(ctx context.Context, token, id string) error {
	return m.write(token)
}

func (m *mockAdminAPI) UpdateOrderStatus(ctx context.Context, token, id string, update domain.OrderStatusUpdate) (domain.Order, error) {
	if err := m.write(token); err != nil {
		return domain.Order{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == id && update.DeliveryStatus != nil {
			m.orders[i].DeliveryStatus = *update.DeliveryStatus
			return m.orders[i], nil
		}
	}
	return domain.Order{}, domain.ErrNotFound
}

func (m *mockAdminAPI) DeleteOrder(ctx context.Context, token, id string) error {
	return m.write(token)
}

func (m *mockAdminAPI) UpdateContent(ctx context.Context, token string, c domain.Content) (domain.Content, error) {
	return c, m.write(token)
}

func (m *mockAdminAPI) UploadImage(ctx context.Context, token, filename string, body io.Reader) (string, error) {
	if err := m.write(token); err != nil {
		return "", err
	}
	return "https://cdn.test/" + filename, nil
}

// Mock IdentityProvider
type mockIdentity struct {
	users   map[string]domain.User // by email, password is always "secret"
	current *domain.User
	signOut error
}

func (m *mockIdentity) BearerToken() (string, bool) {
	if m.current == nil {
		return "", false
	}
	return "tok-" + m.current.ID, true
}

func (m *mockIdentity) CurrentUser() *domain.User { return m.current }

func (m *mockIdentity) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	u, ok := m.users[email]
	if !ok || password != "secret" {
		return nil, domain.ErrInvalidCredentials
	}
	m.current = &u
	return &u, nil
}

func (m *mockIdentity) SignUp(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	u := domain.User{ID: "new-" + email, Email: email, Role: role}
	return &u, nil
}

func (m *mockIdentity) SignOut(ctx context.Context) error {
	m.current = nil
	return m.signOut
}

type adminSession struct {
	token string
	admin bool
}

func (s adminSession) BearerToken() (string, bool) { return s.token, s.token != "" }
func (s adminSession) IsAdmin() bool               { return s.admin }

func product(id string, price int64) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, Price: decimal.NewFromInt(price)}
}
