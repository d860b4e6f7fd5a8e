package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var ErrAdminRequired = errors.New("admin role required")

// AdminSession is what the back-office needs from the signed-in session.
type AdminSession interface {
	port.TokenSource
	IsAdmin() bool
}

// AdminPanel issues back-office writes and keeps the lists it shows in sync:
// a list is refetched after every successful write to it and left as it was
// after a failed one.
type AdminPanel struct {
	api     port.AdminAPI
	session AdminSession
	logger  *zap.Logger

	mu           sync.Mutex
	products     []domain.Product
	categories   []domain.Category
	testimonials []domain.Testimonial
	orders       []domain.Order
}

func NewAdminPanel(api port.AdminAPI, session AdminSession, logger *zap.Logger) *AdminPanel {
	return &AdminPanel{api: api, session: session, logger: logger}
}

func (a *AdminPanel) Products() []domain.Product {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.products)
}

func (a *AdminPanel) Categories() []domain.Category {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.categories)
}

func (a *AdminPanel) Testimonials() []domain.Testimonial {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.testimonials)
}

func (a *AdminPanel) Orders() []domain.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.orders)
}

// FeaturedCount counts featured products in the local list.
func (a *AdminPanel) FeaturedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, p := range a.products {
		if p.IsFeatured {
			n++
		}
	}
	return n
}

func (a *AdminPanel) RefreshProducts(ctx context.Context) error {
	products, err := a.api.ListProducts(ctx, "")
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	a.mu.Lock()
	a.products = products
	a.mu.Unlock()
	return nil
}

func (a *AdminPanel) RefreshCategories(ctx context.Context) error {
	categories, err := a.api.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	a.mu.Lock()
	a.categories = categories
	a.mu.Unlock()
	return nil
}

func (a *AdminPanel) RefreshTestimonials(ctx context.Context) error {
	testimonials, err := a.api.ListTestimonials(ctx)
	if err != nil {
		return fmt.Errorf("list testimonials: %w", err)
	}
	a.mu.Lock()
	a.testimonials = testimonials
	a.mu.Unlock()
	return nil
}

func (a *AdminPanel) RefreshOrders(ctx context.Context) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	orders, err := a.api.ListOrders(ctx, token)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}
	a.mu.Lock()
	a.orders = orders
	a.mu.Unlock()
	return nil
}

func (a *AdminPanel) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	token, err := a.token()
	if err != nil {
		return domain.Product{}, err
	}
	created, err := a.api.CreateProduct(ctx, token, product)
	if err != nil {
		return domain.Product{}, a.failed("create product", err)
	}
	a.refresh(ctx, a.RefreshProducts)
	return created, nil
}

func (a *AdminPanel) UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	token, err := a.token()
	if err != nil {
		return domain.Product{}, err
	}
	updated, err := a.api.UpdateProduct(ctx, token, product)
	if err != nil {
		return domain.Product{}, a.failed("update product", err)
	}
	a.refresh(ctx, a.RefreshProducts)
	return updated, nil
}

func (a *AdminPanel) DeleteProduct(ctx context.Context, id string) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	if err := a.api.DeleteProduct(ctx, token, id); err != nil {
		return a.failed("delete product", err)
	}
	a.refresh(ctx, a.RefreshProducts)
	return nil
}

// ToggleFeatured flips a product's featured flag. Featuring a product when
// domain.MaxFeaturedProducts are already featured fails without a request;
// the server enforces the same limit.
func (a *AdminPanel) ToggleFeatured(ctx context.Context, id string) (domain.Product, error) {
	token, err := a.token()
	if err != nil {
		return domain.Product{}, err
	}

	product, ok := a.cachedProduct(id)
	if !ok {
		// the list may not have been loaded yet
		if err := a.RefreshProducts(ctx); err != nil {
			return domain.Product{}, err
		}
		if product, ok = a.cachedProduct(id); !ok {
			return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
		}
	}

	if !product.IsFeatured && a.FeaturedCount() >= domain.MaxFeaturedProducts {
		return domain.Product{}, domain.ErrFeaturedLimit
	}

	product.IsFeatured = !product.IsFeatured
	updated, err := a.api.UpdateProduct(ctx, token, product)
	if err != nil {
		return domain.Product{}, a.failed("toggle featured", err)
	}
	a.refresh(ctx, a.RefreshProducts)
	return updated, nil
}

func (a *AdminPanel) cachedProduct(id string) (domain.Product, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := slices.IndexFunc(a.products, func(p domain.Product) bool { return p.ID == id })
	if i < 0 {
		return domain.Product{}, false
	}
	return a.products[i], true
}

func (a *AdminPanel) CreateCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	token, err := a.token()
	if err != nil {
		return domain.Category{}, err
	}
	created, err := a.api.CreateCategory(ctx, token, category)
	if err != nil {
		return domain.Category{}, a.failed("create category", err)
	}
	a.refresh(ctx, a.RefreshCategories)
	return created, nil
}

func (a *AdminPanel) UpdateCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	token, err := a.token()
	if err != nil {
		return domain.Category{}, err
	}
	updated, err := a.api.UpdateCategory(ctx, token, category)
	if err != nil {
		return domain.Category{}, a.failed("update category", err)
	}
	a.refresh(ctx, a.RefreshCategories)
	return updated, nil
}

func (a *AdminPanel) DeleteCategory(ctx context.Context, id string) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	if err := a.api.DeleteCategory(ctx, token, id); err != nil {
		return a.failed("delete category", err)
	}
	a.refresh(ctx, a.RefreshCategories)
	return nil
}

func (a *AdminPanel) CreateTestimonial(ctx context.Context, testimonial domain.Testimonial) (domain.Testimonial, error) {
	token, err := a.token()
	if err != nil {
		return domain.Testimonial{}, err
	}
	created, err := a.api.CreateTestimonial(ctx, token, testimonial)
	if err != nil {
		return domain.Testimonial{}, a.failed("create testimonial", err)
	}
	a.refresh(ctx, a.RefreshTestimonials)
	return created, nil
}

func (a *AdminPanel) DeleteTestimonial(ctx context.Context, id string) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	if err := a.api.DeleteTestimonial(ctx, token, id); err != nil {
		return a.failed("delete testimonial", err)
	}
	a.refresh(ctx, a.RefreshTestimonials)
	return nil
}

func (a *AdminPanel) UpdateOrderStatus(ctx context.Context, id string, update domain.OrderStatusUpdate) (domain.Order, error) {
	token, err := a.token()
	if err != nil {
		return domain.Order{}, err
	}
	order, err := a.api.UpdateOrderStatus(ctx, token, id, update)
	if err != nil {
		return domain.Order{}, a.failed("update order", err)
	}
	a.refresh(ctx, a.RefreshOrders)
	return order, nil
}

func (a *AdminPanel) DeleteOrder(ctx context.Context, id string) error {
	token, err := a.token()
	if err != nil {
		return err
	}
	if err := a.api.DeleteOrder(ctx, token, id); err != nil {
		return a.failed("delete order", err)
	}
	a.refresh(ctx, a.RefreshOrders)
	return nil
}

func (a *AdminPanel) Content(ctx context.Context, page string) (domain.Content, error) {
	content, err := a.api.GetContent(ctx, page)
	if err != nil {
		return domain.Content{}, fmt.Errorf("get content %s: %w", page, err)
	}
	return content, nil
}

func (a *AdminPanel) UpdateContent(ctx context.Context, page, body string) (domain.Content, error) {
	token, err := a.token()
	if err != nil {
		return domain.Content{}, err
	}
	content, err := a.api.UpdateContent(ctx, token, domain.Content{Page: page, Content: body})
	if err != nil {
		return domain.Content{}, a.failed("update content", err)
	}
	return content, nil
}

// UploadImage returns the public URL of the stored image.
func (a *AdminPanel) UploadImage(ctx context.Context, filename string, body io.Reader) (string, error) {
	token, err := a.token()
	if err != nil {
		return "", err
	}
	url, err := a.api.UploadImage(ctx, token, filename, body)
	if err != nil {
		return "", a.failed("upload image", err)
	}
	return url, nil
}

func (a *AdminPanel) token() (string, error) {
	if !a.session.IsAdmin() {
		return "", ErrAdminRequired
	}
	token, ok := a.session.BearerToken()
	if !ok {
		return "", domain.ErrNotAuthenticated
	}
	return token, nil
}

func (a *AdminPanel) failed(op string, err error) error {
	a.logger.Warn("admin operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

// refresh reloads a list after a successful write. The write already took
// effect, so a failed reload is only logged.
func (a *AdminPanel) refresh(ctx context.Context, reload func(context.Context) error) {
	if err := reload(ctx); err != nil {
		a.logger.Warn("failed to refresh list", zap.Error(err))
	}
}
