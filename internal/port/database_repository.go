package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type CatalogRepository interface {
	// ListProducts returns all products, or only those in categoryID when it is set
	ListProducts(ctx context.Context, categoryID string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)

	// CreateProduct and UpdateProduct write the row and check the featured
	// limit atomically; on domain.ErrFeaturedLimit nothing is stored
	CreateProduct(ctx context.Context, product domain.Product, featuredLimit int) error
	UpdateProduct(ctx context.Context, product domain.Product, featuredLimit int) error

	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) error
	UpdateCategory(ctx context.Context, category domain.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListTestimonials(ctx context.Context) ([]domain.Testimonial, error)
	CreateTestimonial(ctx context.Context, testimonial domain.Testimonial) error
	DeleteTestimonial(ctx context.Context, id string) error

	// GetContent returns domain.ErrNotFound when the page has never been written
	GetContent(ctx context.Context, page string) (domain.Content, error)
	PutContent(ctx context.Context, content domain.Content) error
}

type OrderRepository interface {
	// CreateOrder persists the order and its items atomically
	CreateOrder(ctx context.Context, order domain.Order) error

	// ListOrders returns every order when userID is empty
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)

	UpdateOrderStatus(ctx context.Context, id string, update domain.OrderStatusUpdate) (domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

type DatabaseRepository interface {
	CatalogRepository
	OrderRepository
}
