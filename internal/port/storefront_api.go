package port

import (
	"context"
	"io"

	"github.com/rl1809/storefront/internal/core/domain"
)

// CatalogAPI is the public, unauthenticated read side of the storefront API.
type CatalogAPI interface {
	ListProducts(ctx context.Context, categoryID string) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListTestimonials(ctx context.Context) ([]domain.Testimonial, error)
	GetContent(ctx context.Context, page string) (domain.Content, error)
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.Order, error)
	ListOrders(ctx context.Context, token string) ([]domain.Order, error)
}

// AdminAPI holds the writes that require an admin bearer token.
type AdminAPI interface {
	CatalogAPI
	OrderAPI

	CreateProduct(ctx context.Context, token string, product domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, token string, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, token string, id string) error

	CreateCategory(ctx context.Context, token string, category domain.Category) (domain.Category, error)
	UpdateCategory(ctx context.Context, token string, category domain.Category) (domain.Category, error)
	DeleteCategory(ctx context.Context, token string, id string) error

	CreateTestimonial(ctx context.Context, token string, testimonial domain.Testimonial) (domain.Testimonial, error)
	DeleteTestimonial(ctx context.Context, token string, id string) error

	UpdateOrderStatus(ctx context.Context, token string, id string, update domain.OrderStatusUpdate) (domain.Order, error)
	DeleteOrder(ctx context.Context, token string, id string) error

	UpdateContent(ctx context.Context, token string, content domain.Content) (domain.Content, error)
	UploadImage(ctx context.Context, token string, filename string, body io.Reader) (string, error)
}
