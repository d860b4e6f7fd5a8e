package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var ErrInvalidInput = errors.New("invalid input")

// CatalogService backs the catalog, testimonial and content endpoints.
type CatalogService struct {
	db     port.CatalogRepository
	images port.ObjectStore
	logger *zap.Logger
	now    func() time.Time
}

func NewCatalogService(db port.CatalogRepository, images port.ObjectStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{db: db, images: images, logger: logger, now: time.Now}
}

func (s *CatalogService) ListProducts(ctx context.Context, categoryID string) ([]domain.Product, error) {
	return s.db.ListProducts(ctx, categoryID)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.db.GetProduct(ctx, id)
}

// CreateProduct stores a new product. A product created as featured counts
// against the featured limit.
func (s *CatalogService) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}

	p.ID = uuid.NewString()
	p.CreatedAt = s.now().UTC()
	if err := s.db.CreateProduct(ctx, p, domain.MaxFeaturedProducts); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// UpdateProduct replaces the editable fields of a product, featured flag
// included. A rejected write leaves the stored product untouched.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}

	p.ID = id
	if err := s.db.UpdateProduct(ctx, p, domain.MaxFeaturedProducts); err != nil {
		return domain.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return s.db.GetProduct(ctx, id)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.db.DeleteProduct(ctx, id)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.db.ListCategories(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Category{}, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	c.ID = uuid.NewString()
	c.CreatedAt = s.now().UTC()
	if err := s.db.CreateCategory(ctx, c); err != nil {
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, c domain.Category) (domain.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Category{}, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	c.ID = id
	if err := s.db.UpdateCategory(ctx, c); err != nil {
		return domain.Category{}, fmt.Errorf("update category %s: %w", id, err)
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return s.db.DeleteCategory(ctx, id)
}

func (s *CatalogService) ListTestimonials(ctx context.Context) ([]domain.Testimonial, error) {
	return s.db.ListTestimonials(ctx)
}

func (s *CatalogService) CreateTestimonial(ctx context.Context, t domain.Testimonial) (domain.Testimonial, error) {
	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Comment) == "" {
		return domain.Testimonial{}, fmt.Errorf("%w: name and comment are required", ErrInvalidInput)
	}
	if t.Rating < 1 || t.Rating > 5 {
		return domain.Testimonial{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()
	if err := s.db.CreateTestimonial(ctx, t); err != nil {
		return domain.Testimonial{}, fmt.Errorf("create testimonial: %w", err)
	}
	return t, nil
}

func (s *CatalogService) DeleteTestimonial(ctx context.Context, id string) error {
	return s.db.DeleteTestimonial(ctx, id)
}

// GetContent returns an empty body for a page nobody has written yet.
func (s *CatalogService) GetContent(ctx context.Context, page string) (domain.Content, error) {
	content, err := s.db.GetContent(ctx, page)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Content{Page: page}, nil
	}
	if err != nil {
		return domain.Content{}, fmt.Errorf("get content %s: %w", page, err)
	}
	return content, nil
}

func (s *CatalogService) PutContent(ctx context.Context, page, body string) (domain.Content, error) {
	if strings.TrimSpace(page) == "" {
		return domain.Content{}, fmt.Errorf("%w: page is required", ErrInvalidInput)
	}
	content := domain.Content{Page: page, Content: body, UpdatedAt: s.now().UTC()}
	if err := s.db.PutContent(ctx, content); err != nil {
		return domain.Content{}, fmt.Errorf("put content %s: %w", page, err)
	}
	return content, nil
}

// UploadImage stores an image under a fresh name that keeps the original
// extension and returns its public URL.
func (s *CatalogService) UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %q is not an image", ErrInvalidInput, contentType)
	}

	name := uuid.NewString() + strings.ToLower(path.Ext(filename))
	url, err := s.images.Upload(ctx, name, contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	s.logger.Info("uploaded image", zap.String("name", name))
	return url, nil
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	return nil
}
