package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const homeCategoryCount = 4

type HomeView struct {
	Featured     []domain.Product
	Categories   []domain.Category
	Testimonials []domain.Testimonial
}

type ShopView struct {
	Categories []domain.Category
	Products   []domain.Product
}

// Catalog is the read-only side of the storefront. A failed read is logged
// and yields an empty list so the page stays usable.
type Catalog struct {
	api    port.CatalogAPI
	logger *zap.Logger
}

func NewCatalog(api port.CatalogAPI, logger *zap.Logger) *Catalog {
	return &Catalog{api: api, logger: logger}
}

// Home issues its three reads concurrently.
func (c *Catalog) Home(ctx context.Context) HomeView {
	var (
		wg           sync.WaitGroup
		products     []domain.Product
		categories   []domain.Category
		testimonials []domain.Testimonial
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		products = c.products(ctx, "")
	}()
	go func() {
		defer wg.Done()
		categories = c.categories(ctx)
	}()
	go func() {
		defer wg.Done()
		testimonials = c.testimonials(ctx)
	}()
	wg.Wait()

	return HomeView{
		Featured:     featured(products),
		Categories:   firstN(categories, homeCategoryCount),
		Testimonials: testimonials,
	}
}

func (c *Catalog) Shop(ctx context.Context, categoryID string) ShopView {
	var (
		wg   sync.WaitGroup
		view ShopView
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		view.Categories = c.categories(ctx)
	}()
	go func() {
		defer wg.Done()
		view.Products = c.products(ctx, categoryID)
	}()
	wg.Wait()

	return view
}

func (c *Catalog) Product(ctx context.Context, id string) (domain.Product, error) {
	return c.api.GetProduct(ctx, id)
}

// Content returns an empty body when the page cannot be read.
func (c *Catalog) Content(ctx context.Context, page string) domain.Content {
	content, err := c.api.GetContent(ctx, page)
	if err != nil {
		c.logger.Warn("failed to fetch content", zap.String("page", page), zap.Error(err))
		return domain.Content{Page: page}
	}
	return content
}

func (c *Catalog) products(ctx context.Context, categoryID string) []domain.Product {
	products, err := c.api.ListProducts(ctx, categoryID)
	if err != nil {
		c.logger.Warn("failed to fetch products", zap.String("category_id", categoryID), zap.Error(err))
		return nil
	}
	return products
}

func (c *Catalog) categories(ctx context.Context) []domain.Category {
	categories, err := c.api.ListCategories(ctx)
	if err != nil {
		c.logger.Warn("failed to fetch categories", zap.Error(err))
		return nil
	}
	return categories
}

func (c *Catalog) testimonials(ctx context.Context) []domain.Testimonial {
	testimonials, err := c.api.ListTestimonials(ctx)
	if err != nil {
		c.logger.Warn("failed to fetch testimonials", zap.Error(err))
		return nil
	}
	return testimonials
}

// featured picks the highlighted products, falling back to the first few
// when none are flagged.
func featured(products []domain.Product) []domain.Product {
	var out []domain.Product
	for _, p := range products {
		if p.IsFeatured {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = products
	}
	return firstN(out, domain.MaxFeaturedProducts)
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// View holds the latest result of a fetch for a page that can be navigated
// away from. Each Load takes a ticket from a generation counter and its
// result is kept only if no later Load or Leave has happened since.
type View[T any] struct {
	mu    sync.Mutex
	gen   uint64
	value T
	ready bool
}

// Load runs fetch and stores its result. It reports false when the result
// was discarded as stale.
func (v *View[T]) Load(ctx context.Context, fetch func(context.Context) T) bool {
	v.mu.Lock()
	v.gen++
	ticket := v.gen
	v.mu.Unlock()

	value := fetch(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if ticket != v.gen || ctx.Err() != nil {
		return false
	}
	v.value, v.ready = value, true
	return true
}

// Leave invalidates every outstanding Load.
func (v *View[T]) Leave() {
	v.mu.Lock()
	defer v.mu.Unlock()

	var zero T
	v.gen++
	v.value, v.ready = zero, false
}

func (v *View[T]) Value() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.ready
}
