package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func TestMemoryRepository_Products(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.CreateProduct(ctx, domain.Product{ID: "a", Name: "A", CategoryID: "spices"}, 4))
	require.NoError(t, repo.CreateProduct(ctx, domain.Product{ID: "b", Name: "B"}, 4))

	all, err := repo.ListProducts(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	spices, err := repo.ListProducts(ctx, "spices")
	require.NoError(t, err)
	assert.Len(t, spices, 1)

	require.NoError(t, repo.UpdateProduct(ctx, domain.Product{ID: "a", Name: "A2", IsFeatured: true}, 4))
	got, err := repo.GetProduct(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)
	assert.True(t, got.IsFeatured)

	assert.ErrorIs(t, repo.UpdateProduct(ctx, domain.Product{ID: "zzz"}, 4), domain.ErrNotFound)
	require.NoError(t, repo.DeleteProduct(ctx, "a"))
	assert.ErrorIs(t, repo.DeleteProduct(ctx, "a"), domain.ErrNotFound)
	_, err = repo.GetProduct(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepository_FeaturedLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.CreateProduct(ctx, domain.Product{ID: "a", IsFeatured: true}, 2))
	require.NoError(t, repo.CreateProduct(ctx, domain.Product{ID: "b", IsFeatured: true}, 2))

	err := repo.CreateProduct(ctx, domain.Product{ID: "c", IsFeatured: true}, 2)
	assert.ErrorIs(t, err, domain.ErrFeaturedLimit)
	_, err = repo.GetProduct(ctx, "c")
	assert.ErrorIs(t, err, domain.ErrNotFound, "rejected create is not stored")

	require.NoError(t, repo.CreateProduct(ctx, domain.Product{ID: "c", Name: "C"}, 2))
	err = repo.UpdateProduct(ctx, domain.Product{ID: "c", Name: "C2", IsFeatured: true}, 2)
	assert.ErrorIs(t, err, domain.ErrFeaturedLimit)
	got, err := repo.GetProduct(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "C", got.Name, "rejected update changes nothing")
	assert.False(t, got.IsFeatured)

	assert.NoError(t, repo.UpdateProduct(ctx, domain.Product{ID: "a", Name: "A2", IsFeatured: true}, 2),
		"already featured does not count twice")

	require.NoError(t, repo.UpdateProduct(ctx, domain.Product{ID: "a"}, 2))
	require.NoError(t, repo.UpdateProduct(ctx, domain.Product{ID: "c", IsFeatured: true}, 2))
	got, err = repo.GetProduct(ctx, "c")
	require.NoError(t, err)
	assert.True(t, got.IsFeatured)
}

func TestMemoryRepository_FeaturedLimitConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		require.NoError(t, repo.CreateProduct(ctx, domain.Product{ID: id}, domain.MaxFeaturedProducts))
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := repo.UpdateProduct(ctx, domain.Product{ID: id, IsFeatured: true}, domain.MaxFeaturedProducts); err == nil {
				successCount.Add(1)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, int32(domain.MaxFeaturedProducts), successCount.Load())
}

func TestMemoryRepository_Orders(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now()

	require.NoError(t, repo.CreateOrder(ctx, domain.Order{ID: "o1", UserID: "alice", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.CreateOrder(ctx, domain.Order{ID: "o2", UserID: "bob", CreatedAt: now}))
	require.NoError(t, repo.CreateOrder(ctx, domain.Order{ID: "o3", UserID: "alice", CreatedAt: now.Add(time.Minute)}))

	all, err := repo.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "o3", all[0].ID)

	mine, err := repo.ListOrders(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "o3", mine[0].ID)
	assert.Equal(t, "o1", mine[1].ID)

	paid := domain.PaymentStatusPaid
	order, err := repo.UpdateOrderStatus(ctx, "o1", domain.OrderStatusUpdate{PaymentStatus: &paid})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)

	_, err = repo.UpdateOrderStatus(ctx, "zzz", domain.OrderStatusUpdate{PaymentStatus: &paid})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.DeleteOrder(ctx, "o2"))
	assert.ErrorIs(t, repo.DeleteOrder(ctx, "o2"), domain.ErrNotFound)
}

func TestMemoryRepository_CategoriesTestimonialsContent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.CreateCategory(ctx, domain.Category{ID: "c1", Name: "Spices"}))
	require.NoError(t, repo.UpdateCategory(ctx, domain.Category{ID: "c1", Name: "Herbs"}))
	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Herbs", categories[0].Name)
	assert.ErrorIs(t, repo.UpdateCategory(ctx, domain.Category{ID: "zzz"}), domain.ErrNotFound)
	require.NoError(t, repo.DeleteCategory(ctx, "c1"))

	require.NoError(t, repo.CreateTestimonial(ctx, domain.Testimonial{ID: "t1"}))
	testimonials, err := repo.ListTestimonials(ctx)
	require.NoError(t, err)
	assert.Len(t, testimonials, 1)
	require.NoError(t, repo.DeleteTestimonial(ctx, "t1"))
	assert.ErrorIs(t, repo.DeleteTestimonial(ctx, "t1"), domain.ErrNotFound)

	_, err = repo.GetContent(ctx, "about")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, repo.PutContent(ctx, domain.Content{Page: "about", Content: "hi"}))
	c, err := repo.GetContent(ctx, "about")
	require.NoError(t, err)
	assert.Equal(t, "hi", c.Content)
}

func TestMemoryCache_Idempotency(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	ok, err := cache.SetIdempotency(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = cache.SetIdempotency(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, cache.ReleaseIdempotency(ctx, "k"))
	ok, _ = cache.SetIdempotency(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryCartStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCartStore()

	_, found, err := store.LoadCart(ctx, "cart_guest")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SaveCart(ctx, "cart_guest", []domain.CartLineItem{{ProductID: "a", Quantity: 1}}))
	items, found, err := store.LoadCart(ctx, "cart_guest")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, items, 1)

	store.SetRaw("cart_guest", []byte("garbage"))
	_, _, err = store.LoadCart(ctx, "cart_guest")
	assert.Error(t, err)
}
