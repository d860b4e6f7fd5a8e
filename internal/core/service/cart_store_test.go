package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
)

func newTestCart(t *testing.T) (*CartStore, *storage.MemoryCartStore) {
	t.Helper()
	persistence := storage.NewMemoryCartStore()
	return NewCartStore(context.Background(), persistence, zap.NewNop()), persistence
}

func TestCartStore_AddItemIncrements(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	require.NoError(t, cart.AddItem(ctx, product("a", 100), 1))
	require.NoError(t, cart.AddItem(ctx, product("a", 100), 2))
	require.NoError(t, cart.AddItem(ctx, product("b", 250), 1))

	items := cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 4, cart.TotalItemCount())
	assert.True(t, cart.TotalPrice().Equal(decimal.NewFromInt(550)))
}

func TestCartStore_AddItemRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	assert.ErrorIs(t, cart.AddItem(ctx, product("a", 100), 0), ErrInvalidQuantity)
	assert.ErrorIs(t, cart.AddItem(ctx, product("a", 100), -2), ErrInvalidQuantity)
	assert.ErrorIs(t, cart.AddItem(ctx, domain.Product{Price: decimal.NewFromInt(1)}, 1), ErrInvalidProduct)
	assert.ErrorIs(t, cart.AddItem(ctx, product("a", -1), 1), ErrInvalidProduct)
	assert.Empty(t, cart.Items())
}

func TestCartStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)
	require.NoError(t, cart.AddItem(ctx, product("a", 100), 1))
	require.NoError(t, cart.AddItem(ctx, product("b", 250), 1))

	cart.UpdateQuantity(ctx, "a", 5)
	assert.Equal(t, 5, cart.Items()[0].Quantity)

	cart.UpdateQuantity(ctx, "missing", 3)
	assert.Len(t, cart.Items(), 2)

	cart.UpdateQuantity(ctx, "a", 0)
	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ProductID)

	cart.UpdateQuantity(ctx, "b", -1)
	assert.Empty(t, cart.Items())
}

func TestCartStore_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)
	require.NoError(t, cart.AddItem(ctx, product("a", 100), 1))
	require.NoError(t, cart.AddItem(ctx, product("b", 250), 1))

	cart.RemoveItem(ctx, "missing")
	assert.Len(t, cart.Items(), 2)

	cart.RemoveItem(ctx, "a")
	assert.Len(t, cart.Items(), 1)

	cart.Clear(ctx)
	assert.Empty(t, cart.Items())
	assert.True(t, cart.TotalPrice().IsZero())
}

func TestCartStore_PriceCapturedAtAdd(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	p := product("a", 100)
	require.NoError(t, cart.AddItem(ctx, p, 1))
	p.Price = decimal.NewFromInt(999)
	require.NoError(t, cart.AddItem(ctx, p, 1))

	assert.True(t, cart.TotalPrice().Equal(decimal.NewFromInt(200)))
}

func TestCartStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	cart, persistence := newTestCart(t)
	require.NoError(t, cart.AddItem(ctx, product("a", 100), 2))

	raw, ok := persistence.Raw(domain.CartStorageKey(domain.GuestIdentity))
	require.True(t, ok)
	assert.Contains(t, string(raw), `"id":"a"`)

	reloaded := NewCartStore(ctx, persistence, zap.NewNop())
	items := reloaded.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, reloaded.TotalPrice().Equal(cart.TotalPrice()))
}

func TestCartStore_IdentityIsolation(t *testing.T) {
	ctx := context.Background()
	cart, _ := newTestCart(t)

	require.NoError(t, cart.AddItem(ctx, product("guest-item", 10), 1))

	cart.SwitchIdentity(ctx, "alice")
	assert.Equal(t, domain.IdentityKey("alice"), cart.Identity())
	assert.Empty(t, cart.Items(), "switching never merges carts")
	require.NoError(t, cart.AddItem(ctx, product("alice-item", 20), 1))

	cart.SwitchIdentity(ctx, domain.GuestIdentity)
	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "guest-item", items[0].ProductID)

	cart.SwitchIdentity(ctx, "alice")
	items = cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "alice-item", items[0].ProductID)
}

func TestCartStore_RemoveOrdered(t *testing.T) {
	ctx := context.Background()
	cart, persistence := newTestCart(t)
	require.NoError(t, cart.AddItem(ctx, product("guest-item", 10), 1))
	guestOrder := cart.Items()

	cart.SwitchIdentity(ctx, "alice")
	require.NoError(t, cart.AddItem(ctx, product("alice-item", 20), 1))

	// another identity's cart is updated in storage, the active one is left alone
	cart.RemoveOrdered(ctx, domain.GuestIdentity, guestOrder)
	assert.Len(t, cart.Items(), 1)

	reloaded := NewCartStore(ctx, persistence, zap.NewNop())
	assert.Empty(t, reloaded.Items())

	ordered := cart.Items()
	require.NoError(t, cart.AddItem(ctx, product("alice-item", 20), 2))
	require.NoError(t, cart.AddItem(ctx, product("late-item", 5), 1))

	cart.RemoveOrdered(ctx, "alice", ordered)
	items := cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "alice-item", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity, "quantity added after the order stays")
	assert.Equal(t, "late-item", items[1].ProductID)

	cart.RemoveOrdered(ctx, "alice", items)
	assert.Empty(t, cart.Items())
}

func TestCartStore_CorruptDataStartsEmpty(t *testing.T) {
	ctx := context.Background()
	persistence := storage.NewMemoryCartStore()

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{{{"},
		{"zero quantity", `[{"id":"a","name":"A","price":"1","quantity":0}]`},
		{"duplicate lines", `[{"id":"a","price":"1","quantity":1},{"id":"a","price":"1","quantity":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persistence.SetRaw(domain.CartStorageKey("bob"), []byte(tt.raw))
			cart := NewCartStore(ctx, persistence, zap.NewNop())
			cart.SwitchIdentity(ctx, "bob")
			assert.Empty(t, cart.Items())

			require.NoError(t, cart.AddItem(ctx, product("a", 5), 1))
			assert.Len(t, cart.Items(), 1)
		})
	}
}

func TestCartStore_StorageFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	persistence := &failingPersistence{loadErr: errBackend, saveErr: errBackend}
	cart := NewCartStore(ctx, persistence, zap.NewNop())

	assert.Empty(t, cart.Items())
	require.NoError(t, cart.AddItem(ctx, product("a", 100), 1))
	assert.Len(t, cart.Items(), 1)
	assert.Equal(t, int32(1), persistence.saves.Load())
}

func TestCartStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	cart, persistence := newTestCart(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cart.AddItem(ctx, product("a", 1), 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, cart.TotalItemCount())
	reloaded := NewCartStore(ctx, persistence, zap.NewNop())
	assert.Equal(t, 50, reloaded.TotalItemCount())
}
