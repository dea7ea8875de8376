package catalog

import (
	"context"
	"testing"
	"time"

	"storefront-state/internal/cart"
	"storefront-state/internal/domain"
	"storefront-state/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCatalog_Seed(t *testing.T) {
	c := NewMockCatalog(nil, 0)

	products, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 6)
	assert.Equal(t, "Laptop HP Pavilion", products[0].Name)
	assert.InDelta(t, 79.99, products[5].Price, 1e-9)
}

func TestMockCatalog_Get(t *testing.T) {
	c := NewMockCatalog(nil, 0)

	p, err := c.Get(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Mouse Logitech MX Master 3", p.Name)

	_, err = c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMockCatalog_Create(t *testing.T) {
	c := NewMockCatalog([]domain.ProductSnapshot{}, 0)

	created, err := c.Create(context.Background(), domain.ProductSnapshot{Name: "Cable USB-C", Price: 9.99, Stock: 5, Category: "Accesorios"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, DefaultSellerName, created.SellerName)

	_, err = c.Create(context.Background(), domain.ProductSnapshot{Name: " ", Price: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = c.Create(context.Background(), domain.ProductSnapshot{Name: "x", Price: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	products, _ := c.List(context.Background())
	assert.Len(t, products, 1)
}

func TestMockCatalog_UpdateDelete(t *testing.T) {
	c := NewMockCatalog(nil, 0)
	ctx := context.Background()

	t.Run("update_existing", func(t *testing.T) {
		p, err := c.Get(ctx, "3")
		require.NoError(t, err)
		p.Price = 129.99
		p.SellerName = ""

		updated, err := c.Update(ctx, p)
		require.NoError(t, err)
		assert.InDelta(t, 129.99, updated.Price, 1e-9)
		assert.Equal(t, "Gaming Pro", updated.SellerName)
	})

	t.Run("update_missing", func(t *testing.T) {
		_, err := c.Update(ctx, domain.ProductSnapshot{ID: "nope", Name: "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, "6"))
		assert.ErrorIs(t, c.Delete(ctx, "6"), domain.ErrNotFound)
	})
}

func TestMockCatalog_LatencyHonoursContext(t *testing.T) {
	c := NewMockCatalog(nil, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.List(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPriceChangeDoesNotRepriceCart(t *testing.T) {
	ctx := context.Background()
	c := NewMockCatalog(nil, 0)
	carts := cart.NewStore(storage.NewMemoryStore())

	laptop, err := c.Get(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, carts.AddItem(laptop, 1))

	laptop.Price = 999.99
	_, err = c.Update(ctx, laptop)
	require.NoError(t, err)

	assert.InDelta(t, 1299.99, carts.Subtotal(), 1e-9)
}
