package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleWishlist(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	added, err := ledger.ToggleWishlist(ctx, "sid", 1)
	require.NoError(t, err)
	assert.True(t, added)

	count, err := ledger.WishlistCount(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	added, err = ledger.ToggleWishlist(ctx, "sid", 1)
	require.NoError(t, err)
	assert.False(t, added)

	count, err = ledger.WishlistCount(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestToggleWishlistNoExistenceCheck(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	// Ids that do not resolve to a product are still accepted here.
	added, err := ledger.ToggleWishlist(ctx, "sid", 999)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestWishlistProductsDropsStale(t *testing.T) {
	ledger, catalog := setupLedger(t)
	ctx := context.Background()

	_, err := ledger.ToggleWishlist(ctx, "sid", 1)
	require.NoError(t, err)
	_, err = ledger.ToggleWishlist(ctx, "sid", 2)
	require.NoError(t, err)

	delete(catalog.products, 1)

	products, err := ledger.WishlistProducts(ctx, "sid")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(2), products[0].ID)

	// The stale id is dropped from the view, not from the wishlist.
	count, err := ledger.WishlistCount(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
