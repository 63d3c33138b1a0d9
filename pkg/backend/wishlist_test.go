package backend

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlistRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in, err := f.client.InWishlist(ctx, 2)
	require.NoError(t, err)
	assert.False(t, in)

	require.NoError(t, f.client.AddToWishlist(ctx, 2))
	require.NoError(t, f.client.AddToWishlist(ctx, 2), "adding twice succeeds")
	require.NoError(t, f.client.AddToWishlist(ctx, 5))

	in, err = f.client.InWishlist(ctx, 2)
	require.NoError(t, err)
	assert.True(t, in)

	entries, err := f.client.Wishlist(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].Game)
	assert.Equal(t, "Game 02", entries[0].GameDetails.Name)
	assert.Equal(t, List{"Action"}, entries[0].GameDetails.Genres)

	require.NoError(t, f.client.RemoveFromWishlist(ctx, 2))
	assert.False(t, f.srv.InWishlist(f.userID, 2))

	err = f.client.RemoveFromWishlist(ctx, 2)
	assert.EqualError(t, err, "Game is not in your wishlist.")
}

func TestInWishlist_LegacyShapes(t *testing.T) {
	f := newFixture(t)

	f.srv.Fail(http.MethodGet, "/wishlist/game/7/", http.StatusNotFound, `{"detail":"Not found."}`, 1)
	in, err := f.client.InWishlist(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, in)

	f.srv.Fail(http.MethodGet, "/wishlist/game/7/", http.StatusOK, `{"id":3,"game":7}`, 1)
	in, err = f.client.InWishlist(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, in)
}
