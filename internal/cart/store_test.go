package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/nursery-checkout/internal/aws/dynamotest"
	"github.com/imrishuroy/nursery-checkout/internal/catalog"
)

func TestStore_GetAndClear(t *testing.T) {
	db := dynamotest.New()
	db.CreateTable("carts", "user_id", "")
	s := NewStore(db, "carts")
	ctx := context.Background()

	items, err := s.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, db.Seed("carts", Record{
		UserID:    "u-1",
		Items:     []LineItem{{Kind: catalog.KindProduct, ItemID: "fern", Size: "M", Quantity: 2, DisplayPrice: 34900}},
		UpdatedAt: time.Now().UTC(),
	}))

	items, err = s.Get(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "product#fern#s:M", items[0].Key().String())

	require.NoError(t, s.Clear(ctx, "u-1"))
	require.NoError(t, s.Clear(ctx, "u-1"), "clearing twice is fine")
	assert.Equal(t, 0, db.Count("carts"))
}
