package catalog

import (
	"context"
	"errors"
	"testing"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/nursery-checkout/internal/aws/dynamotest"
)

const table = "catalog"

func newStore(t *testing.T, items ...State) (*Store, *dynamotest.Fake) {
	t.Helper()
	db := dynamotest.New()
	db.CreateTable(table, "item_key", "")
	for _, it := range items {
		require.NoError(t, db.Seed(table, it))
	}
	return NewStore(db, table), db
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "product#p-1#s:M#c:green", Key{Kind: KindProduct, ItemID: "p-1", Size: "M", Color: "green"}.String())
	assert.Equal(t, "product#p-1", Key{Kind: KindProduct, ItemID: "p-1", Size: " "}.String())
	assert.Equal(t, "hamper#h-1", Key{Kind: KindHamper, ItemID: "h-1", Size: "L", Color: "red"}.String())
}

func TestStore_State(t *testing.T) {
	key := Key{Kind: KindCombo, ItemID: "c-1"}
	s, _ := newStore(t, State{ItemKey: key.String(), Kind: KindCombo, ItemID: "c-1", Name: "Succulent trio", Active: true, Price: 59900, Stock: 4})

	st, err := s.State(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, int64(59900), st.Price)
	assert.Equal(t, int64(4), st.Stock)

	missing, err := s.State(context.Background(), Key{Kind: KindCombo, ItemID: "nope"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_DecrementItemNeverGoesNegative(t *testing.T) {
	key := Key{Kind: KindProduct, ItemID: "p-1"}.String()
	s, db := newStore(t, State{ItemKey: key, Kind: KindProduct, ItemID: "p-1", Active: true, Price: 100, Stock: 5})
	ctx := context.Background()

	_, err := db.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{s.DecrementItem(key, 3)}})
	require.NoError(t, err)

	_, err = db.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{s.DecrementItem(key, 3)}})
	var tce *types.TransactionCanceledException
	require.True(t, errors.As(err, &tce))

	var st State
	ok, err := db.Load(table, &st, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), st.Stock)

	_, err = db.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{s.DecrementItem("product#ghost", 1)}})
	require.Error(t, err, "decrementing an unknown item must fail")
	assert.Equal(t, 1, db.Count(table))
}
