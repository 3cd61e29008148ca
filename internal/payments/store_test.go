package payments

import (
	"context"
	"testing"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/nursery-checkout/internal/aws/dynamotest"
	"github.com/imrishuroy/nursery-checkout/internal/catalog"
	"github.com/imrishuroy/nursery-checkout/internal/pricing"
)

const table = "pending_payments"

func newStore(t *testing.T) (*Store, *dynamotest.Fake) {
	t.Helper()
	db := dynamotest.New()
	db.CreateTable(table, "gateway_order_id", "")
	s := NewStore(db, table)
	s.nowFunc = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }
	return s, db
}

func samplePending(id string) PendingPayment {
	return PendingPayment{
		GatewayOrderID: id,
		ReceiptID:      "rcpt_1",
		CorrelationID:  "corr-1",
		CustomerID:     "u-1",
		Amount:         64700,
		Currency:       "INR",
		Shipping:       Shipping{Name: "Asha", Phone: "9845012345", Line1: "12 Lalbagh Rd", City: "Bengaluru", State: "KA", PostalCode: "560004", Country: "IN"},
		Items: []SnapshotLine{
			{ItemKey: "product#fern", Kind: catalog.KindProduct, ItemID: "fern", UnitPrice: 29900, Quantity: 2},
		},
		Quote:    pricing.Quote{Subtotal: 59800, Shipping: 4900, Total: 64700},
		Delivery: pricing.DeliveryConfig{FreeDeliveryEnabled: true, FreeDeliveryMinAmount: 99900, FlatDeliveryCharge: 4900},
	}
}

func TestCreate_Get(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, samplePending("order_abc")))
	require.ErrorIs(t, s.Create(ctx, samplePending("order_abc")), ErrAlreadyExists)

	p, err := s.Get(ctx, "order_abc")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, StatusCreated, p.Status)
	assert.Equal(t, int64(64700), p.Amount)
	assert.True(t, p.Open())
	assert.Equal(t, []pricing.Line{{UnitPrice: 29900, Quantity: 2}}, p.PricingLines())

	missing, err := s.Get(ctx, "order_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateStatus_CompareAndSet(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, samplePending("order_abc")))

	require.NoError(t, s.UpdateStatus(ctx, "order_abc", StatusCreated, StatusVerifying))
	require.ErrorIs(t, s.UpdateStatus(ctx, "order_abc", StatusCreated, StatusVerifying), ErrStatusMismatch)

	p, err := s.Get(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, StatusVerifying, p.Status)
}

func TestMarkFailed_OnlyOpenPayments(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, samplePending("order_abc")))

	require.NoError(t, s.MarkFailed(ctx, "order_abc", "insufficient stock"))
	require.ErrorIs(t, s.MarkFailed(ctx, "order_abc", "again"), ErrStatusMismatch)

	var p PendingPayment
	ok, err := db.Load(table, &p, "order_abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, p.Status)
	assert.Equal(t, "insufficient stock", p.FailureReason)
	assert.False(t, p.Open())
}

func TestIncrementSignatureFailures(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, samplePending("order_abc")))

	for want := 1; want <= 3; want++ {
		n, err := s.IncrementSignatureFailures(ctx, "order_abc")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	p, err := s.Get(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, 3, p.SignatureFailures)
	assert.Equal(t, StatusCreated, p.Status, "signature failures never close the payment")

	_, err = s.IncrementSignatureFailures(ctx, "order_missing")
	require.Error(t, err)
}

func TestConfirmItem(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, samplePending("order_abc")))

	confirm := func() error {
		_, err := db.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{s.ConfirmItem("order_abc", "NP-1")},
		})
		return err
	}
	require.NoError(t, confirm())
	require.Error(t, confirm(), "a confirmed payment cannot be confirmed again")

	p, err := s.Get(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, p.Status)
	assert.Equal(t, "NP-1", p.OrderNumber)
}
