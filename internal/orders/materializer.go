package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/bwmarrin/snowflake"

	"github.com/imrishuroy/nursery-checkout/internal/aws"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
	"github.com/imrishuroy/nursery-checkout/internal/pricing"
)

const (
	reasonConditionalCheckFailed = "ConditionalCheckFailed"
	reasonTransactionConflict    = "TransactionConflict"

	defaultMaxAttempts = 3
	baseBackoff        = 25 * time.Millisecond
)

var (
	// ErrAmountMismatch means the snapshot no longer prices to the amount the
	// gateway order was created for.
	ErrAmountMismatch = errors.New("amount mismatch")
	// ErrPaymentClosed means the pending payment is no longer CREATED or
	// VERIFYING and no order exists for it.
	ErrPaymentClosed = errors.New("pending payment is not open")
)

// InsufficientStockError lists the catalog items that could not cover the
// order. Nothing was decremented.
type InsufficientStockError struct {
	ItemKeys []string
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock: " + strings.Join(e.ItemKeys, ", ")
}

// StockDecrementer builds the catalog's decrement-if-available write.
type StockDecrementer interface {
	DecrementItem(itemKey string, qty int64) types.TransactWriteItem
}

// PaymentConfirmer builds the write that closes a pending payment.
type PaymentConfirmer interface {
	ConfirmItem(gatewayOrderID, orderNumber string) types.TransactWriteItem
}

// NumberGenerator hands out human-facing order numbers.
type NumberGenerator interface {
	Next() string
}

// SnowflakeNumbers generates order numbers from a snowflake node.
type SnowflakeNumbers struct {
	node *snowflake.Node
}

// NewSnowflakeNumbers creates a generator for nodeID. A negative nodeID
// picks a random node, which is fine for short-lived Lambda instances.
func NewSnowflakeNumbers(nodeID int64) (*SnowflakeNumbers, error) {
	if nodeID < 0 {
		nodeID = rand.Int64N(1024)
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return &SnowflakeNumbers{node: node}, nil
}

// Next returns a new order number such as "NP-3K9ZQ1W2X8".
func (g *SnowflakeNumbers) Next() string {
	return "NP-" + strings.ToUpper(g.node.Generate().Base36())
}

// Outcome is the result of a materialization attempt. Created is false when
// another attempt already produced Order.
type Outcome struct {
	Order   *Order
	Created bool
}

// Materializer turns a verified pending payment into exactly one order.
type Materializer struct {
	client      aws.DynamoDBAPI
	orders      *Store
	payments    PaymentConfirmer
	stock       StockDecrementer
	numbers     NumberGenerator
	pricing     pricing.Engine
	maxAttempts int
	nowFunc     func() time.Time
}

// NewMaterializer wires a Materializer.
func NewMaterializer(client aws.DynamoDBAPI, orders *Store, payments PaymentConfirmer, stock StockDecrementer, numbers NumberGenerator) *Materializer {
	return &Materializer{
		client:      client,
		orders:      orders,
		payments:    payments,
		stock:       stock,
		numbers:     numbers,
		maxAttempts: defaultMaxAttempts,
		nowFunc:     time.Now,
	}
}

// Materialize writes the order, confirms the pending payment and decrements
// stock in one transaction. Concurrent calls for the same pending payment
// produce one order; the losers get it back with Created=false.
func (m *Materializer) Materialize(ctx context.Context, pending *payments.PendingPayment, paymentID string) (Outcome, error) {
	if pending == nil {
		return Outcome{}, errors.New("materialize: pending payment is nil")
	}
	quote := m.pricing.Quote(pending.PricingLines(), pending.Delivery)
	if quote.Total != pending.Amount {
		return Outcome{}, fmt.Errorf("%w: snapshot prices to %d, gateway order is %d", ErrAmountMismatch, quote.Total, pending.Amount)
	}

	for attempt := 1; ; attempt++ {
		order := m.buildOrder(pending, paymentID, quote)
		items, err := m.transactItems(order, pending)
		if err != nil {
			return Outcome{}, err
		}

		_, err = m.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
		if err == nil {
			return Outcome{Order: &order, Created: true}, nil
		}

		var tce *types.TransactionCanceledException
		if !errors.As(err, &tce) {
			return Outcome{}, fmt.Errorf("transact write: %w", err)
		}

		reasons := tce.CancellationReasons
		if reasonIs(reasons, 0, reasonConditionalCheckFailed) {
			existing, gerr := m.orders.Get(ctx, pending.GatewayOrderID)
			if gerr != nil {
				return Outcome{}, fmt.Errorf("read existing order: %w", gerr)
			}
			if existing == nil {
				return Outcome{}, fmt.Errorf("order for %s reported as existing but not found", pending.GatewayOrderID)
			}
			return Outcome{Order: existing, Created: false}, nil
		}

		var short []string
		for i := 2; i < len(reasons) && i < len(items); i++ {
			if reasonIs(reasons, i, reasonConditionalCheckFailed) {
				short = append(short, itemKeyOf(items[i]))
			}
		}
		if len(short) > 0 {
			return Outcome{}, &InsufficientStockError{ItemKeys: short}
		}

		if reasonIs(reasons, 1, reasonConditionalCheckFailed) {
			return Outcome{}, ErrPaymentClosed
		}

		if !hasReason(reasons, reasonTransactionConflict) || attempt >= m.maxAttempts {
			return Outcome{}, fmt.Errorf("transaction canceled: %w", err)
		}

		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-time.After(baseBackoff * time.Duration(1<<(attempt-1))):
		}
	}
}

func (m *Materializer) buildOrder(pending *payments.PendingPayment, paymentID string, quote pricing.Quote) Order {
	lines := make([]Line, 0, len(pending.Items))
	for _, it := range pending.Items {
		lines = append(lines, Line{
			ItemKey:   it.ItemKey,
			Kind:      it.Kind,
			ItemID:    it.ItemID,
			Name:      it.Name,
			Size:      it.Size,
			Color:     it.Color,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.UnitPrice * it.Quantity,
		})
	}
	return Order{
		PaymentRef:       pending.GatewayOrderID,
		OrderNumber:      m.numbers.Next(),
		CustomerID:       pending.CustomerID,
		CorrelationID:    pending.CorrelationID,
		GatewayPaymentID: paymentID,
		Items:            lines,
		Subtotal:         quote.Subtotal,
		DeliveryCharge:   quote.Shipping,
		Total:            quote.Total,
		Currency:         pending.Currency,
		Shipping:         pending.Shipping,
		Status:           StatusPaid,
		CreatedAt:        m.nowFunc().UTC(),
	}
}

// transactItems orders the writes as: order put, payment confirm, then one
// stock decrement per distinct item key. Outcome decoding relies on that order.
func (m *Materializer) transactItems(order Order, pending *payments.PendingPayment) ([]types.TransactWriteItem, error) {
	put, err := m.orders.PutItem(order)
	if err != nil {
		return nil, err
	}
	items := []types.TransactWriteItem{put, m.payments.ConfirmItem(pending.GatewayOrderID, order.OrderNumber)}

	demand := map[string]int64{}
	for _, it := range pending.Items {
		if it.Quantity > 0 {
			demand[it.ItemKey] += it.Quantity
		}
	}
	keys := make([]string, 0, len(demand))
	for k := range demand {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		items = append(items, m.stock.DecrementItem(k, demand[k]))
	}
	return items, nil
}

func reasonIs(reasons []types.CancellationReason, i int, code string) bool {
	return i < len(reasons) && reasons[i].Code != nil && *reasons[i].Code == code
}

func hasReason(reasons []types.CancellationReason, code string) bool {
	for i := range reasons {
		if reasonIs(reasons, i, code) {
			return true
		}
	}
	return false
}

func itemKeyOf(it types.TransactWriteItem) string {
	if it.Update == nil {
		return ""
	}
	if v, ok := it.Update.Key["item_key"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
