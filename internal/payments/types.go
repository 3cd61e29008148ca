package payments

import (
	"time"

	"github.com/imrishuroy/nursery-checkout/internal/catalog"
	"github.com/imrishuroy/nursery-checkout/internal/pricing"
)

// Pending payment statuses
const (
	StatusCreated   = "CREATED"
	StatusVerifying = "VERIFYING"
	StatusConfirmed = "CONFIRMED"
	StatusFailed    = "FAILED"
	StatusExpired   = "EXPIRED"
)

// Shipping is the delivery contact captured at intent time.
type Shipping struct {
	Name       string `dynamodbav:"name" json:"name"`
	Phone      string `dynamodbav:"phone" json:"phone"`
	Email      string `dynamodbav:"email,omitempty" json:"email,omitempty"`
	Line1      string `dynamodbav:"line1" json:"line1"`
	Line2      string `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City       string `dynamodbav:"city" json:"city"`
	State      string `dynamodbav:"state" json:"state"`
	PostalCode string `dynamodbav:"postal_code" json:"postal_code"`
	Country    string `dynamodbav:"country" json:"country"`
}

// SnapshotLine is a cart line frozen at intent time with its catalog price.
type SnapshotLine struct {
	ItemKey   string       `dynamodbav:"item_key" json:"item_key"`
	Kind      catalog.Kind `dynamodbav:"kind" json:"kind"`
	ItemID    string       `dynamodbav:"item_id" json:"item_id"`
	Name      string       `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Size      string       `dynamodbav:"size,omitempty" json:"size,omitempty"`
	Color     string       `dynamodbav:"color,omitempty" json:"color,omitempty"`
	UnitPrice int64        `dynamodbav:"unit_price" json:"unit_price"`
	Quantity  int64        `dynamodbav:"quantity" json:"quantity"`
}

// PendingPayment is the shape persisted in the pending payments table. The
// gateway order id is the idempotency key of the whole checkout attempt.
type PendingPayment struct {
	GatewayOrderID    string                 `dynamodbav:"gateway_order_id"` // PK
	ReceiptID         string                 `dynamodbav:"receipt_id"`
	CorrelationID     string                 `dynamodbav:"correlation_id"`
	CustomerID        string                 `dynamodbav:"customer_id"`
	Amount            int64                  `dynamodbav:"amount"`
	Currency          string                 `dynamodbav:"currency"`
	Shipping          Shipping               `dynamodbav:"shipping"`
	Items             []SnapshotLine         `dynamodbav:"items"`
	Quote             pricing.Quote          `dynamodbav:"quote"`
	Delivery          pricing.DeliveryConfig `dynamodbav:"delivery"`
	Status            string                 `dynamodbav:"status"` // CREATED | VERIFYING | CONFIRMED | FAILED | EXPIRED
	OrderNumber       string                 `dynamodbav:"order_number,omitempty"`
	SignatureFailures int                    `dynamodbav:"signature_failures,omitempty"`
	FailureReason     string                 `dynamodbav:"failure_reason,omitempty"`
	CreatedAt         time.Time              `dynamodbav:"created_at"`
	UpdatedAt         time.Time              `dynamodbav:"updated_at"`
}

// PricingLines converts the snapshot into pricing engine input.
func (p *PendingPayment) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(p.Items))
	for _, it := range p.Items {
		lines = append(lines, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return lines
}

// Open reports whether the payment can still be confirmed.
func (p *PendingPayment) Open() bool {
	return p.Status == StatusCreated || p.Status == StatusVerifying
}
