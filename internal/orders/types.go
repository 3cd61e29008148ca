package orders

import (
	"time"

	"github.com/imrishuroy/nursery-checkout/internal/catalog"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
)

// Order statuses. Orders are created PAID; the later statuses belong to
// fulfilment, which lives outside this service.
const (
	StatusPaid      = "PAID"
	StatusPacking   = "PACKING"
	StatusShipped   = "SHIPPED"
	StatusDelivered = "DELIVERED"
	StatusCanceled  = "CANCELED"
)

// Line is a purchased line with its price at purchase.
type Line struct {
	ItemKey   string       `dynamodbav:"item_key" json:"item_key"`
	Kind      catalog.Kind `dynamodbav:"kind" json:"kind"`
	ItemID    string       `dynamodbav:"item_id" json:"item_id"`
	Name      string       `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Size      string       `dynamodbav:"size,omitempty" json:"size,omitempty"`
	Color     string       `dynamodbav:"color,omitempty" json:"color,omitempty"`
	UnitPrice int64        `dynamodbav:"unit_price" json:"unit_price"`
	Quantity  int64        `dynamodbav:"quantity" json:"quantity"`
	LineTotal int64        `dynamodbav:"line_total" json:"line_total"`
}

// Order represents the item stored in the Orders DynamoDB table. One gateway
// order id yields at most one Order.
type Order struct {
	PaymentRef       string            `dynamodbav:"payment_ref" json:"payment_ref"` // PK, gateway order id
	OrderNumber      string            `dynamodbav:"order_number" json:"order_number"`
	CustomerID       string            `dynamodbav:"customer_id" json:"customer_id"`
	CorrelationID    string            `dynamodbav:"correlation_id" json:"correlation_id"`
	GatewayPaymentID string            `dynamodbav:"gateway_payment_id" json:"gateway_payment_id"`
	Items            []Line            `dynamodbav:"items" json:"items"`
	Subtotal         int64             `dynamodbav:"subtotal" json:"subtotal"`
	DeliveryCharge   int64             `dynamodbav:"delivery_charge" json:"delivery_charge"`
	Total            int64             `dynamodbav:"total" json:"total"`
	Currency         string            `dynamodbav:"currency" json:"currency"`
	Shipping         payments.Shipping `dynamodbav:"shipping" json:"shipping"`
	Status           string            `dynamodbav:"status" json:"status"` // PAID | PACKING | SHIPPED | DELIVERED | CANCELED
	CreatedAt        time.Time         `dynamodbav:"created_at" json:"created_at"`
}
