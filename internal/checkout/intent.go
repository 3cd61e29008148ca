package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/auditlog"
	"github.com/imrishuroy/nursery-checkout/internal/auth"
	"github.com/imrishuroy/nursery-checkout/internal/aws"
	"github.com/imrishuroy/nursery-checkout/internal/cart"
	"github.com/imrishuroy/nursery-checkout/internal/gateway"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
	"github.com/imrishuroy/nursery-checkout/internal/pricing"
)

// maxCartLines leaves room for the order put and payment confirm in a
// 100-item DynamoDB transaction.
const maxCartLines = 98

// Prefill seeds the checkout sheet's contact fields.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact"`
}

// Intent is what the client needs to open the checkout sheet.
type Intent struct {
	GatewayKey     string        `json:"gateway_key"`
	GatewayOrderID string        `json:"gateway_order_id"`
	Amount         int64         `json:"amount"`
	Currency       string        `json:"currency"`
	ReceiptID      string        `json:"receipt_id"`
	CorrelationID  string        `json:"correlation_id"`
	Quote          pricing.Quote `json:"quote"`
	Prefill        Prefill       `json:"prefill"`
}

// ValidateCart reports the issues of the caller's current cart.
func (s *Service) ValidateCart(ctx context.Context, id *auth.Identity) (cart.Result, error) {
	if id == nil || id.UserID == "" {
		return cart.Result{}, ErrUnauthenticated
	}
	items, err := s.carts.Get(ctx, id.UserID)
	if err != nil {
		return cart.Result{}, fmt.Errorf("load cart: %w", err)
	}
	return s.validator.Validate(ctx, items)
}

// CreatePaymentIntent prices the caller's cart from the catalog, opens a
// gateway order for that amount and records a pending payment holding a
// frozen snapshot of what is being bought. Client-side prices are ignored.
func (s *Service) CreatePaymentIntent(ctx context.Context, id *auth.Identity, ship payments.Shipping, clientIP string) (*Intent, error) {
	if id == nil || id.UserID == "" {
		return nil, ErrUnauthenticated
	}

	items, err := s.carts.Get(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	lines := 0
	for _, it := range items {
		if it.Quantity > 0 {
			lines++
		}
	}
	if lines == 0 {
		return nil, ErrCartEmpty
	}
	if lines > maxCartLines {
		return nil, ErrCartTooLarge
	}

	res, err := s.validator.Validate(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("validate cart: %w", err)
	}
	// Short stock is not critical for display, but an intent for it would
	// fail after capture.
	if !res.Valid || res.HasIssue(cart.IssueInsufficientStock) {
		return nil, &CartInvalidError{Issues: res.Issues}
	}

	delivery, err := s.delivery.DeliveryConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load delivery config: %w", err)
	}

	snapshot := make([]payments.SnapshotLine, 0, len(res.Lines))
	priced := make([]pricing.Line, 0, len(res.Lines))
	for _, l := range res.Lines {
		snapshot = append(snapshot, payments.SnapshotLine{
			ItemKey:   l.Item.Key().String(),
			Kind:      l.Item.Kind,
			ItemID:    l.Item.ItemID,
			Name:      firstNonEmpty(l.State.Name, l.Item.Name),
			Size:      l.Item.Size,
			Color:     l.Item.Color,
			UnitPrice: l.State.Price,
			Quantity:  l.Item.Quantity,
		})
		priced = append(priced, pricing.Line{UnitPrice: l.State.Price, Quantity: l.Item.Quantity})
	}
	quote := s.pricing.Quote(priced, delivery)

	correlationID := uuid.NewString()
	receiptID := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	gwOrder, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   quote.Total,
		Currency: s.cfg.Currency,
		Receipt:  receiptID,
		Notes: map[string]string{
			"correlation_id": correlationID,
			"customer_id":    id.UserID,
		},
	})
	if err != nil {
		s.log.Error("gateway create order failed",
			zap.String("correlation_id", correlationID),
			zap.Int64("amount", quote.Total),
			zap.Error(err),
		)
		s.count(ctx, aws.MetricGatewayErrors, nil)
		return nil, &GatewayError{Err: err}
	}

	pending := payments.PendingPayment{
		GatewayOrderID: gwOrder.ID,
		ReceiptID:      receiptID,
		CorrelationID:  correlationID,
		CustomerID:     id.UserID,
		Amount:         quote.Total,
		Currency:       s.cfg.Currency,
		Shipping:       ship,
		Items:          snapshot,
		Quote:          quote,
		Delivery:       delivery,
		Status:         payments.StatusCreated,
	}
	if err := s.payments.Create(ctx, pending); err != nil {
		return nil, fmt.Errorf("persist pending payment: %w", err)
	}

	s.record(ctx, entryFor(&pending, "", auditlog.SourceClient, clientIP), auditlog.EventInitiated, "",
		fmt.Sprintf("payment intent for %d %s, %d line(s)", quote.Total, s.cfg.Currency, len(snapshot)))
	s.count(ctx, aws.MetricIntentsCreated, nil)
	s.log.Info("payment intent created",
		zap.String("correlation_id", correlationID),
		zap.String("gateway_order_id", gwOrder.ID),
		zap.Int64("amount", quote.Total),
	)

	return &Intent{
		GatewayKey:     s.cfg.KeyID,
		GatewayOrderID: gwOrder.ID,
		Amount:         quote.Total,
		Currency:       s.cfg.Currency,
		ReceiptID:      receiptID,
		CorrelationID:  correlationID,
		Quote:          quote,
		Prefill: Prefill{
			Name:    firstNonEmpty(ship.Name, id.Name),
			Email:   firstNonEmpty(ship.Email, id.Email),
			Contact: firstNonEmpty(ship.Phone, id.Phone),
		},
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
