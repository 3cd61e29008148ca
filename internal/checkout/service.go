package checkout

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/auditlog"
	"github.com/imrishuroy/nursery-checkout/internal/cart"
	"github.com/imrishuroy/nursery-checkout/internal/gateway"
	"github.com/imrishuroy/nursery-checkout/internal/orders"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
	"github.com/imrishuroy/nursery-checkout/internal/pricing"
)

// CartStore is the customer's persisted cart.
type CartStore interface {
	Get(ctx context.Context, userID string) ([]cart.LineItem, error)
	Clear(ctx context.Context, userID string) error
}

// CartValidator checks cart lines against the catalog.
type CartValidator interface {
	Validate(ctx context.Context, items []cart.LineItem) (cart.Result, error)
}

// OrderGateway creates orders at the payment gateway.
type OrderGateway interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
}

// PaymentStore persists pending payments.
type PaymentStore interface {
	Create(ctx context.Context, p payments.PendingPayment) error
	Get(ctx context.Context, gatewayOrderID string) (*payments.PendingPayment, error)
	UpdateStatus(ctx context.Context, gatewayOrderID, expectedStatus, newStatus string) error
	MarkFailed(ctx context.Context, gatewayOrderID, reason string) error
	IncrementSignatureFailures(ctx context.Context, gatewayOrderID string) (int, error)
}

// OrderMaterializer turns a verified payment into an order.
type OrderMaterializer interface {
	Materialize(ctx context.Context, pending *payments.PendingPayment, paymentID string) (orders.Outcome, error)
}

// AuditRecorder appends to the payment log and never fails the caller.
type AuditRecorder interface {
	Record(ctx context.Context, e auditlog.Entry)
}

// AlertPublisher delivers operator alerts.
type AlertPublisher interface {
	SendJSON(ctx context.Context, v any, attributes map[string]string) error
}

// MetricsRecorder counts checkout events.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// Config holds the gateway credentials and store currency.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
}

// Deps groups the collaborators of a Service. Alerts and Metrics are optional.
type Deps struct {
	Carts        CartStore
	Validator    CartValidator
	Delivery     pricing.DeliverySource
	Gateway      OrderGateway
	Payments     PaymentStore
	Materializer OrderMaterializer
	Audit        AuditRecorder
	Alerts       AlertPublisher
	Metrics      MetricsRecorder
	Logger       *zap.Logger
}

// Service runs checkout: cart validation, payment intents and verification
// from both the client callback and the gateway webhook.
type Service struct {
	cfg          Config
	carts        CartStore
	validator    CartValidator
	delivery     pricing.DeliverySource
	gateway      OrderGateway
	payments     PaymentStore
	materializer OrderMaterializer
	audit        AuditRecorder
	alerts       AlertPublisher
	metrics      MetricsRecorder
	pricing      pricing.Engine
	log          *zap.Logger
	nowFunc      func() time.Time
}

// NewService validates deps and builds a Service.
func NewService(cfg Config, d Deps) (*Service, error) {
	switch {
	case d.Carts == nil, d.Validator == nil, d.Delivery == nil, d.Gateway == nil,
		d.Payments == nil, d.Materializer == nil, d.Audit == nil:
		return nil, errors.New("checkout: missing dependency")
	case cfg.KeyID == "" || cfg.KeySecret == "" || cfg.WebhookSecret == "":
		return nil, errors.New("checkout: gateway credentials are required")
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cfg:          cfg,
		carts:        d.Carts,
		validator:    d.Validator,
		delivery:     d.Delivery,
		gateway:      d.Gateway,
		payments:     d.Payments,
		materializer: d.Materializer,
		audit:        d.Audit,
		alerts:       d.Alerts,
		metrics:      d.Metrics,
		log:          log,
		nowFunc:      time.Now,
	}, nil
}

func (s *Service) count(ctx context.Context, metric string, dims map[string]string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordCount(ctx, metric, dims); err != nil {
		s.log.Warn("metric publish failed", zap.String("metric", metric), zap.Error(err))
	}
}

// Alert is the operator alert message body.
type Alert struct {
	Type              string    `json:"type"`
	SupportReference  string    `json:"support_reference"`
	GatewayOrderID    string    `json:"gateway_order_id"`
	GatewayPaymentID  string    `json:"gateway_payment_id,omitempty"`
	ExistingPaymentID string    `json:"existing_payment_id,omitempty"`
	OrderNumber       string    `json:"order_number,omitempty"`
	CustomerID        string    `json:"customer_id"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Reason            string    `json:"reason"`
	RaisedAt          time.Time `json:"raised_at"`
}

const (
	AlertMaterializationFailed = "materialization_failed"
	AlertDoubleCapture         = "double_capture"
	AlertAmountMismatch        = "amount_mismatch"
)

func (s *Service) alert(ctx context.Context, a Alert) {
	a.RaisedAt = s.nowFunc().UTC()
	s.log.Error("operator alert",
		zap.String("type", a.Type),
		zap.String("support_reference", a.SupportReference),
		zap.String("gateway_order_id", a.GatewayOrderID),
		zap.String("reason", a.Reason),
	)
	if s.alerts == nil {
		return
	}
	attrs := map[string]string{"alert_type": a.Type, "correlation_id": a.SupportReference}
	if err := s.alerts.SendJSON(ctx, a, attrs); err != nil {
		s.log.Error("operator alert publish failed", zap.String("type", a.Type), zap.Error(err))
	}
}

func entryFor(p *payments.PendingPayment, paymentID string, src auditlog.Source, clientIP string) auditlog.Entry {
	return auditlog.Entry{
		CorrelationID:    p.CorrelationID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Amount:           p.Amount,
		Source:           src,
		ClientIP:         clientIP,
	}
}

func (s *Service) record(ctx context.Context, base auditlog.Entry, ev auditlog.EventType, status auditlog.Status, msg string) {
	e := base
	e.EventType = ev
	e.Status = status
	e.Message = msg
	s.audit.Record(ctx, e)
}
