package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/auditlog"
	"github.com/imrishuroy/nursery-checkout/internal/auth"
	"github.com/imrishuroy/nursery-checkout/internal/aws"
	"github.com/imrishuroy/nursery-checkout/internal/cart"
	"github.com/imrishuroy/nursery-checkout/internal/catalog"
	"github.com/imrishuroy/nursery-checkout/internal/checkout"
	"github.com/imrishuroy/nursery-checkout/internal/config"
	"github.com/imrishuroy/nursery-checkout/internal/gateway"
	"github.com/imrishuroy/nursery-checkout/internal/orders"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
	"github.com/imrishuroy/nursery-checkout/internal/pricing"
)

// App is the wired object graph shared by the api and worker binaries.
type App struct {
	Checkout    *checkout.Service
	PaymentLogs *auditlog.Store
	Auth        *auth.Verifier
}

// New builds AWS clients from cfg and wires every component onto them.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init aws clients: %w", err)
	}
	return Wire(cfg, clients, log)
}

// Wire connects the components to already built clients.
func Wire(cfg *config.Config, clients *aws.AWSClients, log *zap.Logger) (*App, error) {
	gw, err := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.GatewayBaseURL,
		KeyID:     cfg.GatewayKeyID,
		KeySecret: cfg.GatewayKeySecret,
		Timeout:   cfg.GatewayTimeout,
	})
	if err != nil {
		return nil, err
	}
	numbers, err := orders.NewSnowflakeNumbers(cfg.OrderNodeID)
	if err != nil {
		return nil, err
	}

	catalogStore := catalog.NewStore(clients.DynamoDB, cfg.CatalogTable)
	paymentStore := payments.NewStore(clients.DynamoDB, cfg.PendingTable)
	orderStore := orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	logStore := auditlog.NewStore(clients.DynamoDB, cfg.PaymentLogsTable)

	delivery := pricing.NewSettingsStore(clients.DynamoDB, cfg.SettingsTable, pricing.DeliveryConfig{
		FreeDeliveryEnabled:   cfg.DefaultFreeDeliveryMin > 0,
		FreeDeliveryMinAmount: cfg.DefaultFreeDeliveryMin,
		FlatDeliveryCharge:    cfg.DefaultFlatDelivery,
	})

	// Without a queue, alerts still reach the error log.
	var alerts checkout.AlertPublisher
	if cfg.AlertsQueueURL != "" {
		alerts = aws.NewPublisher(clients.SQS, cfg.AlertsQueueURL)
	}

	svc, err := checkout.NewService(checkout.Config{
		KeyID:         cfg.GatewayKeyID,
		KeySecret:     cfg.GatewayKeySecret,
		WebhookSecret: cfg.GatewayWebhookSecret,
		Currency:      cfg.Currency,
	}, checkout.Deps{
		Carts:        cart.NewStore(clients.DynamoDB, cfg.CartsTable),
		Validator:    cart.NewValidator(catalogStore),
		Delivery:     delivery,
		Gateway:      gw,
		Payments:     paymentStore,
		Materializer: orders.NewMaterializer(clients.DynamoDB, orderStore, paymentStore, catalogStore, numbers),
		Audit:        auditlog.NewLogger(logStore, log),
		Alerts:       alerts,
		Metrics:      aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace, cfg.MetricsEnabled),
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		Checkout:    svc,
		PaymentLogs: logStore,
		Auth:        auth.NewVerifier(cfg.JWTSecret),
	}, nil
}
