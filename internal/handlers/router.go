package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/auditlog"
	"github.com/imrishuroy/nursery-checkout/internal/auth"
	"github.com/imrishuroy/nursery-checkout/internal/cart"
	"github.com/imrishuroy/nursery-checkout/internal/checkout"
	"github.com/imrishuroy/nursery-checkout/internal/logger"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
	"github.com/imrishuroy/nursery-checkout/internal/validation"
)

// CheckoutService is the checkout flow behind the HTTP surface.
type CheckoutService interface {
	ValidateCart(ctx context.Context, id *auth.Identity) (cart.Result, error)
	CreatePaymentIntent(ctx context.Context, id *auth.Identity, ship payments.Shipping, clientIP string) (*checkout.Intent, error)
	VerifyClientCallback(ctx context.Context, req checkout.CallbackRequest) (*checkout.VerifyResult, error)
	Cancel(ctx context.Context, id *auth.Identity, gatewayOrderID, reason, clientIP string) error
	HandleWebhook(ctx context.Context, body []byte, signature, clientIP string) (*checkout.WebhookResult, error)
}

// PaymentLogReader is the read side of the payment log.
type PaymentLogReader interface {
	List(ctx context.Context, f auditlog.Filter) (auditlog.Page, error)
	Timeline(ctx context.Context, correlationID string) ([]auditlog.Entry, error)
}

// HandlerConfig groups dependencies for the HTTP handlers.
type HandlerConfig struct {
	Checkout    CheckoutService
	PaymentLogs PaymentLogReader
	Auth        *auth.Verifier
	Logger      *zap.Logger
}

type handler struct {
	checkout CheckoutService
	logs     PaymentLogReader
	validate *validatorv10.Validate
	log      *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{
		checkout: cfg.Checkout,
		logs:     cfg.PaymentLogs,
		validate: validation.New(),
		log:      log,
	}

	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	co := r.Group("/checkout")
	co.GET("/validate", cfg.Auth.Middleware(), h.validateCart)
	co.POST("/intent", cfg.Auth.Middleware(), h.createIntent)
	co.POST("/verify", h.verify)
	co.POST("/cancel", cfg.Auth.Middleware(), h.cancel)

	r.POST("/webhooks/payments", h.webhook)

	admin := r.Group("/admin", cfg.Auth.Middleware(), auth.RequireRole(auth.RoleAdmin))
	admin.GET("/payment-logs", h.listPaymentLogs)
	admin.GET("/payment-logs/:correlationID", h.paymentLogTimeline)

	return r
}
