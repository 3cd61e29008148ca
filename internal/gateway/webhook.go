package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Webhook event names this service acts on.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
)

// ErrMalformedWebhook is returned for bodies that are not a gateway event.
var ErrMalformedWebhook = errors.New("malformed webhook payload")

type webhookEnvelope struct {
	Entity  string `json:"entity"`
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity Order `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// WebhookEvent is the part of a webhook the verifier needs.
type WebhookEvent struct {
	Event            string
	GatewayOrderID   string
	GatewayPaymentID string
	Amount           int64
	Currency         string
	Status           string
	ErrorDescription string
}

// Confirms reports whether the event announces a captured payment.
func (e WebhookEvent) Confirms() bool {
	return e.Event == EventPaymentCaptured || e.Event == EventOrderPaid
}

// ParseWebhook decodes a webhook body. Callers must verify the signature
// before trusting anything returned here.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if env.Event == "" {
		return WebhookEvent{}, fmt.Errorf("%w: missing event", ErrMalformedWebhook)
	}

	ev := WebhookEvent{Event: env.Event}
	if p := env.Payload.Payment; p != nil {
		ev.GatewayOrderID = p.Entity.OrderID
		ev.GatewayPaymentID = p.Entity.ID
		ev.Amount = p.Entity.Amount
		ev.Currency = p.Entity.Currency
		ev.Status = p.Entity.Status
		ev.ErrorDescription = p.Entity.ErrorDescription
	}
	if o := env.Payload.Order; o != nil && ev.GatewayOrderID == "" {
		ev.GatewayOrderID = o.Entity.ID
		ev.Amount = o.Entity.AmountPaid
		ev.Currency = o.Entity.Currency
	}
	return ev, nil
}
