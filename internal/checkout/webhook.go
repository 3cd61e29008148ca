package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/auditlog"
	"github.com/imrishuroy/nursery-checkout/internal/aws"
	"github.com/imrishuroy/nursery-checkout/internal/gateway"
	"github.com/imrishuroy/nursery-checkout/internal/orders"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
)

// Webhook outcomes. All of them are acknowledged with 2xx.
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
	WebhookFailed    = "failed"
	WebhookRecorded  = "recorded"
)

// WebhookResult tells the caller how a delivery was handled.
type WebhookResult struct {
	Status      string `json:"status"`
	Event       string `json:"event,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	Reference   string `json:"support_reference,omitempty"`
}

// HandleWebhook processes one gateway webhook delivery. body must be the
// exact bytes received. It returns ErrSignatureInvalid or
// gateway.ErrMalformedWebhook for deliveries that should be rejected, and
// other errors only when storage failed and the gateway should retry.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature, clientIP string) (*WebhookResult, error) {
	s.count(ctx, aws.MetricWebhooksReceived, nil)

	ev, perr := gateway.ParseWebhook(body)
	if !gateway.VerifyWebhookSignature(s.cfg.WebhookSecret, body, signature) {
		s.rejectWebhookSignature(ctx, ev, perr, clientIP)
		return nil, ErrSignatureInvalid
	}
	if perr != nil {
		return nil, perr
	}

	if ev.GatewayOrderID == "" || (!ev.Confirms() && ev.Event != gateway.EventPaymentFailed) {
		s.log.Info("webhook ignored", zap.String("event", ev.Event), zap.String("gateway_order_id", ev.GatewayOrderID))
		return &WebhookResult{Status: WebhookIgnored, Event: ev.Event}, nil
	}

	pending, err := s.payments.Get(ctx, ev.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("load pending payment: %w", err)
	}
	if pending == nil {
		s.log.Info("webhook for unknown gateway order", zap.String("event", ev.Event), zap.String("gateway_order_id", ev.GatewayOrderID))
		return &WebhookResult{Status: WebhookIgnored, Event: ev.Event}, nil
	}

	base := entryFor(pending, ev.GatewayPaymentID, auditlog.SourceWebhook, clientIP)
	s.record(ctx, base, auditlog.EventWebhookReceived, "", ev.Event)

	if ev.Event == gateway.EventPaymentFailed {
		msg := "gateway reported payment failure"
		if ev.ErrorDescription != "" {
			msg += ": " + ev.ErrorDescription
		}
		s.record(ctx, base, auditlog.EventFailed, "", msg)
		return &WebhookResult{Status: WebhookRecorded, Event: ev.Event}, nil
	}

	var (
		res  *VerifyResult
		verr error
	)
	switch {
	case ev.Amount != pending.Amount && pending.Status == payments.StatusConfirmed && pending.OrderNumber != "":
		res = s.confirmedAmountMismatch(ctx, pending, ev, base)
	case ev.Amount != pending.Amount:
		mismatch := fmt.Errorf("%w: captured %d, expected %d", orders.ErrAmountMismatch, ev.Amount, pending.Amount)
		verr = s.materializationFailed(ctx, pending, ev.GatewayPaymentID, base, mismatch)
	default:
		res, verr = s.confirm(ctx, pending, ev.GatewayPaymentID, base)
	}

	var merr *MaterializationError
	switch {
	case errors.As(verr, &merr):
		s.record(ctx, base, auditlog.EventWebhookConfirmed, auditlog.StatusFailed, merr.Reason)
		return &WebhookResult{Status: WebhookFailed, Event: ev.Event, Reference: merr.Reference}, nil
	case verr != nil:
		return nil, verr
	}

	s.record(ctx, base, auditlog.EventWebhookConfirmed, "", "order "+res.OrderNumber)
	status := WebhookProcessed
	if res.Duplicate {
		status = WebhookDuplicate
	}
	return &WebhookResult{Status: status, Event: ev.Event, OrderNumber: res.OrderNumber}, nil
}

// rejectWebhookSignature logs against the pending payment named in the
// unverified body when there is one, else only to zap.
func (s *Service) rejectWebhookSignature(ctx context.Context, ev gateway.WebhookEvent, perr error, clientIP string) {
	if perr == nil && ev.GatewayOrderID != "" {
		pending, err := s.payments.Get(ctx, ev.GatewayOrderID)
		if err == nil && pending != nil {
			base := entryFor(pending, ev.GatewayPaymentID, auditlog.SourceWebhook, clientIP)
			s.record(ctx, base, auditlog.EventWebhookReceived, "", ev.Event+" (unverified)")
			s.rejectSignature(ctx, pending, base)
			return
		}
	}
	s.count(ctx, aws.MetricSignatureFailures, map[string]string{"Source": string(auditlog.SourceWebhook)})
	s.log.Warn("webhook signature rejected",
		zap.String("event", ev.Event),
		zap.String("gateway_order_id", ev.GatewayOrderID),
		zap.String("client_ip", clientIP),
	)
}

// confirmedAmountMismatch handles a capture whose amount differs from a
// payment that already has an order. The order stands; operators reconcile
// the capture.
func (s *Service) confirmedAmountMismatch(ctx context.Context, pending *payments.PendingPayment, ev gateway.WebhookEvent, base auditlog.Entry) *VerifyResult {
	reason := fmt.Sprintf("captured %d, expected %d", ev.Amount, pending.Amount)
	s.alert(ctx, Alert{
		Type:             AlertAmountMismatch,
		SupportReference: pending.CorrelationID,
		GatewayOrderID:   pending.GatewayOrderID,
		GatewayPaymentID: ev.GatewayPaymentID,
		OrderNumber:      pending.OrderNumber,
		CustomerID:       pending.CustomerID,
		Amount:           ev.Amount,
		Currency:         pending.Currency,
		Reason:           "capture amount differs from a confirmed payment: " + reason,
	})
	s.record(ctx, base, auditlog.EventDuplicateAttempt, "",
		"order "+pending.OrderNumber+" already exists; amount mismatch, "+reason)
	s.count(ctx, aws.MetricDuplicateAttempts, map[string]string{"Source": string(base.Source)})
	return &VerifyResult{OrderNumber: pending.OrderNumber, Duplicate: true}
}
