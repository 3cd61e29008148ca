package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/auditlog"
	"github.com/imrishuroy/nursery-checkout/internal/auth"
	"github.com/imrishuroy/nursery-checkout/internal/aws"
	"github.com/imrishuroy/nursery-checkout/internal/gateway"
	"github.com/imrishuroy/nursery-checkout/internal/orders"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
)

// CallbackRequest is the checkout sheet's success callback.
type CallbackRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	ClientIP         string
}

// VerifyResult identifies the order a verified payment belongs to.
// Duplicate is true when another attempt created it.
type VerifyResult struct {
	OrderNumber string        `json:"order_number"`
	Duplicate   bool          `json:"duplicate"`
	Order       *orders.Order `json:"order,omitempty"`
}

// VerifyClientCallback checks the payment signature and materializes the
// order. Repeated or concurrent calls, including the webhook for the same
// payment, all resolve to the same order number.
func (s *Service) VerifyClientCallback(ctx context.Context, req CallbackRequest) (*VerifyResult, error) {
	pending, err := s.payments.Get(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("load pending payment: %w", err)
	}
	if pending == nil {
		return nil, ErrPaymentNotFound
	}

	base := entryFor(pending, req.GatewayPaymentID, auditlog.SourceClient, req.ClientIP)
	s.record(ctx, base, auditlog.EventVerificationStarted, "", "")

	if !gateway.VerifyPaymentSignature(s.cfg.KeySecret, req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		s.rejectSignature(ctx, pending, base)
		return nil, ErrSignatureInvalid
	}
	return s.confirm(ctx, pending, req.GatewayPaymentID, base)
}

// Cancel records that the customer dismissed the checkout sheet. The pending
// payment stays open; a new checkout creates a new gateway order. Payments
// owned by another customer are reported as not found, and payments that are
// no longer open return ErrPaymentNotOpen without touching the log.
func (s *Service) Cancel(ctx context.Context, id *auth.Identity, gatewayOrderID, reason, clientIP string) error {
	if id == nil || id.UserID == "" {
		return ErrUnauthenticated
	}
	pending, err := s.payments.Get(ctx, gatewayOrderID)
	if err != nil {
		return fmt.Errorf("load pending payment: %w", err)
	}
	if pending == nil || pending.CustomerID != id.UserID {
		return ErrPaymentNotFound
	}
	if !pending.Open() {
		return ErrPaymentNotOpen
	}
	if reason == "" {
		reason = "checkout dismissed"
	}
	s.record(ctx, entryFor(pending, "", auditlog.SourceClient, clientIP), auditlog.EventCanceled, "", reason)
	return nil
}

func (s *Service) rejectSignature(ctx context.Context, pending *payments.PendingPayment, base auditlog.Entry) {
	s.record(ctx, base, auditlog.EventSignatureFailed, "", "signature mismatch")
	n, err := s.payments.IncrementSignatureFailures(ctx, pending.GatewayOrderID)
	if err != nil {
		s.log.Error("signature failure counter update failed",
			zap.String("gateway_order_id", pending.GatewayOrderID), zap.Error(err))
	}
	s.count(ctx, aws.MetricSignatureFailures, map[string]string{"Source": string(base.Source)})
	s.log.Warn("payment signature rejected",
		zap.String("correlation_id", pending.CorrelationID),
		zap.String("gateway_order_id", pending.GatewayOrderID),
		zap.String("source", string(base.Source)),
		zap.String("client_ip", base.ClientIP),
		zap.Int("signature_failures", n),
	)
}

// confirm runs after a signature has been accepted.
func (s *Service) confirm(ctx context.Context, pending *payments.PendingPayment, paymentID string, base auditlog.Entry) (*VerifyResult, error) {
	switch pending.Status {
	case payments.StatusFailed, payments.StatusExpired:
		reason := pending.FailureReason
		if reason == "" {
			reason = "payment is " + pending.Status
		}
		s.record(ctx, base, auditlog.EventFailed, "", "verification after failure: "+reason)
		return nil, &MaterializationError{Reference: pending.CorrelationID, Reason: reason}
	case payments.StatusCreated:
		err := s.payments.UpdateStatus(ctx, pending.GatewayOrderID, payments.StatusCreated, payments.StatusVerifying)
		if err != nil && !errors.Is(err, payments.ErrStatusMismatch) {
			s.log.Warn("mark verifying failed", zap.String("gateway_order_id", pending.GatewayOrderID), zap.Error(err))
		}
	}

	out, err := s.materializer.Materialize(ctx, pending, paymentID)
	if err != nil {
		return nil, s.materializationFailed(ctx, pending, paymentID, base, err)
	}

	order := out.Order
	if out.Created {
		s.record(ctx, base, auditlog.EventVerifiedSuccess, "", "")
		s.record(ctx, base, auditlog.EventOrderCreated, "", "order "+order.OrderNumber)
		if err := s.carts.Clear(ctx, pending.CustomerID); err != nil {
			s.log.Warn("cart clear failed", zap.String("customer_id", pending.CustomerID), zap.Error(err))
		}
		s.count(ctx, aws.MetricOrdersCreated, nil)
		s.log.Info("order created",
			zap.String("correlation_id", pending.CorrelationID),
			zap.String("order_number", order.OrderNumber),
			zap.String("source", string(base.Source)),
		)
		return &VerifyResult{OrderNumber: order.OrderNumber, Order: order}, nil
	}

	msg := "order " + order.OrderNumber + " already exists"
	if paymentID != "" && order.GatewayPaymentID != "" && order.GatewayPaymentID != paymentID {
		msg += fmt.Sprintf("; paid by %s, not %s (possible double capture)", order.GatewayPaymentID, paymentID)
		s.alert(ctx, Alert{
			Type:              AlertDoubleCapture,
			SupportReference:  pending.CorrelationID,
			GatewayOrderID:    pending.GatewayOrderID,
			GatewayPaymentID:  paymentID,
			ExistingPaymentID: order.GatewayPaymentID,
			OrderNumber:       order.OrderNumber,
			CustomerID:        pending.CustomerID,
			Amount:            pending.Amount,
			Currency:          pending.Currency,
			Reason:            "second payment captured for an already materialized order",
		})
	}
	s.record(ctx, base, auditlog.EventDuplicateAttempt, "", msg)
	s.count(ctx, aws.MetricDuplicateAttempts, map[string]string{"Source": string(base.Source)})
	return &VerifyResult{OrderNumber: order.OrderNumber, Duplicate: true, Order: order}, nil
}

// materializationFailed closes the pending payment for business failures and
// returns infrastructure errors unchanged so they can be retried.
func (s *Service) materializationFailed(ctx context.Context, pending *payments.PendingPayment, paymentID string, base auditlog.Entry, err error) error {
	var (
		short  *orders.InsufficientStockError
		reason string
	)
	switch {
	case errors.As(err, &short):
		reason = short.Error()
	case errors.Is(err, orders.ErrAmountMismatch):
		reason = err.Error()
	case errors.Is(err, orders.ErrPaymentClosed):
		reason = "payment is no longer open"
	default:
		s.log.Error("materialize order failed",
			zap.String("correlation_id", pending.CorrelationID),
			zap.String("gateway_order_id", pending.GatewayOrderID),
			zap.Error(err),
		)
		return fmt.Errorf("materialize order: %w", err)
	}

	if merr := s.payments.MarkFailed(ctx, pending.GatewayOrderID, reason); merr != nil && !errors.Is(merr, payments.ErrStatusMismatch) {
		s.log.Error("mark pending payment failed", zap.String("gateway_order_id", pending.GatewayOrderID), zap.Error(merr))
	}
	s.record(ctx, base, auditlog.EventFailed, "", reason)
	s.count(ctx, aws.MetricMaterializationFailures, nil)
	s.alert(ctx, Alert{
		Type:             AlertMaterializationFailed,
		SupportReference: pending.CorrelationID,
		GatewayOrderID:   pending.GatewayOrderID,
		GatewayPaymentID: paymentID,
		CustomerID:       pending.CustomerID,
		Amount:           pending.Amount,
		Currency:         pending.Currency,
		Reason:           reason,
	})
	return &MaterializationError{Reference: pending.CorrelationID, Reason: reason, Err: err}
}
