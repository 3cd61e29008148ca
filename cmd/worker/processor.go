package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/checkout"
	"github.com/imrishuroy/nursery-checkout/internal/gateway"
)

// WebhookHandler is the checkout entry point for gateway webhooks.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte, signature, clientIP string) (*checkout.WebhookResult, error)
}

// Processor replays queued webhook deliveries through the checkout service.
type Processor struct {
	webhooks WebhookHandler
	log      *zap.Logger
}

// NewProcessor creates a new worker processor.
func NewProcessor(webhooks WebhookHandler, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{webhooks: webhooks, log: log}
}

// Handle processes an SQS batch. Messages that failed for a retryable reason
// are reported back so only they are redelivered; rejected deliveries are
// logged and dropped.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("webhook delivery failed, will retry",
				zap.String("message_id", rec.MessageId),
				zap.Error(err),
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg WebhookDelivery
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		p.log.Warn("dropping unreadable webhook delivery", zap.String("message_id", rec.MessageId), zap.Error(err))
		return nil
	}

	res, err := p.webhooks.HandleWebhook(ctx, []byte(msg.Payload), msg.Signature, msg.ClientIP)
	switch {
	case errors.Is(err, checkout.ErrSignatureInvalid), errors.Is(err, gateway.ErrMalformedWebhook):
		p.log.Warn("dropping rejected webhook delivery", zap.String("message_id", rec.MessageId), zap.Error(err))
		return nil
	case err != nil:
		return fmt.Errorf("handle webhook: %w", err)
	}

	p.log.Info("webhook delivery processed",
		zap.String("message_id", rec.MessageId),
		zap.String("status", res.Status),
		zap.String("event", res.Event),
		zap.String("order_number", res.OrderNumber),
		zap.String("support_reference", res.Reference),
	)
	return nil
}
