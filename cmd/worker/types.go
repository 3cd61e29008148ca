package main

import "time"

// WebhookDelivery is a gateway webhook queued for asynchronous processing.
// Payload is the raw body exactly as received; the signature covers it.
// Messages are produced by an API Gateway to SQS integration, not by this module.
type WebhookDelivery struct {
	Payload    string    `json:"payload"`
	Signature  string    `json:"signature"`
	ClientIP   string    `json:"client_ip,omitempty"`
	ReceivedAt time.Time `json:"received_at,omitempty"`
}
