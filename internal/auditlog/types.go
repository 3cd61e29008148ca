package auditlog

import "time"

// EventType is a payment lifecycle transition.
type EventType string

const (
	EventInitiated           EventType = "INITIATED"
	EventVerificationStarted EventType = "VERIFICATION_STARTED"
	EventVerifiedSuccess     EventType = "VERIFIED_SUCCESS"
	EventSignatureFailed     EventType = "SIGNATURE_FAILED"
	EventDuplicateAttempt    EventType = "DUPLICATE_ATTEMPT"
	EventOrderCreated        EventType = "ORDER_CREATED"
	EventFailed              EventType = "FAILED"
	EventWebhookReceived     EventType = "WEBHOOK_RECEIVED"
	EventWebhookConfirmed    EventType = "WEBHOOK_CONFIRMED"
	EventCanceled            EventType = "CANCELED"
)

// Status is the outcome recorded with an event.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusInfo    Status = "INFO"
)

// Source is the entry point that produced an event.
type Source string

const (
	SourceClient  Source = "client"
	SourceWebhook Source = "webhook"
	SourceSystem  Source = "system"
)

// DefaultStatus is the status recorded when the caller does not set one.
func (e EventType) DefaultStatus() Status {
	switch e {
	case EventInitiated, EventVerificationStarted:
		return StatusPending
	case EventVerifiedSuccess, EventOrderCreated, EventWebhookConfirmed:
		return StatusSuccess
	case EventSignatureFailed, EventFailed:
		return StatusFailed
	}
	return StatusInfo
}

// Valid reports whether e is a known event type.
func (e EventType) Valid() bool {
	switch e {
	case EventInitiated, EventVerificationStarted, EventVerifiedSuccess, EventSignatureFailed,
		EventDuplicateAttempt, EventOrderCreated, EventFailed, EventWebhookReceived,
		EventWebhookConfirmed, EventCanceled:
		return true
	}
	return false
}

// Entry is one immutable row of the payment log. Entries of one correlation
// id sort by EventKey in the order they were written.
type Entry struct {
	CorrelationID    string    `dynamodbav:"correlation_id" json:"correlation_id"` // PK
	EventKey         string    `dynamodbav:"event_key" json:"event_key"`           // SK
	GatewayOrderID   string    `dynamodbav:"gateway_order_id,omitempty" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string    `dynamodbav:"gateway_payment_id,omitempty" json:"gateway_payment_id,omitempty"`
	EventType        EventType `dynamodbav:"event_type" json:"event_type"`
	Status           Status    `dynamodbav:"status" json:"status"`
	Amount           int64     `dynamodbav:"amount" json:"amount"`
	Message          string    `dynamodbav:"message,omitempty" json:"message,omitempty"`
	ClientIP         string    `dynamodbav:"client_ip,omitempty" json:"client_ip,omitempty"`
	Source           Source    `dynamodbav:"source" json:"source"`
	CreatedAt        time.Time `dynamodbav:"created_at" json:"created_at"`
	Timestamp        int64     `dynamodbav:"ts" json:"-"` // unix nanos, for range filters
}

// Filter narrows an admin listing. Zero values match everything.
type Filter struct {
	EventType      EventType
	Status         Status
	CorrelationID  string // substring match
	GatewayOrderID string
	From, To       time.Time
	PageSize       int
	PageToken      string
}

// Page is one page of a listing.
type Page struct {
	Items         []Entry `json:"items"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}
