package validation

// ShippingDetailsRequest is the payload for POST /checkout/intent.
type ShippingDetailsRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,min=7,max=20"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=12"`
	Country    string `json:"country" validate:"required,len=2"` // ISO 3166-1 alpha-2
}

// VerifyRequest is what the checkout sheet hands back after a payment.
type VerifyRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required,hexadecimal"`
}

// CancelRequest reports a dismissed checkout sheet.
type CancelRequest struct {
	GatewayOrderID string `json:"gateway_order_id" validate:"required"`
	Reason         string `json:"reason,omitempty" validate:"max=500"`
}

// PaymentLogQuery is the query string of GET /admin/payment-logs.
type PaymentLogQuery struct {
	EventType      string `form:"event_type" validate:"omitempty,oneof=INITIATED VERIFICATION_STARTED VERIFIED_SUCCESS SIGNATURE_FAILED DUPLICATE_ATTEMPT ORDER_CREATED FAILED WEBHOOK_RECEIVED WEBHOOK_CONFIRMED CANCELED"`
	Status         string `form:"status" validate:"omitempty,oneof=PENDING SUCCESS FAILED INFO"`
	CorrelationID  string `form:"correlation_id"`
	GatewayOrderID string `form:"gateway_order_id"`
	From           string `form:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To             string `form:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	PageSize       int    `form:"page_size" validate:"omitempty,min=1,max=200"`
	PageToken      string `form:"page_token"`
}
