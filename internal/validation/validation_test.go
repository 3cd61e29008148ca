package validation

import (
	"testing"
)

func validShipping() ShippingDetailsRequest {
	return ShippingDetailsRequest{
		Name:       "Asha Rao",
		Phone:      "+91 98450 12345",
		Email:      "asha@example.com",
		Line1:      "12 Lalbagh Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560004",
		Country:    "IN",
	}
}

func TestShippingDetailsRequest_Valid(t *testing.T) {
	v := New()

	if err := v.Struct(validShipping()); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestShippingDetailsRequest_InvalidPIN(t *testing.T) {
	v := New()

	req := validShipping()
	req.PostalCode = "05600"

	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for PIN code, got nil")
	}
}

func TestShippingDetailsRequest_ForeignPostalCodeAccepted(t *testing.T) {
	v := New()

	req := validShipping()
	req.Country = "GB"
	req.PostalCode = "SW1A 1AA"

	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestShippingDetailsRequest_MissingFields(t *testing.T) {
	v := New()

	req := ShippingDetailsRequest{
		// Name, Line1, City missing
		Phone:   "abc",
		Country: "IND",
	}

	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation errors for missing required fields, got nil")
	}
}

func TestVerifyRequest(t *testing.T) {
	v := New()

	ok := VerifyRequest{GatewayOrderID: "order_1", GatewayPaymentID: "pay_1", Signature: "deadbeef"}
	if err := v.Struct(ok); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}

	bad := VerifyRequest{GatewayOrderID: "order_1", GatewayPaymentID: "pay_1", Signature: "not-hex"}
	if err := v.Struct(bad); err == nil {
		t.Fatal("expected validation error for non-hex signature, got nil")
	}
}

func TestPaymentLogQuery_InvertedRange(t *testing.T) {
	v := New()

	q := PaymentLogQuery{From: "2026-05-02T00:00:00Z", To: "2026-05-01T00:00:00Z"}
	if err := v.Struct(q); err == nil {
		t.Fatal("expected validation error for inverted range, got nil")
	}

	q = PaymentLogQuery{EventType: "ORDER_CREATED", From: "2026-05-01T00:00:00Z", To: "2026-05-02T00:00:00Z"}
	if err := v.Struct(q); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}

	q = PaymentLogQuery{EventType: "SHIPPED"}
	if err := v.Struct(q); err == nil {
		t.Fatal("expected validation error for unknown event type, got nil")
	}
}
