package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
)

var (
	indianPIN = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	phoneLike = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterStructValidation(shippingStructValidation, ShippingDetailsRequest{})
	v.RegisterStructValidation(paymentLogQueryStructValidation, PaymentLogQuery{})

	return v
}

// shippingStructValidation checks the phone shape, and the PIN code format
// for Indian addresses.
func shippingStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(ShippingDetailsRequest)

	if req.Phone != "" && !phoneLike.MatchString(req.Phone) {
		sl.ReportError(req.Phone, "phone", "Phone", "phone", "")
	}
	if strings.EqualFold(req.Country, "IN") && req.PostalCode != "" && !indianPIN.MatchString(req.PostalCode) {
		sl.ReportError(req.PostalCode, "postal_code", "PostalCode", "pin_code", fmt.Sprintf("%q is not a 6 digit PIN code", req.PostalCode))
	}
}

// paymentLogQueryStructValidation rejects inverted date ranges.
func paymentLogQueryStructValidation(sl validatorv10.StructLevel) {
	q := sl.Current().Interface().(PaymentLogQuery)
	if q.From == "" || q.To == "" {
		return
	}
	from, ferr := time.Parse(time.RFC3339, q.From)
	to, terr := time.Parse(time.RFC3339, q.To)
	if ferr == nil && terr == nil && to.Before(from) {
		sl.ReportError(q.To, "to", "To", "after_from", "")
	}
}
