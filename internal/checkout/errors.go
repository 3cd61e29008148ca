package checkout

import (
	"errors"
	"fmt"

	"github.com/imrishuroy/nursery-checkout/internal/cart"
)

var (
	ErrCartInvalid           = errors.New("cart is not valid for checkout")
	ErrCartEmpty             = errors.New("cart is empty")
	ErrCartTooLarge          = errors.New("cart has too many lines")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrGateway               = errors.New("payment gateway unavailable")
	ErrSignatureInvalid      = errors.New("payment signature is invalid")
	ErrMaterializationFailed = errors.New("order could not be created")
	ErrPaymentNotFound       = errors.New("pending payment not found")
	ErrPaymentNotOpen        = errors.New("pending payment is no longer open")
)

// CartInvalidError carries the issues that blocked checkout.
type CartInvalidError struct {
	Issues []cart.Issue
}

func (e *CartInvalidError) Error() string {
	return fmt.Sprintf("%s: %d issue(s)", ErrCartInvalid, len(e.Issues))
}

func (e *CartInvalidError) Is(target error) bool { return target == ErrCartInvalid }

// GatewayError wraps a failed gateway call. Nothing was persisted.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %v", ErrGateway, e.Err)
}

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }
func (e *GatewayError) Unwrap() error        { return e.Err }

// MaterializationError reports a verified payment that did not become an
// order. Reference is the support reference quoted to the customer.
type MaterializationError struct {
	Reference string
	Reason    string
	Err       error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("%s (reference %s): %s", ErrMaterializationFailed, e.Reference, e.Reason)
}

func (e *MaterializationError) Is(target error) bool { return target == ErrMaterializationFailed }
func (e *MaterializationError) Unwrap() error        { return e.Err }
