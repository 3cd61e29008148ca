package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "X-Razorpay-Signature"

// PaymentSignature is the signature the checkout sheet returns for a
// successful payment: hex(HMAC-SHA256(keySecret, orderID|paymentID)).
func PaymentSignature(keySecret, orderID, paymentID string) string {
	return sign(keySecret, []byte(orderID+"|"+paymentID))
}

// VerifyPaymentSignature checks a client callback signature in constant time.
func VerifyPaymentSignature(keySecret, orderID, paymentID, signature string) bool {
	if keySecret == "" || signature == "" {
		return false
	}
	return equal(PaymentSignature(keySecret, orderID, paymentID), signature)
}

// WebhookSignature is hex(HMAC-SHA256(webhookSecret, body)).
func WebhookSignature(webhookSecret string, body []byte) string {
	return sign(webhookSecret, body)
}

// VerifyWebhookSignature checks a webhook body against its header signature
// in constant time. body must be the exact bytes received.
func VerifyWebhookSignature(webhookSecret string, body []byte, signature string) bool {
	if webhookSecret == "" || signature == "" {
		return false
	}
	return equal(WebhookSignature(webhookSecret, body), signature)
}

func sign(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func equal(expected, given string) bool {
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(given))))
}
