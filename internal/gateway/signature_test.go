package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentSignature(t *testing.T) {
	sig := PaymentSignature("s3cret", "order_abc", "pay_xyz")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, PaymentSignature("s3cret", "order_abc", "pay_xyz"))
	assert.NotEqual(t, sig, PaymentSignature("s3cret", "order_abc", "pay_other"))
	assert.NotEqual(t, sig, PaymentSignature("other", "order_abc", "pay_xyz"))

	assert.True(t, VerifyPaymentSignature("s3cret", "order_abc", "pay_xyz", sig))
	assert.True(t, VerifyPaymentSignature("s3cret", "order_abc", "pay_xyz", " "+strings.ToUpper(sig)+" "))
	assert.False(t, VerifyPaymentSignature("s3cret", "order_abc", "pay_other", sig))
	assert.False(t, VerifyPaymentSignature("s3cret", "order_abc", "pay_xyz", ""))
	assert.False(t, VerifyPaymentSignature("", "order_abc", "pay_xyz", sig))
	assert.False(t, VerifyPaymentSignature("s3cret", "order_abc", "pay_xyz", sig[:63]))
}

func TestWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	sig := WebhookSignature("whsec", body)

	assert.True(t, VerifyWebhookSignature("whsec", body, sig))
	assert.False(t, VerifyWebhookSignature("whsec", []byte(`{"event":"payment.captured" }`), sig), "any byte change invalidates")
	assert.False(t, VerifyWebhookSignature("whsec", body, ""))
	assert.False(t, VerifyWebhookSignature("", body, sig))
	assert.False(t, VerifyWebhookSignature("other", body, sig))
}
