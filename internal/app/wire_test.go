package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/nursery-checkout/internal/aws"
	"github.com/imrishuroy/nursery-checkout/internal/aws/dynamotest"
	"github.com/imrishuroy/nursery-checkout/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		PendingTable:         "pending_payments",
		OrdersTable:          "orders",
		PaymentLogsTable:     "payment_logs",
		CatalogTable:         "catalog",
		CartsTable:           "carts",
		SettingsTable:        "settings",
		GatewayBaseURL:       "https://api.razorpay.com",
		GatewayKeyID:         "rzp_test_key",
		GatewayKeySecret:     "key-secret",
		GatewayWebhookSecret: "webhook-secret",
		Currency:             "INR",
		JWTSecret:            "jwt-secret",
		OrderNodeID:          1,
	}
}

func TestWire(t *testing.T) {
	a, err := Wire(testConfig(), &aws.AWSClients{DynamoDB: dynamotest.New()}, nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Checkout)
	assert.NotNil(t, a.PaymentLogs)
	assert.NotNil(t, a.Auth)
}

func TestWire_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.GatewayKeySecret = ""
	_, err := Wire(cfg, &aws.AWSClients{DynamoDB: dynamotest.New()}, nil)
	require.Error(t, err)

	cfg = testConfig()
	cfg.OrderNodeID = 5000
	_, err = Wire(cfg, &aws.AWSClients{DynamoDB: dynamotest.New()}, nil)
	require.Error(t, err)
}
