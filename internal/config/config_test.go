package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY_KEY_ID", "rzp_test_key")
	t.Setenv("GATEWAY_KEY_SECRET", "key-secret")
	t.Setenv("GATEWAY_WEBHOOK_SECRET", "webhook-secret")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, "pending_payments", cfg.PendingTable)
	assert.Equal(t, "payment_logs", cfg.PaymentLogsTable)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, int64(99900), cfg.DefaultFreeDeliveryMin)
	assert.Equal(t, int64(4900), cfg.DefaultFlatDelivery)
	assert.Equal(t, int64(-1), cfg.OrderNodeID)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("RUN_LOCAL", "true")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("ORDER_NODE_ID", "12")
	t.Setenv("AWS_ENDPOINT_OVERRIDE", "http://localhost:4566")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.RunLocal)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, int64(12), cfg.OrderNodeID)
	assert.Equal(t, "http://localhost:4566", cfg.AWSEndpoint)
}

func TestLoad_MissingSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("GATEWAY_WEBHOOK_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_WEBHOOK_SECRET")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_InvalidValues(t *testing.T) {
	setRequired(t)
	t.Setenv("DEFAULT_FLAT_DELIVERY", "forty")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("DEFAULT_FLAT_DELIVERY", "-1")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("DEFAULT_FLAT_DELIVERY", "")
	t.Setenv("GATEWAY_TIMEOUT", "soon")
	_, err = Load()
	require.Error(t, err)
}
