package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/nursery-checkout/internal/aws/dynamotest"
)

func TestSettingsStore_DeliveryConfig(t *testing.T) {
	db := dynamotest.New()
	db.CreateTable("settings", "setting_key", "")
	defaults := DeliveryConfig{FreeDeliveryEnabled: true, FreeDeliveryMinAmount: 99900, FlatDeliveryCharge: 4900}
	s := NewSettingsStore(db, "settings", defaults)

	got, err := s.DeliveryConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaults, got)

	stored := DeliveryConfig{FreeDeliveryEnabled: false, FreeDeliveryMinAmount: 0, FlatDeliveryCharge: 7900}
	require.NoError(t, db.Seed("settings", deliveryItem{SettingKey: deliverySettingKey, DeliveryConfig: stored}))

	got, err = s.DeliveryConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}
