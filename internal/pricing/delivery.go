package pricing

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/nursery-checkout/internal/aws"
)

const deliverySettingKey = "delivery"

// DeliverySource supplies the active delivery configuration.
type DeliverySource interface {
	DeliveryConfig(ctx context.Context) (DeliveryConfig, error)
}

// SettingsStore reads the delivery configuration item that store
// administration maintains in the settings table.
type SettingsStore struct {
	client    aws.DynamoDBAPI
	tableName string
	defaults  DeliveryConfig
}

// NewSettingsStore returns a SettingsStore that answers with defaults when
// no delivery item has been written yet.
func NewSettingsStore(client aws.DynamoDBAPI, tableName string, defaults DeliveryConfig) *SettingsStore {
	return &SettingsStore{client: client, tableName: tableName, defaults: defaults}
}

type deliveryItem struct {
	SettingKey string `dynamodbav:"setting_key"`
	DeliveryConfig
}

// DeliveryConfig returns the stored configuration or the defaults.
func (s *SettingsStore) DeliveryConfig(ctx context.Context) (DeliveryConfig, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"setting_key": &types.AttributeValueMemberS{Value: deliverySettingKey},
		},
	})
	if err != nil {
		return DeliveryConfig{}, fmt.Errorf("get delivery config: %w", err)
	}
	if len(out.Item) == 0 {
		return s.defaults, nil
	}
	var item deliveryItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return DeliveryConfig{}, fmt.Errorf("unmarshal delivery config: %w", err)
	}
	return item.DeliveryConfig, nil
}
