package orders

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/nursery-checkout/internal/aws"
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Get fetches the order materialized for a gateway order id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, paymentRef string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            paymentRefKey(paymentRef),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// PutItem returns the transaction write that inserts o unless an order for
// the same payment_ref already exists.
func (s *Store) PutItem(o Order) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal order item: %w", err)
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           &s.tableName,
			Item:                item,
			ConditionExpression: awsString("attribute_not_exists(payment_ref)"),
		},
	}, nil
}

func paymentRefKey(paymentRef string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"payment_ref": &types.AttributeValueMemberS{Value: paymentRef},
	}
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
