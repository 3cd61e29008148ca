package cart

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/nursery-checkout/internal/aws"
)

// Store encapsulates reads and the post-order clear on the carts table.
// Cart mutations (add, remove, change quantity) belong to the storefront.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a cart Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Get returns the user's line items. A user without a cart has an empty cart.
func (s *Store) Get(ctx context.Context, userID string) ([]LineItem, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            userKey(userID),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return rec.Items, nil
}

// Clear removes the user's cart. Clearing a missing cart is not an error.
func (s *Store) Clear(ctx context.Context, userID string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       userKey(userID),
	})
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func userKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
	}
}

func awsBool(b bool) *bool { return &b }
