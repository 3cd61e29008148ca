package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/nursery-checkout/internal/aws"
)

// Reader is the read side of the catalog consumed by cart validation.
type Reader interface {
	State(ctx context.Context, key Key) (*State, error)
}

// Store reads catalog items from DynamoDB and builds the conditional stock
// decrement used inside order transactions. Catalog administration writes
// the table; this service never creates or edits items.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a catalog Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// State fetches the current state of one item. Returns (nil, nil) if the item does not exist.
func (s *Store) State(ctx context.Context, key Key) (*State, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"item_key": &types.AttributeValueMemberS{Value: key.String()},
		},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get catalog item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var st State
	if err := attributevalue.UnmarshalMap(out.Item, &st); err != nil {
		return nil, fmt.Errorf("unmarshal catalog item: %w", err)
	}
	return &st, nil
}

// DecrementItem returns a transaction write that takes qty units off an item's
// stock only if at least qty are available, so stock can never go negative.
// Concurrent orders competing for the same units are arbitrated by DynamoDB.
func (s *Store) DecrementItem(itemKey string, qty int64) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName: &s.tableName,
			Key: map[string]types.AttributeValue{
				"item_key": &types.AttributeValueMemberS{Value: itemKey},
			},
			UpdateExpression:    awsString("SET stock = stock - :qty"),
			ConditionExpression: awsString("attribute_exists(item_key) AND stock >= :qty"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":qty": &types.AttributeValueMemberN{Value: strconv.FormatInt(qty, 10)},
			},
		},
	}
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
