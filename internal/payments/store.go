package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/nursery-checkout/internal/aws"
)

var (
	// ErrAlreadyExists indicates a pending payment with the same gateway order id exists.
	ErrAlreadyExists = errors.New("pending payment already exists")
	// ErrStatusMismatch indicates a conditional status transition did not apply.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
)

// Store encapsulates operations on the pending payments table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a pending payments Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create persists a new pending payment. Gateway order ids are never reused,
// so an existing item is reported as ErrAlreadyExists rather than overwritten.
func (s *Store) Create(ctx context.Context, p PendingPayment) error {
	now := s.nowFunc().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = StatusCreated
	}

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal pending payment: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(gateway_order_id)"),
	})
	if err != nil {
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches a pending payment by gateway order id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, gatewayOrderID string) (*PendingPayment, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            gatewayKey(gatewayOrderID),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p PendingPayment
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal pending payment: %w", err)
	}
	return &p, nil
}

// UpdateStatus conditionally moves the status from expected -> newStatus.
// Returns ErrStatusMismatch if the current status is not expected.
func (s *Store) UpdateStatus(ctx context.Context, gatewayOrderID, expectedStatus, newStatus string) error {
	now := s.nowFunc().UTC()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      gatewayKey(gatewayOrderID),
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ConditionExpression:      awsString("#s = :expected"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
	})
	return conditional(err)
}

// MarkFailed moves an open payment to FAILED and records the reason.
// Returns ErrStatusMismatch if the payment was already confirmed or failed.
func (s *Store) MarkFailed(ctx context.Context, gatewayOrderID, reason string) error {
	now := s.nowFunc().UTC()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      gatewayKey(gatewayOrderID),
		UpdateExpression:         awsString("SET #s = :failed, failure_reason = :r, updated_at = :ua"),
		ConditionExpression:      awsString("#s IN (:created, :verifying)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed":    &types.AttributeValueMemberS{Value: StatusFailed},
			":r":         &types.AttributeValueMemberS{Value: reason},
			":created":   &types.AttributeValueMemberS{Value: StatusCreated},
			":verifying": &types.AttributeValueMemberS{Value: StatusVerifying},
			":ua":        &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
	})
	return conditional(err)
}

// IncrementSignatureFailures bumps the signature failure counter and returns the new value.
// The payment stays open; the counter is what abuse alerting watches.
func (s *Store) IncrementSignatureFailures(ctx context.Context, gatewayOrderID string) (int, error) {
	now := s.nowFunc().UTC()
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 gatewayKey(gatewayOrderID),
		UpdateExpression:    awsString("SET signature_failures = if_not_exists(signature_failures, :zero) + :inc, updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(gateway_order_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":inc":  &types.AttributeValueMemberN{Value: "1"},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment signature failures: %w", err)
	}
	n, ok := out.Attributes["signature_failures"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	count, _ := strconv.Atoi(n.Value)
	return count, nil
}

// ConfirmItem returns the transaction write that marks an open payment
// CONFIRMED with the order number that materialized it.
func (s *Store) ConfirmItem(gatewayOrderID, orderNumber string) types.TransactWriteItem {
	now := s.nowFunc().UTC()
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:                &s.tableName,
			Key:                      gatewayKey(gatewayOrderID),
			UpdateExpression:         awsString("SET #s = :confirmed, order_number = :on, updated_at = :ua"),
			ConditionExpression:      awsString("#s IN (:created, :verifying)"),
			ExpressionAttributeNames: map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":confirmed": &types.AttributeValueMemberS{Value: StatusConfirmed},
				":on":        &types.AttributeValueMemberS{Value: orderNumber},
				":created":   &types.AttributeValueMemberS{Value: StatusCreated},
				":verifying": &types.AttributeValueMemberS{Value: StatusVerifying},
				":ua":        &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			},
		},
	}
}

func conditional(err error) error {
	if err == nil {
		return nil
	}
	var sc *types.ConditionalCheckFailedException
	if errors.As(err, &sc) {
		return ErrStatusMismatch
	}
	return fmt.Errorf("update item: %w", err)
}

func gatewayKey(gatewayOrderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"gateway_order_id": &types.AttributeValueMemberS{Value: gatewayOrderID},
	}
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
