package auditlog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/nursery-checkout/internal/aws"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ErrInvalidPageToken is returned for tokens this store did not issue.
var ErrInvalidPageToken = errors.New("invalid page token")

// Store is the append-only payment log table. It has no update or delete path.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a payment log Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Append inserts e and returns it with its key and timestamps filled in.
// The write is conditional on the key being new, so an existing row can
// never be replaced.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.CorrelationID == "" {
		return Entry{}, fmt.Errorf("append payment log: correlation id is required")
	}
	if !e.EventType.Valid() {
		return Entry{}, fmt.Errorf("append payment log: unknown event type %q", e.EventType)
	}
	now := s.nowFunc().UTC()
	e.CreatedAt = now
	e.Timestamp = now.UnixNano()
	e.EventKey = fmt.Sprintf("%020d#%s", e.Timestamp, uuid.NewString()[:8])
	if e.Status == "" {
		e.Status = e.EventType.DefaultStatus()
	}
	if e.Source == "" {
		e.Source = SourceSystem
	}

	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal payment log: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(event_key)"),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("put payment log: %w", err)
	}
	return e, nil
}

// Timeline returns every entry of one checkout attempt in write order.
func (s *Store) Timeline(ctx context.Context, correlationID string) ([]Entry, error) {
	var (
		entries []Entry
		start   map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Query(ctx, &dyn.QueryInput{
			TableName:              &s.tableName,
			KeyConditionExpression: awsString("correlation_id = :cid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cid": &types.AttributeValueMemberS{Value: correlationID},
			},
			ScanIndexForward:  awsBool(true),
			ExclusiveStartKey: start,
			ConsistentRead:    awsBool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("query payment log: %w", err)
		}
		var page []Entry
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal payment log: %w", err)
		}
		entries = append(entries, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return entries, nil
		}
		start = out.LastEvaluatedKey
	}
}

type pageToken struct {
	CorrelationID string `json:"c"`
	EventKey      string `json:"k"`
}

// List scans the log with the given filter. Pages hold at most PageSize
// entries; NextPageToken is empty on the last page.
func (s *Store) List(ctx context.Context, f Filter) (Page, error) {
	size := f.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	start, err := decodeToken(f.PageToken)
	if err != nil {
		return Page{}, err
	}

	filter, names, values := buildFilter(f)
	page := Page{Items: []Entry{}}
	for {
		in := &dyn.ScanInput{
			TableName:         &s.tableName,
			Limit:             awsInt32(int32(size)),
			ExclusiveStartKey: start,
		}
		if filter != "" {
			in.FilterExpression = &filter
			in.ExpressionAttributeValues = values
			if len(names) > 0 {
				in.ExpressionAttributeNames = names
			}
		}
		out, err := s.client.Scan(ctx, in)
		if err != nil {
			return Page{}, fmt.Errorf("scan payment log: %w", err)
		}
		for i, item := range out.Items {
			var e Entry
			if err := attributevalue.UnmarshalMap(item, &e); err != nil {
				return Page{}, fmt.Errorf("unmarshal payment log: %w", err)
			}
			page.Items = append(page.Items, e)
			if len(page.Items) == size {
				if i < len(out.Items)-1 || len(out.LastEvaluatedKey) > 0 {
					page.NextPageToken = encodeToken(e)
				}
				return page, nil
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return page, nil
		}
		start = out.LastEvaluatedKey
	}
}

func buildFilter(f Filter) (string, map[string]string, map[string]types.AttributeValue) {
	var clauses []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}

	if f.EventType != "" {
		clauses = append(clauses, "event_type = :et")
		values[":et"] = &types.AttributeValueMemberS{Value: string(f.EventType)}
	}
	if f.Status != "" {
		clauses = append(clauses, "#st = :st")
		names["#st"] = "status"
		values[":st"] = &types.AttributeValueMemberS{Value: string(f.Status)}
	}
	if cid := strings.TrimSpace(f.CorrelationID); cid != "" {
		clauses = append(clauses, "contains(correlation_id, :cid)")
		values[":cid"] = &types.AttributeValueMemberS{Value: cid}
	}
	if goid := strings.TrimSpace(f.GatewayOrderID); goid != "" {
		clauses = append(clauses, "gateway_order_id = :goid")
		values[":goid"] = &types.AttributeValueMemberS{Value: goid}
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "ts >= :from")
		values[":from"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(f.From.UnixNano(), 10)}
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "ts <= :to")
		values[":to"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(f.To.UnixNano(), 10)}
	}
	return strings.Join(clauses, " AND "), names, values
}

func encodeToken(e Entry) string {
	b, _ := json.Marshal(pageToken{CorrelationID: e.CorrelationID, EventKey: e.EventKey})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeToken(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidPageToken
	}
	var pt pageToken
	if err := json.Unmarshal(raw, &pt); err != nil || pt.CorrelationID == "" || pt.EventKey == "" {
		return nil, ErrInvalidPageToken
	}
	return map[string]types.AttributeValue{
		"correlation_id": &types.AttributeValueMemberS{Value: pt.CorrelationID},
		"event_key":      &types.AttributeValueMemberS{Value: pt.EventKey},
	}, nil
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }
func awsInt32(n int32) *int32    { return &n }
