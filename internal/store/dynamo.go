package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"notify-pipeline/internal/models"
)

// Record kinds sharing the single table.
const (
	kindEvent        = "EVENT"
	kindNotification = "NOTIFICATION"
	kindEscalation   = "ESCALATION"
)

// DynamoConfig locates the table.
type DynamoConfig struct {
	Table    string
	Endpoint string
	Region   string
}

// DynamoAPI is the subset of the DynamoDB client the store calls.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore keeps every record kind in one table keyed by "pk", with a
// "kind" attribute used to filter scans.
type DynamoStore struct {
	db        DynamoAPI
	tableName string
	logger    *zap.Logger
}

type eventItem struct {
	PK   string `dynamodbav:"pk"`
	Kind string `dynamodbav:"kind"`
	models.Event
}

type notificationItem struct {
	PK   string `dynamodbav:"pk"`
	Kind string `dynamodbav:"kind"`
	models.Notification
}

type escalationItem struct {
	PK   string `dynamodbav:"pk"`
	Kind string `dynamodbav:"kind"`
	models.EscalationLogEntry
}

// NewDynamoStore loads the default AWS config and connects to the table.
func NewDynamoStore(ctx context.Context, logger *zap.Logger, cfg DynamoConfig) (*DynamoStore, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("DYNAMO_TABLE is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-2"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Named("store").Info("Using DynamoDB store",
		zap.String("table", cfg.Table),
		zap.String("endpoint", cfg.Endpoint),
	)
	return NewDynamoStoreWithClient(client, cfg.Table, logger), nil
}

// NewDynamoStoreWithClient wraps an existing client.
func NewDynamoStoreWithClient(db DynamoAPI, table string, logger *zap.Logger) *DynamoStore {
	return &DynamoStore{db: db, tableName: table, logger: logger.Named("store")}
}

func (s *DynamoStore) SaveEvent(ctx context.Context, ev models.Event) error {
	return s.put(ctx, eventItem{PK: "EVT#" + ev.EventID, Kind: kindEvent, Event: ev})
}

func (s *DynamoStore) ListEvents(ctx context.Context, limit int) ([]models.Event, error) {
	var items []eventItem
	if err := s.scanKind(ctx, kindEvent, nil, &items); err != nil {
		return nil, err
	}
	out := make([]models.Event, len(items))
	for i, it := range items {
		out[i] = it.Event
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return tail(out, listLimit(limit)), nil
}

func (s *DynamoStore) SaveNotification(ctx context.Context, n models.Notification) error {
	return s.put(ctx, notificationItem{PK: "NTF#" + n.NotificationID, Kind: kindNotification, Notification: n})
}

func (s *DynamoStore) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	return s.notifications(ctx, nil, listLimit(limit))
}

func (s *DynamoStore) NotificationsFor(ctx context.Context, recipient string) ([]models.Notification, error) {
	return s.notifications(ctx, &recipient, 0)
}

func (s *DynamoStore) notifications(ctx context.Context, recipient *string, limit int) ([]models.Notification, error) {
	var items []notificationItem
	if err := s.scanKind(ctx, kindNotification, recipient, &items); err != nil {
		return nil, err
	}
	out := make([]models.Notification, len(items))
	for i, it := range items {
		out[i] = it.Notification
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 {
		out = tail(out, limit)
	}
	return out, nil
}

func (s *DynamoStore) SaveEscalation(ctx context.Context, e models.EscalationLogEntry) error {
	pk := fmt.Sprintf("ESC#%s#%d", e.EventID, e.EscalatedAt.UnixNano())
	return s.put(ctx, escalationItem{PK: pk, Kind: kindEscalation, EscalationLogEntry: e})
}

func (s *DynamoStore) ListEscalations(ctx context.Context, limit int) ([]models.EscalationLogEntry, error) {
	var items []escalationItem
	if err := s.scanKind(ctx, kindEscalation, nil, &items); err != nil {
		return nil, err
	}
	out := make([]models.EscalationLogEntry, len(items))
	for i, it := range items {
		out[i] = it.EscalationLogEntry
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EscalatedAt.Before(out[j].EscalatedAt) })
	return tail(out, listLimit(limit)), nil
}

func (s *DynamoStore) Close() error { return nil }

func (s *DynamoStore) put(ctx context.Context, v any) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// scanKind scans every page for records of one kind, optionally filtered by
// recipient. Scan order is arbitrary, so callers sort before limiting.
func (s *DynamoStore) scanKind(ctx context.Context, kind string, recipient *string, out any) error {
	filter := "#k = :kind"
	names := map[string]string{"#k": "kind"}
	values := map[string]types.AttributeValue{
		":kind": &types.AttributeValueMemberS{Value: kind},
	}
	if recipient != nil {
		filter += " AND #r = :recipient"
		names["#r"] = "recipient"
		values[":recipient"] = &types.AttributeValueMemberS{Value: *recipient}
	}

	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		page, err := s.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.tableName),
			FilterExpression:          aws.String(filter),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return fmt.Errorf("scan %s: %w", kind, err)
		}
		items = append(items, page.Items...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		startKey = page.LastEvaluatedKey
	}

	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return nil
}
