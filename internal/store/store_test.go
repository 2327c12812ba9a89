package store

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notify-pipeline/internal/models"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func notification(id, recipient string, offset time.Duration) models.Notification {
	return models.Notification{
		NotificationID: id,
		EventType:      "task.assigned",
		Priority:       "normal",
		Recipient:      recipient,
		Channels:       []string{"email"},
		Metadata:       models.Metadata{Subject: "[task.assigned] T-1", TaskID: "T-1"},
		EventData:      map[string]any{"task_id": "T-1"},
		CreatedAt:      base.Add(offset),
	}
}

// exerciseStore runs the same contract against every backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.SaveEvent(ctx, models.Event{
		EventID: "evt-1", EventType: "task.assigned", Assignee: "alice", ReceivedAt: base,
	}))
	require.NoError(t, s.SaveEvent(ctx, models.Event{
		EventID: "evt-2", EventType: "task.urgent", Assignee: "bob", ReceivedAt: base.Add(time.Second),
	}))

	require.NoError(t, s.SaveNotification(ctx, notification("ntf-a", "alice", 0)))
	require.NoError(t, s.SaveNotification(ctx, notification("ntf-b", "bob", time.Second)))
	require.NoError(t, s.SaveNotification(ctx, notification("ntf-c", "alice", 2*time.Second)))

	require.NoError(t, s.SaveEscalation(ctx, models.EscalationLogEntry{
		EventID: "evt-2", EventType: "task.urgent", Targets: []string{"ops-team@example.com"}, EscalatedAt: base,
	}))

	events, err := s.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-1", events[0].EventID)
	assert.Equal(t, "evt-2", events[1].EventID)

	all, err := s.ListNotifications(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ntf-a", "ntf-b", "ntf-c"}, ids(all))

	forAlice, err := s.NotificationsFor(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"ntf-a", "ntf-c"}, ids(forAlice))
	assert.Equal(t, []string{"email"}, forAlice[0].Channels)
	assert.Equal(t, "[task.assigned] T-1", forAlice[0].Metadata.Subject)

	none, err := s.NotificationsFor(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	escalations, err := s.ListEscalations(ctx, 5)
	require.NoError(t, err)
	require.Len(t, escalations, 1)
	assert.Equal(t, []string{"ops-team@example.com"}, escalations[0].Targets)

	require.NoError(t, s.Close())
}

// exerciseListLimit checks that a limit keeps the newest records.
func exerciseListLimit(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		require.NoError(t, s.SaveNotification(ctx, notification(id, "x", time.Duration(i)*time.Second)))
		require.NoError(t, s.SaveEvent(ctx, models.Event{EventID: id, EventType: "task.assigned", Assignee: "x", ReceivedAt: base.Add(time.Duration(i) * time.Second)}))
		require.NoError(t, s.SaveEscalation(ctx, models.EscalationLogEntry{EventID: id, EventType: "task.urgent", Targets: []string{"ops"}, EscalatedAt: base.Add(time.Duration(i) * time.Second)}))
	}

	got, err := s.ListNotifications(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, ids(got))

	events, err := s.ListEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "d", events[0].EventID)
	assert.Equal(t, "e", events[1].EventID)

	escalations, err := s.ListEscalations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, escalations, 2)
	assert.Equal(t, "d", escalations[0].EventID)
	assert.Equal(t, "e", escalations[1].EventID)

	require.NoError(t, s.Close())
}

func ids(ns []models.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.NotificationID
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ListLimitKeepsNewest(t *testing.T) {
	exerciseListLimit(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), zap.NewNop(), filepath.Join(t.TempDir(), "notify.db"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestSQLiteStore_ListLimitKeepsNewest(t *testing.T) {
	s, err := OpenSQLite(context.Background(), zap.NewNop(), filepath.Join(t.TempDir(), "notify.db"))
	require.NoError(t, err)
	exerciseListLimit(t, s)
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), zap.NewNop(), " ")
	assert.Error(t, err)
}

func TestDynamoStore(t *testing.T) {
	exerciseStore(t, NewDynamoStoreWithClient(newFakeDynamo(), "notify", zap.NewNop()))
}

func TestDynamoStore_ListLimitKeepsNewest(t *testing.T) {
	exerciseListLimit(t, NewDynamoStoreWithClient(newFakeDynamo(), "notify", zap.NewNop()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, zap.NewNop(), Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, zap.NewNop(), Config{Backend: "cassandra"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, zap.NewNop(), Config{Backend: BackendDynamo})
	assert.Error(t, err, "dynamo without a table must fail")

	s, err = Open(ctx, zap.NewNop(), Config{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

// fakeDynamo understands the filter expressions scanKind builds and pages
// results pageSize items at a time in key order.
const pageSize = 3

type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := in.Item["pk"].(*types.AttributeValueMemberS).Value
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kind := in.ExpressionAttributeValues[":kind"].(*types.AttributeValueMemberS).Value
	var recipient string
	if v, ok := in.ExpressionAttributeValues[":recipient"]; ok {
		recipient = v.(*types.AttributeValueMemberS).Value
	}

	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if in.ExclusiveStartKey != nil {
		start := in.ExclusiveStartKey["pk"].(*types.AttributeValueMemberS).Value
		keys = keys[sort.SearchStrings(keys, start)+1:]
	}

	var last map[string]types.AttributeValue
	if len(keys) > pageSize {
		keys = keys[:pageSize]
		last = map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: keys[pageSize-1]}}
	}

	var out []map[string]types.AttributeValue
	for _, k := range keys {
		item := f.items[k]
		if item["kind"].(*types.AttributeValueMemberS).Value != kind {
			continue
		}
		if recipient != "" {
			r, ok := item["recipient"].(*types.AttributeValueMemberS)
			if !ok || r.Value != recipient {
				continue
			}
		}
		out = append(out, item)
	}
	return &dynamodb.ScanOutput{Items: out, LastEvaluatedKey: last}, nil
}
