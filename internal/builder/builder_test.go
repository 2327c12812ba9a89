package builder

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notify-pipeline/internal/channels"
	"notify-pipeline/internal/models"
	"notify-pipeline/internal/routing"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	tbl := routing.Default()
	return New(zap.NewNop(), channels.NewResolver(zap.NewNop(), tbl), tbl, func() time.Time { return fixedNow })
}

func TestBuild_Urgent(t *testing.T) {
	b := newBuilder(t)
	n := b.Build("task.urgent", "alice", map[string]any{"task_id": "T-9", "project": "apollo"}, nil)
	require.NotNil(t, n)

	assert.Equal(t, []string{"email", "sms"}, n.Channels)
	assert.Equal(t, "high", n.Priority)
	assert.Equal(t, "alice", n.Recipient)
	assert.Equal(t, "task.urgent", n.EventType)
	assert.Equal(t, fixedNow, n.CreatedAt)
	assert.True(t, strings.HasPrefix(n.NotificationID, "ntf-"))
	assert.Len(t, n.NotificationID, len("ntf-")+12)

	assert.Equal(t, "[task.urgent] T-9", n.Metadata.Subject)
	assert.Equal(t, "Hi alice, task.urgent for task T-9 in project apollo.", n.Metadata.Body)
	assert.Equal(t, "high", n.Metadata.Priority)
	assert.Equal(t, "T-9", n.Metadata.TaskID)
	assert.Equal(t, "apollo", n.Metadata.Project)
}

func TestBuild_ExtraChannelsMergedAndSorted(t *testing.T) {
	b := newBuilder(t)
	n := b.Build("task.assigned", "bob", nil, []string{"push", "email", "slack"})
	require.NotNil(t, n)
	assert.Equal(t, []string{"email", "slack", "push"}, n.Channels)
}

func TestBuild_UnknownChannelSortsLast(t *testing.T) {
	b := newBuilder(t)
	n := b.Build("task.urgent", "bob", nil, []string{"carrier-pigeon", "slack"})
	require.NotNil(t, n)
	assert.Equal(t, []string{"email", "sms", "slack", "carrier-pigeon"}, n.Channels)
}

func TestBuild_ExtrasDoNotLeakBetweenCalls(t *testing.T) {
	b := newBuilder(t)
	withSlack := b.Build("task.assigned", "alice", nil, []string{"slack"})
	plain := b.Build("task.assigned", "bob", nil, nil)

	require.NotNil(t, withSlack)
	require.NotNil(t, plain)
	assert.Equal(t, []string{"email", "slack"}, withSlack.Channels)
	assert.Equal(t, []string{"email"}, plain.Channels)
}

func TestBuild_ChannelsUnique(t *testing.T) {
	b := newBuilder(t)
	n := b.Build("task.urgent", "alice", nil, []string{"sms", "sms", "email", "push", "push"})
	require.NotNil(t, n)
	assert.Equal(t, []string{"email", "sms", "push"}, n.Channels)
}

func TestBuild_MissingFieldsDefaultToUnknown(t *testing.T) {
	b := newBuilder(t)
	n := b.Build("comment.added", "carol", map[string]any{}, nil)
	require.NotNil(t, n)
	assert.Equal(t, "[comment.added] unknown", n.Metadata.Subject)
	assert.Equal(t, "Hi carol, comment.added for task unknown in project unknown.", n.Metadata.Body)
	assert.Nil(t, n.Metadata.TaskID)
	assert.Equal(t, "low", n.Priority)
}

func TestBuild_SubjectTruncated(t *testing.T) {
	b := newBuilder(t)
	long := strings.Repeat("x", 300)
	n := b.Build("task.assigned", "dave", map[string]any{"task_id": long}, nil)
	require.NotNil(t, n)
	assert.Len(t, []rune(n.Metadata.Subject), MaxSubjectLength)
	assert.True(t, strings.HasSuffix(n.Metadata.Subject, "..."))
}

func TestBuild_UniqueIDsForIdenticalInputs(t *testing.T) {
	b := newBuilder(t)
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := b.Build("task.assigned", "alice", nil, nil)
			mu.Lock()
			defer mu.Unlock()
			seen[n.NotificationID] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 100)
}

func TestBuild_UniqueIDsAcrossBuilders(t *testing.T) {
	first, second := newBuilder(t), newBuilder(t)
	ids := make(map[string]bool)
	for i := 0; i < 50; i++ {
		for _, b := range []*Builder{first, second} {
			n := b.Build("task.assigned", "bob", nil, nil)
			require.False(t, ids[n.NotificationID], "id %s reused", n.NotificationID)
			ids[n.NotificationID] = true
		}
	}
	assert.Len(t, ids, 100)
}

func TestBuild_NilWhenNoChannels(t *testing.T) {
	b := New(zap.NewNop(), emptyResolver{}, routing.Default(), nil)
	assert.Nil(t, b.Build("task.assigned", "alice", nil, []string{"slack"}))
}

func TestBuildEvent_CarriesEventID(t *testing.T) {
	b := newBuilder(t)
	n := b.BuildEvent(models.Event{EventID: "evt-1", EventType: "review.requested", Assignee: "erin"}, nil)
	require.NotNil(t, n)
	assert.Equal(t, "evt-1", n.EventID)
	assert.Equal(t, "erin", n.Recipient)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "héllo wo...", Truncate("héllo world!", 11))
}

type emptyResolver struct{}

func (emptyResolver) ResolveChannels(string, string) []string { return nil }
func (emptyResolver) ResolvePriority(string) string           { return routing.PriorityNormal }
