package routing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	tbl := Default()

	urgent := tbl.Route("task.urgent")
	assert.Equal(t, PriorityHigh, urgent.Priority)
	assert.Equal(t, []string{"email", "sms"}, urgent.Channels)
	assert.True(t, urgent.HasAction(ActionPageOnCall))

	assert.Equal(t, 15*time.Minute, tbl.Route("comment.added").Cooldown())
	assert.Equal(t, 15*time.Minute, tbl.MaxCooldown())

	ent, ok := tbl.Plan(PlanEnterprise)
	require.True(t, ok)
	assert.True(t, ent.UnlimitedChannels())
	assert.True(t, ent.UnlimitedRate())

	free, ok := tbl.Plan(PlanFree)
	require.True(t, ok)
	assert.Equal(t, 1, free.MaxChannels)
	assert.Equal(t, 10, free.RateLimit)

	assert.Equal(t, "ops-team@example.com", tbl.OnCall.Default)
	assert.Equal(t, 300*time.Second, tbl.Dedup.Window())
}

func TestRoute_UnknownTypeUsesSafeDefault(t *testing.T) {
	tbl := Default()
	r := tbl.Route("no.such.event")
	assert.Equal(t, PriorityNormal, r.Priority)
	assert.Equal(t, []string{"email"}, r.Channels)
	assert.Empty(t, r.Actions)
	assert.Zero(t, r.CooldownMinutes)
	assert.False(t, tbl.Known("no.such.event"))
}

func TestChannelWeight(t *testing.T) {
	tbl := Default()
	assert.Equal(t, 1, tbl.ChannelWeight("email"))
	assert.Less(t, tbl.ChannelWeight("sms"), tbl.ChannelWeight("slack"))
	assert.Less(t, tbl.ChannelWeight("sms"), tbl.ChannelWeight("push"))
	assert.Equal(t, UnknownChannelWeight, tbl.ChannelWeight("carrier-pigeon"))
}

func TestSupportedEvents_Sorted(t *testing.T) {
	got := Default().SupportedEvents()
	assert.Equal(t, []string{
		"comment.added", "review.requested", "task.assigned", "task.completed", "task.urgent",
	}, got)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"route without channels", "routes:\n  x:\n    priority: low\n    channels: []\n"},
		{"route without priority", "routes:\n  x:\n    channels: [email]\n"},
		{"negative plan", "plans:\n  free:\n    rate_limit: -1\n"},
		{"negative window", "dedup:\n  window_seconds: -5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRouting)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	tbl, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.NotNil(t, tbl.Routes)
	assert.Equal(t, 300*time.Second, tbl.Dedup.Window())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routing.yaml")
	doc := "routes:\n  deploy.failed:\n    priority: high\n    channels: [slack]\n    actions: [page_oncall]\n    cooldown_minutes: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	tbl, err := Load(path)
	require.NoError(t, err)
	assert.True(t, tbl.Known("deploy.failed"))
	assert.Equal(t, 10*time.Minute, tbl.MaxCooldown())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	assert.True(t, def.Known("task.urgent"))
}
