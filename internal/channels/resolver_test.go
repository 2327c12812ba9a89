package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notify-pipeline/internal/routing"
)

func testTable(t *testing.T) *routing.Table {
	t.Helper()
	tbl, err := routing.Parse([]byte(`
routes:
  task.urgent:
    priority: high
    channels: [email, sms]
    actions: [page_oncall]
  deploy.failed:
    priority: high
    channels: [pagerduty, slack, email, sms, push]
  legacy.only:
    priority: low
    channels: [pagerduty, fax]
channels:
  email: {provider: ses, enabled: true, priority_weight: 1}
  sms: {provider: twilio, enabled: true, priority_weight: 2}
  slack: {provider: slack, enabled: true, priority_weight: 3}
  push: {provider: fcm, enabled: true, priority_weight: 4}
  pagerduty: {provider: pagerduty, enabled: false, priority_weight: 0}
plans:
  free: {max_channels: 1, rate_limit: 10}
  starter: {max_channels: 2, rate_limit: 50}
  business: {max_channels: 3, rate_limit: 200}
  enterprise: {}
`))
	require.NoError(t, err)
	return tbl
}

func TestResolveChannels(t *testing.T) {
	r := NewResolver(zap.NewNop(), testTable(t))

	tests := []struct {
		name      string
		eventType string
		tier      string
		want      []string
	}{
		{"urgent enterprise", "task.urgent", "enterprise", []string{"email", "sms"}},
		{"urgent free capped", "task.urgent", "free", []string{"email"}},
		{"disabled dropped", "deploy.failed", "enterprise", []string{"slack", "email", "sms", "push"}},
		{"starter cap keeps prefix", "deploy.failed", "starter", []string{"slack", "email"}},
		{"business cap keeps prefix", "deploy.failed", "business", []string{"slack", "email", "sms"}},
		{"unknown tier untouched", "deploy.failed", "gold", []string{"slack", "email", "sms", "push"}},
		{"unknown event type", "no.such", "enterprise", []string{"email"}},
		{"fail open when all disabled", "legacy.only", "enterprise", []string{"pagerduty", "fax"}},
		{"fail open then capped", "legacy.only", "free", []string{"pagerduty"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ResolveChannels(tt.eventType, tt.tier))
		})
	}
}

func TestResolveChannels_CapIsPrefixOfFilteredList(t *testing.T) {
	tbl := testTable(t)
	r := NewResolver(zap.NewNop(), tbl)
	full := r.ResolveChannels("deploy.failed", "enterprise")

	for _, tier := range []string{"free", "starter", "business"} {
		p, _ := tbl.Plan(tier)
		got := r.ResolveChannels("deploy.failed", tier)
		assert.LessOrEqual(t, len(got), p.MaxChannels, tier)
		assert.Equal(t, full[:len(got)], got, tier)
	}
}

func TestResolveChannels_ReturnsCopy(t *testing.T) {
	tbl := testTable(t)
	r := NewResolver(zap.NewNop(), tbl)

	got := r.ResolveChannels("legacy.only", "enterprise")
	got[0] = "mutated"
	assert.Equal(t, []string{"pagerduty", "fax"}, tbl.Route("legacy.only").Channels)

	capped := r.ResolveChannels("deploy.failed", "free")
	_ = append(capped, "extra")
	assert.Equal(t, []string{"slack", "email", "sms", "push"}, r.ResolveChannels("deploy.failed", "enterprise"))
}

func TestResolvePriority(t *testing.T) {
	r := NewResolver(zap.NewNop(), testTable(t))
	assert.Equal(t, "high", r.ResolvePriority("task.urgent"))
	assert.Equal(t, routing.PriorityNormal, r.ResolvePriority("no.such"))
}
