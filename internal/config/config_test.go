package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "us-east-2", cfg.AWSRegion)
	assert.Equal(t, "@every 1m", cfg.SweepSchedule)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Zero(t, cfg.DedupWindow)
	assert.False(t, cfg.KafkaEnabled())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("DEDUP_WINDOW", "90s")
	t.Setenv("DEDUP_FIELDS", "event_type,assignee")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("KAFKA_TOPIC_ESCALATIONS", "pages")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.DedupWindow)
	assert.Equal(t, []string{"event_type", "assignee"}, cfg.DedupFields)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "pages", cfg.Topics().Escalations)
	assert.Equal(t, "notifications", cfg.Topics().Notifications)

	sc := cfg.Store()
	assert.Equal(t, "sqlite", sc.Backend)
	assert.Equal(t, "/tmp/x.db", sc.SQLitePath)
}

func TestParse_BadDuration(t *testing.T) {
	t.Setenv("DEDUP_WINDOW", "soon")
	_, err := Parse()
	assert.Error(t, err)
}
