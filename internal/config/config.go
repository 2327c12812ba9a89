// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"notify-pipeline/internal/queue"
	"notify-pipeline/internal/store"
)

// Config holds every setting the binaries read. Each binary uses a subset.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	StoreBackend   string `env:"STORE_BACKEND" envDefault:"memory"`
	DynamoTable    string `env:"DYNAMO_TABLE" envDefault:"notifications"`
	DynamoEndpoint string `env:"DYNAMO_ENDPOINT"`
	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-2"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"notify.db"`

	KafkaBrokers            string `env:"KAFKA_BROKERS"`
	KafkaTopicNotifications string `env:"KAFKA_TOPIC_NOTIFICATIONS" envDefault:"notifications"`
	KafkaTopicEscalations   string `env:"KAFKA_TOPIC_ESCALATIONS" envDefault:"escalations"`
	KafkaGroupID            string `env:"KAFKA_GROUP_ID" envDefault:"notify-workers"`

	RoutingFile string        `env:"ROUTING_FILE"`
	DedupWindow time.Duration `env:"DEDUP_WINDOW"`
	DedupFields []string      `env:"DEDUP_FIELDS" envSeparator:","`
	// SweepSchedule is a cron spec; "off" disables the sweep.
	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"@every 1m"`

	SESFromEmail string `env:"SES_FROM_EMAIL"`
	SlackToken   string `env:"SLACK_TOKEN"`
	SlackChannel string `env:"SLACK_CHANNEL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	WorkerID  string `env:"WORKER_ID" envDefault:"worker-1"`

	// Retry settings are read for operators but delivery is never retried.
	MaxRetries         int `env:"MAX_RETRIES" envDefault:"3"`
	DeadLetterTTLHours int `env:"DEAD_LETTER_TTL_HOURS" envDefault:"72"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment without touching .env.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Store returns the store settings.
func (c Config) Store() store.Config {
	return store.Config{
		Backend:        c.StoreBackend,
		DynamoTable:    c.DynamoTable,
		DynamoEndpoint: c.DynamoEndpoint,
		AWSRegion:      c.AWSRegion,
		SQLitePath:     c.SQLitePath,
	}
}

// Topics returns the Kafka topic names.
func (c Config) Topics() queue.Topics {
	return queue.Topics{
		Notifications: c.KafkaTopicNotifications,
		Escalations:   c.KafkaTopicEscalations,
	}
}

// KafkaEnabled reports whether any broker is configured.
func (c Config) KafkaEnabled() bool {
	return len(queue.SplitCSV(c.KafkaBrokers)) > 0
}
