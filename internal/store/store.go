// Package store persists ingested events, delivered notifications and
// escalation log entries.
//
// The pipeline only writes; list methods back the HTTP read endpoints.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"notify-pipeline/internal/models"
)

// Backends accepted by Open.
const (
	BackendMemory = "memory"
	BackendDynamo = "dynamo"
	BackendSQLite = "sqlite"
)

// DefaultListLimit caps list calls that pass a non-positive limit.
const DefaultListLimit = 50

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("unknown store backend")

// Store is the persistence boundary of the pipeline.
type Store interface {
	SaveEvent(ctx context.Context, ev models.Event) error
	ListEvents(ctx context.Context, limit int) ([]models.Event, error)

	SaveNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	NotificationsFor(ctx context.Context, recipient string) ([]models.Notification, error)

	SaveEscalation(ctx context.Context, e models.EscalationLogEntry) error
	ListEscalations(ctx context.Context, limit int) ([]models.EscalationLogEntry, error)

	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend        string
	DynamoTable    string
	DynamoEndpoint string
	AWSRegion      string
	SQLitePath     string
}

// Open builds the configured backend.
func Open(ctx context.Context, logger *zap.Logger, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendDynamo:
		s, err := NewDynamoStore(ctx, logger, DynamoConfig{
			Table:    cfg.DynamoTable,
			Endpoint: cfg.DynamoEndpoint,
			Region:   cfg.AWSRegion,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLite(ctx, logger, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
