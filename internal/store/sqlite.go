package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"notify-pipeline/internal/models"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// SQLiteStore persists records as JSON payloads in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, logger *zap.Logger, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	st := &SQLiteStore{db: db, logger: logger.Named("store")}
	if err := st.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	st.logger.Info("Using SQLite store", zap.String("path", path))
	return st, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) SaveEvent(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events(event_id, event_type, assignee, received_at, payload) VALUES(?,?,?,?,?)
		 ON CONFLICT(event_id) DO UPDATE SET payload=excluded.payload`,
		ev.EventID, ev.EventType, ev.Assignee, ev.ReceivedAt.UnixNano(), string(payload),
	)
	return err
}

func (s *SQLiteStore) ListEvents(ctx context.Context, limit int) ([]models.Event, error) {
	return queryPayloads[models.Event](ctx, s.db,
		`SELECT payload FROM (SELECT payload, received_at FROM events ORDER BY received_at DESC LIMIT ?) ORDER BY received_at ASC`,
		listLimit(limit))
}

func (s *SQLiteStore) SaveNotification(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notifications(notification_id, recipient, created_at, payload) VALUES(?,?,?,?)`,
		n.NotificationID, n.Recipient, n.CreatedAt.UnixNano(), string(payload),
	)
	return err
}

func (s *SQLiteStore) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	return queryPayloads[models.Notification](ctx, s.db,
		`SELECT payload FROM (SELECT payload, created_at FROM notifications ORDER BY created_at DESC LIMIT ?) ORDER BY created_at ASC`,
		listLimit(limit))
}

func (s *SQLiteStore) NotificationsFor(ctx context.Context, recipient string) ([]models.Notification, error) {
	return queryPayloads[models.Notification](ctx, s.db,
		`SELECT payload FROM notifications WHERE recipient = ? ORDER BY created_at ASC`, recipient)
}

func (s *SQLiteStore) SaveEscalation(ctx context.Context, e models.EscalationLogEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode escalation: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO escalations(event_id, escalated_at, payload) VALUES(?,?,?)`,
		e.EventID, e.EscalatedAt.UnixNano(), string(payload),
	)
	return err
}

func (s *SQLiteStore) ListEscalations(ctx context.Context, limit int) ([]models.EscalationLogEntry, error) {
	return queryPayloads[models.EscalationLogEntry](ctx, s.db,
		`SELECT payload FROM (SELECT payload, id FROM escalations ORDER BY id DESC LIMIT ?) ORDER BY id ASC`,
		listLimit(limit))
}

func queryPayloads[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
