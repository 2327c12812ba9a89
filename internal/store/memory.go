package store

import (
	"context"
	"sync"

	"notify-pipeline/internal/models"
)

// MemoryStore keeps everything in process memory. Lists return the most
// recent records last, matching insertion order.
type MemoryStore struct {
	mu            sync.RWMutex
	events        []models.Event
	notifications []models.Notification
	escalations   []models.EscalationLogEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveEvent(_ context.Context, ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.events, listLimit(limit)), nil
}

func (s *MemoryStore) SaveNotification(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.Channels = append([]string(nil), n.Channels...)
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.notifications, listLimit(limit)), nil
}

func (s *MemoryStore) NotificationsFor(_ context.Context, recipient string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveEscalation(_ context.Context, e models.EscalationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Targets = append([]string(nil), e.Targets...)
	s.escalations = append(s.escalations, e)
	return nil
}

func (s *MemoryStore) ListEscalations(_ context.Context, limit int) ([]models.EscalationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.escalations, listLimit(limit)), nil
}

func (s *MemoryStore) Close() error { return nil }

func tail[T any](in []T, n int) []T {
	if len(in) > n {
		in = in[len(in)-n:]
	}
	return append([]T(nil), in...)
}
