// Package preferences is the in-process plan and preference store consulted
// by the pipeline.
package preferences

import (
	"maps"
	"sync"

	"notify-pipeline/internal/routing"
)

// Store maps recipients to their plan tier and stated preferences.
// Unknown recipients resolve to the enterprise tier.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]routing.RecipientProfile
}

// New creates a Store seeded with the table's recipients.
func New(table *routing.Table) *Store {
	s := &Store{profiles: make(map[string]routing.RecipientProfile)}
	if table != nil {
		for id, p := range table.Recipients {
			s.Register(id, p)
		}
	}
	return s
}

// Register replaces the profile for userID.
func (s *Store) Register(userID string, p routing.RecipientProfile) {
	p.Preferences = maps.Clone(p.Preferences)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = p
}

// Plan returns the plan tier for userID.
func (s *Store) Plan(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok && p.Plan != "" {
		return p.Plan
	}
	return routing.PlanEnterprise
}

// Profile returns the stored profile for userID.
func (s *Store) Profile(userID string) (routing.RecipientProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if ok {
		p.Preferences = maps.Clone(p.Preferences)
	}
	return p, ok
}
