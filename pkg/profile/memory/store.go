// Package memory provides an in-memory profile store for tests and examples.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edustack/tutorguard-go/pkg/profile"
)

// Store implements profile.Store with a process-local map.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*profile.Profile
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{profiles: make(map[string]*profile.Profile)}
}

// GetProfile retrieves a profile by user ID, or nil if none is stored.
func (s *Store) GetProfile(_ context.Context, userID string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

// SaveProfile creates or updates a profile.
func (s *Store) SaveProfile(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *p
	clone.SchemaVersion = profile.SchemaVersion
	now := time.Now()
	if existing, ok := s.profiles[p.UserID]; ok {
		clone.CreatedAt = existing.CreatedAt
	} else {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	s.profiles[p.UserID] = &clone
	return nil
}

// DeleteProfile removes a profile by user ID.
func (s *Store) DeleteProfile(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[userID]; !ok {
		return fmt.Errorf("profile not found")
	}
	delete(s.profiles, userID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
