// Package profile provides profile store implementations for both
// profile variants.
package profile

import (
	"context"
	"sync"

	"havenlink/internal/profile/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
)

// InMemory keeps seeker and host profiles keyed by identity.
type InMemory struct {
	mu      sync.RWMutex
	seekers map[id.IdentityID]*models.SeekerProfile
	hosts   map[id.IdentityID]*models.HostProfile
}

func NewInMemory() *InMemory {
	return &InMemory{
		seekers: make(map[id.IdentityID]*models.SeekerProfile),
		hosts:   make(map[id.IdentityID]*models.HostProfile),
	}
}

// CreateSeeker stores a new seeker profile; at most one per identity.
func (s *InMemory) CreateSeeker(_ context.Context, p *models.SeekerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.seekers[p.IdentityID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	s.seekers[p.IdentityID] = &cp
	return nil
}

// CreateHost stores a new host profile; at most one per identity.
func (s *InMemory) CreateHost(_ context.Context, p *models.HostProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hosts[p.IdentityID]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	cp.Amenities = append([]string(nil), p.Amenities...)
	cp.Languages = append([]string(nil), p.Languages...)
	s.hosts[p.IdentityID] = &cp
	return nil
}

func (s *InMemory) FindSeeker(_ context.Context, identityID id.IdentityID) (*models.SeekerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.seekers[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) FindHost(_ context.Context, identityID id.IdentityID) (*models.HostProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.hosts[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	cp.Amenities = append([]string(nil), p.Amenities...)
	cp.Languages = append([]string(nil), p.Languages...)
	return &cp, nil
}

// UpdateSeeker replaces an existing seeker profile.
func (s *InMemory) UpdateSeeker(_ context.Context, p *models.SeekerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.seekers[p.IdentityID]; !exists {
		return sentinel.ErrNotFound
	}
	cp := *p
	s.seekers[p.IdentityID] = &cp
	return nil
}

// UpdateHost replaces an existing host profile.
func (s *InMemory) UpdateHost(_ context.Context, p *models.HostProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hosts[p.IdentityID]; !exists {
		return sentinel.ErrNotFound
	}
	cp := *p
	cp.Amenities = append([]string(nil), p.Amenities...)
	cp.Languages = append([]string(nil), p.Languages...)
	s.hosts[p.IdentityID] = &cp
	return nil
}

// FindHostsByIdentityIDs returns host profiles for the given identities,
// keyed by identity. Missing profiles are simply absent from the map.
func (s *InMemory) FindHostsByIdentityIDs(_ context.Context, ids []id.IdentityID) (map[id.IdentityID]*models.HostProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.IdentityID]*models.HostProfile, len(ids))
	for _, identityID := range ids {
		if p, ok := s.hosts[identityID]; ok {
			cp := *p
			cp.Amenities = append([]string(nil), p.Amenities...)
			cp.Languages = append([]string(nil), p.Languages...)
			out[identityID] = &cp
		}
	}
	return out, nil
}

// FindSeekersByIdentityIDs returns seeker profiles for the given
// identities, keyed by identity.
func (s *InMemory) FindSeekersByIdentityIDs(_ context.Context, ids []id.IdentityID) (map[id.IdentityID]*models.SeekerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.IdentityID]*models.SeekerProfile, len(ids))
	for _, identityID := range ids {
		if p, ok := s.seekers[identityID]; ok {
			cp := *p
			out[identityID] = &cp
		}
	}
	return out, nil
}
