// Package identity provides identity store implementations. Services
// declare the interface they need; both implementations satisfy it.
package identity

import (
	"context"
	"strings"
	"sync"

	"havenlink/internal/identity/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
)

// InMemory keeps identities in a map. It intentionally favors clarity
// over performance; copies go in and out so callers never share memory
// with the store.
type InMemory struct {
	mu         sync.RWMutex
	identities map[id.IdentityID]*models.Identity
	byEmail    map[string]id.IdentityID
}

func NewInMemory() *InMemory {
	return &InMemory{
		identities: make(map[id.IdentityID]*models.Identity),
		byEmail:    make(map[string]id.IdentityID),
	}
}

// Create stores a new identity, enforcing email uniqueness.
func (s *InMemory) Create(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(identity.Email)
	if _, taken := s.byEmail[key]; taken {
		return sentinel.ErrConflict
	}
	cp := *identity
	s.identities[identity.ID] = &cp
	s.byEmail[key] = identity.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, identityID id.IdentityID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identityID, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.identities[identityID]
	return &cp, nil
}

// ListByRole returns all identities holding the role, any status.
func (s *InMemory) ListByRole(_ context.Context, role id.Role) ([]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Identity
	for _, identity := range s.identities {
		if identity.Role == role {
			cp := *identity
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListByRoleAndStatus returns identities holding the role in the given
// review status. Used by the discovery view (approved) and the
// administrator pending-review queue (pending).
func (s *InMemory) ListByRoleAndStatus(_ context.Context, role id.Role, status models.ProfileStatus) ([]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Identity
	for _, identity := range s.identities {
		if identity.Role == role && identity.ProfileStatus == status {
			cp := *identity
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Execute atomically validates then mutates an identity while holding the
// store lock, so no concurrent reviewer can interleave between the check
// and the write.
func (s *InMemory) Execute(_ context.Context, identityID id.IdentityID,
	validate func(*models.Identity) error,
	mutate func(*models.Identity)) (*models.Identity, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(identity); err != nil {
		return nil, err
	}
	mutate(identity)
	cp := *identity
	return &cp, nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
