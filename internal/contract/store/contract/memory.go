// Package contract provides contract store implementations.
package contract

import (
	"context"
	"sort"
	"sync"

	"havenlink/internal/contract/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
)

// InMemory keeps contracts in a map keyed by ID.
type InMemory struct {
	mu        sync.RWMutex
	contracts map[id.ContractID]*models.Contract
}

func NewInMemory() *InMemory {
	return &InMemory{contracts: make(map[id.ContractID]*models.Contract)}
}

func (s *InMemory) Create(_ context.Context, c *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.contracts[c.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, contractID id.ContractID) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[contractID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ListByParticipant returns contracts naming the identity as either
// party, newest first.
func (s *InMemory) ListByParticipant(_ context.Context, identityID id.IdentityID) ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Contract
	for _, c := range s.contracts {
		if c.SeekerID == identityID || c.HostID == identityID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListAwaitingRatification returns fully signed, still-proposed contracts,
// oldest first so administrators work the backlog in order.
func (s *InMemory) ListAwaitingRatification(_ context.Context) ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Contract
	for _, c := range s.contracts {
		if c.Status == models.StatusProposed && c.BothSigned() {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BothSignedAt().Before(out[j].BothSignedAt())
	})
	return out, nil
}

// Execute atomically validates then mutates a contract under the store
// lock, so concurrent signatures and ratifications serialize.
func (s *InMemory) Execute(_ context.Context, contractID id.ContractID,
	validate func(*models.Contract) error,
	mutate func(*models.Contract)) (*models.Contract, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[contractID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)
	cp := *c
	return &cp, nil
}
