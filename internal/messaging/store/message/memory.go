package message

import (
	"context"
	"sort"
	"sync"

	"havenlink/internal/messaging/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
)

// InMemory is a process-local message store used in tests and when no
// database is configured.
type InMemory struct {
	mu       sync.RWMutex
	messages map[id.MessageID]*models.Message
}

func NewInMemory() *InMemory {
	return &InMemory{messages: make(map[id.MessageID]*models.Message)}
}

func (s *InMemory) Create(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[m.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, messageID id.MessageID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[messageID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

// ListConversation returns every message exchanged between the pair in
// either direction, oldest first.
func (s *InMemory) ListConversation(_ context.Context, a, b id.IdentityID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Message
	for _, m := range s.messages {
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListByParticipant returns every message the identity sent or received,
// oldest first.
func (s *InMemory) ListByParticipant(_ context.Context, identityID id.IdentityID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Message
	for _, m := range s.messages {
		if m.SenderID == identityID || m.RecipientID == identityID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Execute runs validate then mutate on the message under the store lock.
func (s *InMemory) Execute(_ context.Context, messageID id.MessageID,
	validate func(*models.Message) error,
	mutate func(*models.Message)) (*models.Message, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	mutate(m)
	cp := *m
	return &cp, nil
}
