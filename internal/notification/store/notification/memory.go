// Package notification provides notification outbox store implementations.
package notification

import (
	"context"
	"sort"
	"sync"

	"havenlink/internal/notification/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
)

// InMemory keeps notifications in a map keyed by ID.
type InMemory struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[id.NotificationID]*models.Notification)}
}

func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

// ListByRecipient returns the recipient's notices, newest first.
func (s *InMemory) ListByRecipient(_ context.Context, recipientID id.IdentityID) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.RecipientID == recipientID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CountUnread returns the recipient's unread badge count.
func (s *InMemory) CountUnread(_ context.Context, recipientID id.IdentityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

// Execute atomically validates then mutates a notification under the
// store lock.
func (s *InMemory) Execute(_ context.Context, notificationID id.NotificationID,
	validate func(*models.Notification) error,
	mutate func(*models.Notification)) (*models.Notification, error) {

	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(n); err != nil {
		return nil, err
	}
	mutate(n)
	cp := *n
	return &cp, nil
}
