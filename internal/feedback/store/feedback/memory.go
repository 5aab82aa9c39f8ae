package feedback

import (
	"context"
	"sort"
	"sync"

	"havenlink/internal/feedback/models"
	id "havenlink/pkg/domain"
	"havenlink/pkg/platform/sentinel"
)

// InMemory is a process-local feedback store used in tests and when no
// database is configured.
type InMemory struct {
	mu    sync.RWMutex
	items map[id.FeedbackID]*models.Feedback
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[id.FeedbackID]*models.Feedback)}
}

func (s *InMemory) Create(_ context.Context, f *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[f.ID]; ok {
		return sentinel.ErrConflict
	}
	s.items[f.ID] = clone(f)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, feedbackID id.FeedbackID) (*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.items[feedbackID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(f), nil
}

// ListByAuthor returns the author's items, newest first.
func (s *InMemory) ListByAuthor(_ context.Context, authorID id.IdentityID) ([]*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Feedback
	for _, f := range s.items {
		if f.AuthorID == authorID {
			out = append(out, clone(f))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListAll returns every item, newest first.
func (s *InMemory) ListAll(_ context.Context) ([]*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Feedback, 0, len(s.items))
	for _, f := range s.items {
		out = append(out, clone(f))
	}
	sortNewestFirst(out)
	return out, nil
}

// Execute runs validate then mutate on the item under the store lock.
func (s *InMemory) Execute(_ context.Context, feedbackID id.FeedbackID,
	validate func(*models.Feedback) error,
	mutate func(*models.Feedback)) (*models.Feedback, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.items[feedbackID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(f); err != nil {
		return nil, err
	}
	mutate(f)
	return clone(f), nil
}

func clone(f *models.Feedback) *models.Feedback {
	cp := *f
	if f.Response != nil {
		resp := *f.Response
		cp.Response = &resp
	}
	return &cp
}

func sortNewestFirst(items []*models.Feedback) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
