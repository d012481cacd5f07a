package memory

import (
	"context"
	"sync"

	"sparklab/internal/domain"
)

// ActivityStore is the activity catalog kept in memory, in insertion order.
type ActivityStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.Activity
}

// NewActivityStore seeds the catalog with the given activities.
func NewActivityStore(seed ...domain.Activity) *ActivityStore {
	s := &ActivityStore{byID: make(map[string]domain.Activity)}
	for _, a := range seed {
		if _, ok := s.byID[a.ID]; ok {
			continue
		}
		s.order = append(s.order, a.ID)
		s.byID[a.ID] = a
	}
	return s
}

func (s *ActivityStore) ListActivities(_ context.Context) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Activity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *ActivityStore) GetActivity(_ context.Context, id string) (domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return a, nil
}

func (s *ActivityStore) CreateActivity(_ context.Context, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[activity.ID]; ok {
		return domain.ErrActivityExists
	}
	activity.Sections = append([]domain.Section(nil), activity.Sections...)
	s.order = append(s.order, activity.ID)
	s.byID[activity.ID] = activity
	return nil
}
