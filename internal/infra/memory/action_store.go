package memory

import (
	"context"
	"sync"

	"sparklab/internal/domain"
)

// ActionStore keeps the most recent actions per activity/user pair.
type ActionStore struct {
	mu      sync.Mutex
	limit   int
	actions map[string][]domain.ActionRecord
}

// NewActionStore keeps at most limit actions per pair; limit <= 0 means unbounded.
func NewActionStore(limit int) *ActionStore {
	return &ActionStore{limit: limit, actions: make(map[string][]domain.ActionRecord)}
}

func (s *ActionStore) AppendAction(_ context.Context, record domain.ActionRecord) error {
	key := progressKey(record.ActivityID, record.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.actions[key], record)
	if s.limit > 0 && len(list) > s.limit {
		list = append([]domain.ActionRecord(nil), list[len(list)-s.limit:]...)
	}
	s.actions[key] = list
	return nil
}

// Actions returns the stored actions for a pair, oldest first.
func (s *ActionStore) Actions(activityID, userID string) []domain.ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ActionRecord(nil), s.actions[progressKey(activityID, userID)]...)
}
