package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sparklab/internal/domain"
)

// UserStore keeps accounts in memory.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.UserID]; ok {
		return domain.ErrUserExists
	}
	for _, u := range s.users {
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return domain.ErrUserExists
		}
	}
	s.users[user.UserID] = user
	return nil
}

func (s *UserStore) UserByUserID(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

// ListUsersByRole returns matching users ordered by user ID.
func (s *UserStore) ListUsersByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	s.mu.RLock()
	out := []domain.User{}
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
