package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"sparklab/internal/domain"
)

// ResultStore keeps quiz results in memory.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.QuizResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
	return nil
}

// ListResults matches searchText case-insensitively against quiz name, username, user ID and email.
func (s *ResultStore) ListResults(_ context.Context, searchText string) ([]domain.QuizResult, error) {
	needle := strings.ToLower(strings.TrimSpace(searchText))

	s.mu.RLock()
	out := make([]domain.QuizResult, 0, len(s.results))
	for _, r := range s.results {
		if needle == "" || matchesResult(r, needle) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func matchesResult(r domain.QuizResult, needle string) bool {
	for _, field := range []string{r.QuizName, r.Username, r.UserID, r.Email} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
