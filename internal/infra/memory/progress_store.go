package memory

import (
	"context"
	"sync"

	"sparklab/internal/domain"
)

// ProgressStore keeps activity sessions in process memory.
type ProgressStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ActivitySession
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{sessions: make(map[string]domain.ActivitySession)}
}

func progressKey(activityID, userID string) string {
	return activityID + "/" + userID
}

func (s *ProgressStore) LoadProgress(_ context.Context, activityID, userID string) (domain.ActivitySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[progressKey(activityID, userID)]
	if !ok {
		return domain.ActivitySession{}, domain.ErrProgressNotFound
	}
	return cloneSession(session), nil
}

func (s *ProgressStore) SaveProgress(_ context.Context, session domain.ActivitySession) error {
	s.mu.Lock()
	s.sessions[progressKey(session.ActivityID, session.UserID)] = cloneSession(session)
	s.mu.Unlock()
	return nil
}

// cloneSession copies the map and slice so callers cannot mutate stored state.
func cloneSession(in domain.ActivitySession) domain.ActivitySession {
	out := in
	out.SectionCompletion = make(map[string]domain.Completion, len(in.SectionCompletion))
	for k, v := range in.SectionCompletion {
		out.SectionCompletion[k] = v
	}
	out.Answers = make([]domain.AnswerRecord, len(in.Answers))
	for i, a := range in.Answers {
		a.Data = append([]byte(nil), a.Data...)
		out.Answers[i] = a
	}
	return out
}
