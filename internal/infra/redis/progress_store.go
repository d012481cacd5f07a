package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"sparklab/internal/domain"
)

// ProgressStore keeps activity sessions as JSON documents:
// SET activity:{activityID}:progress:{userID} {session} EX ttl
// A zero ttl keeps sessions forever.
type ProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProgressStore(client *redis.Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{client: client, ttl: ttl}
}

func (s *ProgressStore) LoadProgress(ctx context.Context, activityID, userID string) (domain.ActivitySession, error) {
	raw, err := s.client.Get(ctx, s.key(activityID, userID)).Bytes()
	if isMiss(err) {
		return domain.ActivitySession{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.ActivitySession{}, err
	}
	var session domain.ActivitySession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.ActivitySession{}, fmt.Errorf("decode progress: %w", err)
	}
	return session, nil
}

func (s *ProgressStore) SaveProgress(ctx context.Context, session domain.ActivitySession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return s.client.Set(ctx, s.key(session.ActivityID, session.UserID), raw, s.ttl).Err()
}

func (s *ProgressStore) key(activityID, userID string) string {
	return "activity:" + activityID + ":progress:" + userID
}
