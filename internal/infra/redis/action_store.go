package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"sparklab/internal/domain"
)

// ActionStore keeps the newest actions per activity/user in a capped list:
// LPUSH activity:{activityID}:actions:{userID} {record}; LTRIM 0 cap-1
type ActionStore struct {
	client *redis.Client
	cap    int64
}

func NewActionStore(client *redis.Client, cap int) *ActionStore {
	return &ActionStore{client: client, cap: int64(cap)}
}

func (s *ActionStore) AppendAction(ctx context.Context, record domain.ActionRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	key := s.key(record.ActivityID, record.UserID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	if s.cap > 0 {
		pipe.LTrim(ctx, key, 0, s.cap-1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// RecentActions returns up to n actions, newest first.
func (s *ActionStore) RecentActions(ctx context.Context, activityID, userID string, n int64) ([]domain.ActionRecord, error) {
	raws, err := s.client.LRange(ctx, s.key(activityID, userID), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.ActionRecord, 0, len(raws))
	for _, raw := range raws {
		var rec domain.ActionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *ActionStore) key(activityID, userID string) string {
	return "activity:" + activityID + ":actions:" + userID
}
