package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"sparklab/internal/domain"
)

// ProgressStore upserts one JSONB row per activity/user pair.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) LoadProgress(ctx context.Context, activityID, userID string) (domain.ActivitySession, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM activity_progress WHERE activity_id=$1 AND user_id=$2`,
		activityID, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ActivitySession{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.ActivitySession{}, fmt.Errorf("load progress: %w", err)
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
	_, err = s.pool.Exec(ctx, `
		INSERT INTO activity_progress (activity_id, user_id, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (activity_id, user_id) DO UPDATE SET data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
		session.ActivityID, session.UserID, raw, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}
