package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"sparklab/internal/domain"
)

// ActionStore appends telemetry events to activity_actions.
type ActionStore struct {
	pool *pgxpool.Pool
}

func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

func (s *ActionStore) AppendAction(ctx context.Context, r domain.ActionRecord) error {
	device, err := json.Marshal(r.DeviceInfo)
	if err != nil {
		return fmt.Errorf("encode device info: %w", err)
	}
	var data []byte
	if len(r.Data) > 0 {
		data = r.Data
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO activity_actions (id, activity_id, user_id, action, section, data, device_info, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.ActivityID, r.UserID, r.Action, r.Section, data, device, r.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}
