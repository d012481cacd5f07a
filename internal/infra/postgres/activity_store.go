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

// ActivityStore keeps the activity catalog as JSONB documents.
type ActivityStore struct {
	pool *pgxpool.Pool
}

func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

func (s *ActivityStore) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM activities ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var a domain.Activity
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *ActivityStore) GetActivity(ctx context.Context, id string) (domain.Activity, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM activities WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if err != nil {
		return domain.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	var a domain.Activity
	if err := json.Unmarshal(raw, &a); err != nil {
		return domain.Activity{}, fmt.Errorf("decode activity: %w", err)
	}
	return a, nil
}

func (s *ActivityStore) CreateActivity(ctx context.Context, a domain.Activity) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO activities (id, data, created_by) VALUES ($1, $2, $3)`, a.ID, raw, a.CreatedBy)
	if isUniqueViolation(err) {
		return domain.ErrActivityExists
	}
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// SeedActivities inserts the given activities unless their ID is already taken.
func (s *ActivityStore) SeedActivities(ctx context.Context, activities []domain.Activity) error {
	for _, a := range activities {
		raw, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode activity: %w", err)
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO activities (id, data, created_by) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			a.ID, raw, a.CreatedBy); err != nil {
			return fmt.Errorf("seed activity %s: %w", a.ID, err)
		}
	}
	return nil
}
