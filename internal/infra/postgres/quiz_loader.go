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

// QuizLoader loads quiz JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, name string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// SeedQuizzes inserts quizzes that are not stored yet; existing rows are left alone.
func (l *QuizLoader) SeedQuizzes(ctx context.Context, quizzes map[string]domain.Quiz) error {
	batch := &pgx.Batch{}
	for name, quiz := range quizzes {
		raw, err := json.Marshal(quiz)
		if err != nil {
			return fmt.Errorf("marshal quiz %s: %w", name, err)
		}
		batch.Queue(`INSERT INTO quizzes (name, data) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, name, raw)
	}
	res := l.pool.SendBatch(ctx, batch)
	defer res.Close()
	for range quizzes {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("seed quizzes: %w", err)
		}
	}
	return nil
}
