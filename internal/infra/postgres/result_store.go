package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"
	"sparklab/internal/domain"
)

// ResultStore persists quiz attempts in quiz_results.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, r domain.QuizResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_results (id, quiz_name, taker, user_id, username, email, total_marks, question_count, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.QuizName, r.User, r.UserID, r.Username, r.Email, r.TotalMarks, r.QuestionCount, r.Date)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}

// ListResults does a case-insensitive substring search over quiz name, username, user ID and email.
func (s *ResultStore) ListResults(ctx context.Context, searchText string) ([]domain.QuizResult, error) {
	query := `SELECT id, quiz_name, taker, user_id, username, email, total_marks, question_count, date FROM quiz_results`
	args := []interface{}{}
	if searchText = strings.TrimSpace(searchText); searchText != "" {
		query += ` WHERE quiz_name ILIKE $1 OR username ILIKE $1 OR user_id ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+escapeLike(searchText)+"%")
	}
	query += ` ORDER BY date DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	defer rows.Close()

	out := []domain.QuizResult{}
	for rows.Next() {
		var r domain.QuizResult
		if err := rows.Scan(&r.ID, &r.QuizName, &r.User, &r.UserID, &r.Username, &r.Email, &r.TotalMarks, &r.QuestionCount, &r.Date); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
