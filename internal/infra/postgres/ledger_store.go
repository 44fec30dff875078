package postgres

import (
	"context"
	"fmt"

	"quiz-gamification-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// LedgerStore appends quiz results. Rows are never updated or deleted; the
// table is the authoritative point history.
type LedgerStore struct {
	pool *pgxpool.Pool
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

func (s *LedgerStore) InsertResult(ctx context.Context, result *domain.Result) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO results (user_id, quiz_id, score, correct_count, total_questions, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		result.UserID, result.QuizID, result.Score, result.CorrectCount, result.TotalQuestions, result.CompletedAt,
	).Scan(&result.ID)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *LedgerStore) SumScores(ctx context.Context, userID string) (int, error) {
	var sum int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(score), 0) FROM results WHERE user_id=$1`, userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum scores: %w", err)
	}
	return sum, nil
}

func (s *LedgerStore) ListResults(ctx context.Context, userID string, limit int) ([]domain.Result, error) {
	query := `SELECT id, user_id, quiz_id, score, correct_count, total_questions, completed_at
		 FROM results WHERE user_id=$1 ORDER BY completed_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		var r domain.Result
		if err := rows.Scan(&r.ID, &r.UserID, &r.QuizID, &r.Score, &r.CorrectCount, &r.TotalQuestions, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
