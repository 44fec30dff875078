package postgres

import (
	"context"
	"errors"
	"fmt"

	"quiz-gamification-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressStore persists progress records keyed by (user_id, quiz_id).
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

func (s *ProgressStore) GetProgress(ctx context.Context, userID, quizID string) (domain.ProgressRecord, error) {
	var (
		record domain.ProgressRecord
		status string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, quiz_id, status, current_question_index, last_activity_at
		 FROM quiz_progress WHERE user_id=$1 AND quiz_id=$2`, userID, quizID,
	).Scan(&record.UserID, &record.QuizID, &status, &record.CurrentQuestionIndex, &record.LastActivityAt)
	record.Status = domain.ProgressStatus(status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("load progress: %w", err)
	}
	return record, nil
}

func (s *ProgressStore) UpsertProgress(ctx context.Context, record domain.ProgressRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_progress (user_id, quiz_id, status, current_question_index, last_activity_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, quiz_id) DO UPDATE SET
			status=EXCLUDED.status,
			current_question_index=EXCLUDED.current_question_index,
			last_activity_at=EXCLUDED.last_activity_at`,
		record.UserID, record.QuizID, string(record.Status), record.CurrentQuestionIndex, record.LastActivityAt)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) ListProgress(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, quiz_id, status, current_question_index, last_activity_at
		 FROM quiz_progress WHERE user_id=$1 ORDER BY last_activity_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var records []domain.ProgressRecord
	for rows.Next() {
		var (
			r      domain.ProgressRecord
			status string
		)
		if err := rows.Scan(&r.UserID, &r.QuizID, &status, &r.CurrentQuestionIndex, &r.LastActivityAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		r.Status = domain.ProgressStatus(status)
		records = append(records, r)
	}
	return records, rows.Err()
}
