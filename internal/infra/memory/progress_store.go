package memory

import (
	"context"
	"sync"

	"quiz-gamification-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore, keyed by
// (user, quiz).
type ProgressStore struct {
	mu      sync.RWMutex
	records map[progressKey]domain.ProgressRecord
}

type progressKey struct {
	userID string
	quizID string
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[progressKey]domain.ProgressRecord)}
}

func (s *ProgressStore) GetProgress(_ context.Context, userID, quizID string) (domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[progressKey{userID, quizID}]
	if !ok {
		return domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	return record, nil
}

func (s *ProgressStore) UpsertProgress(_ context.Context, record domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[progressKey{record.UserID, record.QuizID}] = record
	return nil
}

func (s *ProgressStore) ListProgress(_ context.Context, userID string) ([]domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProgressRecord, 0)
	for key, record := range s.records {
		if key.userID == userID {
			out = append(out, record)
		}
	}
	return out, nil
}
