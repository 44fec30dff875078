package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quiz-gamification-service/internal/domain"
)

// LedgerStore is an in-memory, append-only implementation of app.Ledger.
type LedgerStore struct {
	mu      sync.RWMutex
	results []domain.Result
	nextID  int
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{nextID: 1}
}

func (s *LedgerStore) InsertResult(_ context.Context, result *domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = fmt.Sprintf("result-%d", s.nextID)
	s.nextID++
	s.results = append(s.results, *result)
	return nil
}

func (s *LedgerStore) SumScores(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := 0
	for _, r := range s.results {
		if r.UserID == userID {
			sum += r.Score
		}
	}
	return sum, nil
}

func (s *LedgerStore) ListResults(_ context.Context, userID string, limit int) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0)
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
