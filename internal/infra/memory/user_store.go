package memory

import (
	"context"
	"sync"

	"quiz-gamification-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
	order []string // insertion order, keeps ListUsers deterministic
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (s *UserStore) SaveUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		s.order = append(s.order, user.ID)
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *UserStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(s.users))
	for _, id := range s.order {
		users = append(users, cloneUser(s.users[id]))
	}
	return users, nil
}

// cloneUser copies the badge slice so callers cannot mutate stored state.
func cloneUser(u domain.User) domain.User {
	badges := make([]string, len(u.Gamification.Badges))
	copy(badges, u.Gamification.Badges)
	u.Gamification.Badges = badges
	return u
}
