package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-gamification-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// UserStore persists users with the gamification counter as a JSONB column,
// mirroring the schema-light counter the engine mutates as one value.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var (
		user domain.User
		raw  []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name, gamification FROM users WHERE id=$1`, userID,
	).Scan(&user.ID, &user.DisplayName, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := json.Unmarshal(raw, &user.Gamification); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal counter: %w", err)
	}
	if user.Gamification.Badges == nil {
		user.Gamification.Badges = []string{}
	}
	return user, nil
}

func (s *UserStore) SaveUser(ctx context.Context, user domain.User) error {
	raw, err := json.Marshal(user.Gamification)
	if err != nil {
		return fmt.Errorf("marshal counter: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, display_name, gamification) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET display_name=EXCLUDED.display_name, gamification=EXCLUDED.gamification`,
		user.ID, user.DisplayName, raw)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *UserStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, display_name, gamification FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			user domain.User
			raw  []byte
		)
		if err := rows.Scan(&user.ID, &user.DisplayName, &raw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if err := json.Unmarshal(raw, &user.Gamification); err != nil {
			return nil, fmt.Errorf("unmarshal counter: %w", err)
		}
		if user.Gamification.Badges == nil {
			user.Gamification.Badges = []string{}
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
