package app

import (
	"context"
	"sort"
	"time"

	"quiz-gamification-service/internal/domain"
)

// LeaderboardSource yields a ranked snapshot. Implemented by the reader and
// by caching decorators in front of it.
type LeaderboardSource interface {
	TopN(ctx context.Context, n int) (domain.Leaderboard, error)
}

// LeaderboardReader derives the ranking by reading both the counter and the
// ledger and resolving disagreement in the ledger's favor.
type LeaderboardReader struct {
	users  UserStore
	ledger Ledger
	now    func() time.Time
}

func NewLeaderboardReader(users UserStore, ledger Ledger) *LeaderboardReader {
	return &LeaderboardReader{users: users, ledger: ledger, now: time.Now}
}

// TopN returns the first n users by reconciled points, descending. The sort
// is stable: ties keep enumeration order, there is no secondary key.
func (r *LeaderboardReader) TopN(ctx context.Context, n int) (domain.Leaderboard, error) {
	users, err := r.users.ListUsers(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		points, err := r.reconciledPoints(ctx, u)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			Points:      points,
			BadgeCount:  len(u.Gamification.Badges),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: r.now()}, nil
}

// reconciledPoints prefers the ledger sum once any history exists. A zero sum
// with a non-zero counter means a user seeded out-of-band: trust the counter
// until their first result lands.
func (r *LeaderboardReader) reconciledPoints(ctx context.Context, user domain.User) (int, error) {
	sum, err := r.ledger.SumScores(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if sum > 0 {
		return sum, nil
	}
	return user.Gamification.Points, nil
}
