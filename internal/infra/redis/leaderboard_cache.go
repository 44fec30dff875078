package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"quiz-gamification-service/internal/app"
	"quiz-gamification-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// LeaderboardCache is a short-TTL snapshot cache in front of the leaderboard
// reader. Computing the reconciled ranking touches every user's ledger sum,
// so popular leaderboard endpoints get a cached copy; the TTL bounds how long
// a just-scored submission can stay invisible.
type LeaderboardCache struct {
	client *redis.Client
	source app.LeaderboardSource
	ttl    time.Duration
	sf     singleflight.Group
}

func NewLeaderboardCache(client *redis.Client, source app.LeaderboardSource, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, source: source, ttl: ttl}
}

func (c *LeaderboardCache) TopN(ctx context.Context, n int) (domain.Leaderboard, error) {
	key := c.key(n)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var lb domain.Leaderboard
		if err := json.Unmarshal(raw, &lb); err == nil {
			return lb, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var lb domain.Leaderboard
			if err := json.Unmarshal(raw, &lb); err == nil {
				return lb, nil
			}
		}

		lb, err := c.source.TopN(ctx, n)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		if raw, err := json.Marshal(lb); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		}
		return lb, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

// Invalidate drops the cached snapshot for size n, e.g. after a reconcile
// pass rewrote counters.
func (c *LeaderboardCache) Invalidate(ctx context.Context, n int) {
	_ = c.client.Del(ctx, c.key(n)).Err()
}

func (c *LeaderboardCache) key(n int) string {
	return "leaderboard:top:" + strconv.Itoa(n)
}
