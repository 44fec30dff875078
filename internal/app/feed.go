package app

import (
	"context"
	"log"
	"sync"

	"quiz-gamification-service/internal/domain"
)

// SnapshotInvalidator drops a cached snapshot so the next read recomputes
// from the backing stores. Implemented by caching leaderboard sources.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, n int)
}

// LeaderboardFeed fans out fresh leaderboard snapshots to subscribers. The
// scoring engine publishes after every submission; websocket connections
// subscribe for the lifetime of the socket.
type LeaderboardFeed struct {
	source LeaderboardSource
	size   int

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardFeed(source LeaderboardSource, size int) *LeaderboardFeed {
	return &LeaderboardFeed{
		source:      source,
		size:        size,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe returns a channel that receives snapshots, primed with the
// current standings. The caller must invoke cancel to avoid leaks.
func (f *LeaderboardFeed) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := f.source.TopN(ctx, f.size)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Leaderboard, 8)
	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel, nil
}

// Publish recomputes the standings and broadcasts them. Slow subscribers get
// the stale snapshot in their buffer replaced rather than blocking the
// broadcast.
func (f *LeaderboardFeed) Publish(ctx context.Context) {
	if inv, ok := f.source.(SnapshotInvalidator); ok {
		inv.Invalidate(ctx, f.size)
	}
	lb, err := f.source.TopN(ctx, f.size)
	if err != nil {
		log.Printf("leaderboard feed refresh failed: %v", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
