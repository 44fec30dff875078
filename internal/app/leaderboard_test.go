package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-gamification-service/internal/app"
	"quiz-gamification-service/internal/domain"
	"quiz-gamification-service/internal/infra/memory"
)

func TestTopNPrefersLedgerOverStaleCounter(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	ledger := memory.NewLedgerStore()

	// Counter says 0, ledger says 80: the ledger wins.
	seedUser(t, users, "u1", "Alice", 0, nil)
	insertResult(t, ledger, "u1", 50)
	insertResult(t, ledger, "u1", 30)

	// No ledger rows: the seeded counter is trusted.
	seedUser(t, users, "u2", "Bob", 40, nil)

	lb, err := app.NewLeaderboardReader(users, ledger).TopN(ctx, 10)
	if err != nil {
		t.Fatalf("topn: %v", err)
	}
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lb.Entries))
	}
	if lb.Entries[0].UserID != "u1" || lb.Entries[0].Points != 80 {
		t.Fatalf("expected Alice leading with reconciled 80, got %+v", lb.Entries[0])
	}
	if lb.Entries[1].Points != 40 {
		t.Fatalf("expected Bob with counter 40, got %+v", lb.Entries[1])
	}
}

func TestTopNStableTiesAndTruncation(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	ledger := memory.NewLedgerStore()

	seedUser(t, users, "u1", "Alice", 50, nil)
	seedUser(t, users, "u2", "Bob", 50, nil)
	seedUser(t, users, "u3", "Carol", 70, []string{"quiz-1", "quiz-2"})

	lb, err := app.NewLeaderboardReader(users, ledger).TopN(ctx, 2)
	if err != nil {
		t.Fatalf("topn: %v", err)
	}
	if len(lb.Entries) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(lb.Entries))
	}
	if lb.Entries[0].UserID != "u3" {
		t.Fatalf("expected Carol first, got %+v", lb.Entries[0])
	}
	if lb.Entries[0].BadgeCount != 2 {
		t.Fatalf("expected badge count 2, got %d", lb.Entries[0].BadgeCount)
	}
	// Stable sort keeps enumeration order for the 50-50 tie.
	if lb.Entries[1].UserID != "u1" {
		t.Fatalf("expected tie to keep enumeration order, got %+v", lb.Entries[1])
	}
}

func TestTopNSortedNonIncreasing(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	ledger := memory.NewLedgerStore()

	seedUser(t, users, "u1", "Alice", 10, nil)
	seedUser(t, users, "u2", "Bob", 90, nil)
	seedUser(t, users, "u3", "Carol", 30, nil)

	lb, err := app.NewLeaderboardReader(users, ledger).TopN(ctx, 10)
	if err != nil {
		t.Fatalf("topn: %v", err)
	}
	for i := 1; i < len(lb.Entries); i++ {
		if lb.Entries[i].Points > lb.Entries[i-1].Points {
			t.Fatalf("leaderboard not sorted: %+v", lb.Entries)
		}
	}
}

func TestReconcilerRepairsDrift(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	ledger := memory.NewLedgerStore()

	seedUser(t, users, "u1", "Alice", 0, nil)     // drifted: ledger has rows
	seedUser(t, users, "u2", "Bob", 40, nil)      // seeded, no ledger rows
	seedUser(t, users, "u3", "Carol", 120, nil)   // already consistent
	insertResult(t, ledger, "u1", 150)
	insertResult(t, ledger, "u3", 120)

	repaired, err := app.NewReconciler(users, ledger).ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("expected 1 repaired counter, got %d", repaired)
	}

	u1, _ := users.GetUser(ctx, "u1")
	if u1.Gamification.Points != 150 {
		t.Fatalf("expected repaired counter 150, got %d", u1.Gamification.Points)
	}
	if u1.Gamification.Level != app.LevelForPoints(150) {
		t.Fatalf("expected level recomputed, got %d", u1.Gamification.Level)
	}
	u2, _ := users.GetUser(ctx, "u2")
	if u2.Gamification.Points != 40 {
		t.Fatalf("seeded counter should be untouched, got %d", u2.Gamification.Points)
	}
}

func TestFeedDeliversSnapshots(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	ledger := memory.NewLedgerStore()
	seedUser(t, users, "u1", "Alice", 10, nil)

	feed := app.NewLeaderboardFeed(app.NewLeaderboardReader(users, ledger), 10)

	ch, cancel, err := feed.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if len(initial.Entries) != 1 || initial.Entries[0].Points != 10 {
		t.Fatalf("unexpected initial snapshot: %+v", initial.Entries)
	}

	insertResult(t, ledger, "u1", 90)
	feed.Publish(ctx)

	update := <-ch
	if update.Entries[0].Points != 90 {
		t.Fatalf("expected reconciled 90 after publish, got %+v", update.Entries[0])
	}
}

func seedUser(t *testing.T, users *memory.UserStore, id, name string, points int, badges []string) {
	t.Helper()
	if badges == nil {
		badges = []string{}
	}
	err := users.SaveUser(context.Background(), domain.User{
		ID:          id,
		DisplayName: name,
		Gamification: domain.GamificationCounter{
			Points: points,
			Badges: badges,
			Level:  app.LevelForPoints(points),
		},
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func insertResult(t *testing.T, ledger *memory.LedgerStore, userID string, score int) {
	t.Helper()
	err := ledger.InsertResult(context.Background(), &domain.Result{
		UserID:         userID,
		QuizID:         "quiz-1",
		Score:          score,
		CorrectCount:   1,
		TotalQuestions: 1,
		CompletedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("insert result: %v", err)
	}
}
