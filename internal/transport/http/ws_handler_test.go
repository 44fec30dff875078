package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-gamification-service/internal/app"
	"quiz-gamification-service/internal/domain"
	"quiz-gamification-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketLeaderboardFeed(t *testing.T) {
	catalog := memory.NewCatalog(memory.NewStaticQuizLoader(testQuizzes()), time.Minute)
	users := memory.NewUserStore()
	if err := users.SaveUser(context.Background(), domain.User{
		ID:           "u1",
		DisplayName:  "Alice",
		Gamification: domain.GamificationCounter{Level: 1, Badges: []string{}},
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	ledger := memory.NewLedgerStore()
	tracker := app.NewProgressTracker(memory.NewProgressStore())
	reader := app.NewLeaderboardReader(users, ledger)
	feed := app.NewLeaderboardFeed(reader, 10)
	scoring := app.NewScoringService(catalog, users, ledger, tracker).WithFeed(feed)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/leaderboard", NewWSHandler(feed).ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives first.
	snapshot := readLeaderboard(t, conn)
	if len(snapshot.Entries) != 1 || snapshot.Entries[0].Points != 0 {
		t.Fatalf("unexpected initial snapshot: %+v", snapshot.Entries)
	}

	// A scored submission pushes fresh standings.
	if _, err := scoring.Submit(context.Background(), "u1", "quiz-1", map[string]string{
		"q1": "a", "q2": "c", "q3": "b",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	update := readLeaderboard(t, conn)
	if update.Entries[0].Points != 100 {
		t.Fatalf("expected 100 points after submission, got %+v", update.Entries[0])
	}
}

func readLeaderboard(t *testing.T, conn *websocket.Conn) domain.Leaderboard {
	t.Helper()
	var msg struct {
		Type    string             `json:"type"`
		Payload domain.Leaderboard `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard message, got %s", msg.Type)
	}
	return msg.Payload
}
