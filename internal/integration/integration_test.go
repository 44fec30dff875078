package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz-gamification-service/internal/app"
	"quiz-gamification-service/internal/domain"
	pgstore "quiz-gamification-service/internal/infra/postgres"
	pgmigrations "quiz-gamification-service/internal/infra/postgres/migrations"
	infraredis "quiz-gamification-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedDatabase(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	users := pgstore.NewUserStore(pool)
	ledger := pgstore.NewLedgerStore(pool)
	progress := pgstore.NewProgressStore(pool)
	catalog := infraredis.NewCatalog(redisClient, pgstore.NewCatalog(pool), 5*time.Minute)

	if err := users.SaveUser(ctx, domain.User{
		ID:           "u1",
		DisplayName:  "Alice",
		Gamification: domain.GamificationCounter{Level: 1, Badges: []string{}},
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	tracker := app.NewProgressTracker(progress)
	scoring := app.NewScoringService(catalog, users, ledger, tracker)

	if _, err := tracker.Start(ctx, "u1", "quiz-1", 0); err != nil {
		t.Fatalf("start progress: %v", err)
	}

	grade, err := scoring.Submit(ctx, "u1", "quiz-1", map[string]string{"q1": "o2"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if grade.Score != 100 || grade.CorrectCount != 1 {
		t.Fatalf("expected perfect grade, got %+v", grade)
	}
	if !grade.BadgeAwarded {
		t.Fatalf("expected badge on perfect run")
	}

	user, err := users.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Gamification.Points != 100 || len(user.Gamification.Badges) != 1 {
		t.Fatalf("counter not updated: %+v", user.Gamification)
	}

	sum, err := ledger.SumScores(ctx, "u1")
	if err != nil {
		t.Fatalf("sum scores: %v", err)
	}
	if sum != 100 {
		t.Fatalf("expected ledger sum 100, got %d", sum)
	}

	record, err := progress.GetProgress(ctx, "u1", "quiz-1")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if record.Status != domain.ProgressCompleted {
		t.Fatalf("expected completed progress, got %s", record.Status)
	}

	// Force counter drift and verify the reconciled leaderboard and the
	// reconciler both favor the ledger.
	user.Gamification.Points = 0
	if err := users.SaveUser(ctx, user); err != nil {
		t.Fatalf("save drifted user: %v", err)
	}

	lb, err := app.NewLeaderboardReader(users, ledger).TopN(ctx, 10)
	if err != nil {
		t.Fatalf("topn: %v", err)
	}
	if lb.Entries[0].Points != 100 {
		t.Fatalf("expected reconciled 100 despite drifted counter, got %+v", lb.Entries[0])
	}

	repaired, err := app.NewReconciler(users, ledger).ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if repaired != 1 {
		t.Fatalf("expected 1 repaired counter, got %d", repaired)
	}
	user, _ = users.GetUser(ctx, "u1")
	if user.Gamification.Points != 100 {
		t.Fatalf("expected counter rebuilt to 100, got %d", user.Gamification.Points)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedDatabase(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:           "quiz-1",
		Title:        "Arithmetic Basics",
		PointsReward: 100,
		Questions: []domain.Question{
			{
				ID:   "q1",
				Text: "What is 2 + 2?",
				Options: []domain.Option{
					{ID: "o1", Text: "3"},
					{ID: "o2", Text: "4"},
					{ID: "o3", Text: "5"},
				},
				CorrectOptionID: "o2",
				Explanation:     "Two plus two equals four.",
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
