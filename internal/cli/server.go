package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-gamification-service/internal/app"
	"quiz-gamification-service/internal/config"
	"quiz-gamification-service/internal/domain"
	"quiz-gamification-service/internal/infra/memory"
	pgstore "quiz-gamification-service/internal/infra/postgres"
	redisstore "quiz-gamification-service/internal/infra/redis"
	"quiz-gamification-service/internal/scheduler"
	transport "quiz-gamification-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the gamification server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		loader   memory.QuizLoader
		users    app.UserStore
		ledger   app.Ledger
		progress app.ProgressStore
	)
	if pool != nil {
		loader = pgstore.NewCatalog(pool)
		users = pgstore.NewUserStore(pool)
		ledger = pgstore.NewLedgerStore(pool)
		progress = pgstore.NewProgressStore(pool)
	} else {
		log.Printf("no postgres configured, serving demo data from memory")
		loader = memory.NewStaticQuizLoader(sampleQuizzes())
		userStore := memory.NewUserStore()
		for _, u := range sampleUsers() {
			_ = userStore.SaveUser(ctx, u)
		}
		users = userStore
		ledger = memory.NewLedgerStore()
		progress = memory.NewProgressStore()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var catalog app.Catalog
	if redisClient != nil {
		catalog = redisstore.NewCatalog(redisClient, loader, quizTTL)
	} else {
		catalog = memory.NewCatalog(loader, quizTTL)
	}

	tracker := app.NewProgressTracker(progress)
	reader := app.NewLeaderboardReader(users, ledger)

	var lbSource app.LeaderboardSource = reader
	if redisClient != nil {
		lbTTL := config.TTLDuration(cfg.Leaderboard.TTL, 5*time.Second)
		lbSource = redisstore.NewLeaderboardCache(redisClient, reader, lbTTL)
	}

	lbSize := cfg.Leaderboard.Size
	if lbSize <= 0 {
		lbSize = 10
	}
	feed := app.NewLeaderboardFeed(lbSource, lbSize)

	scoring := app.NewScoringService(catalog, users, ledger, tracker).WithFeed(feed)
	dashboard := app.NewDashboardService(catalog, users, ledger, tracker)

	if interval := config.TTLDuration(cfg.Reconcile.Interval, 0); interval > 0 {
		job := scheduler.New(app.NewReconciler(users, ledger), interval)
		job.Start()
		defer job.Stop()
	}

	handler := transport.NewHandler(scoring, dashboard, tracker, lbSource, catalog)
	wsHandler := transport.NewWSHandler(feed)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting gamification service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes provides minimal demo content for running without Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
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
		},
	}
}

func sampleUsers() []domain.User {
	return []domain.User{
		{ID: "u1", DisplayName: "Alice", Gamification: domain.GamificationCounter{Level: 1, Badges: []string{}}},
		{ID: "u2", DisplayName: "Bob", Gamification: domain.GamificationCounter{Level: 1, Badges: []string{}}},
	}
}
