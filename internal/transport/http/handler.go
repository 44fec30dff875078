package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quiz-gamification-service/internal/app"
	"quiz-gamification-service/internal/domain"
)

// defaultLeaderboardSize matches the classic top-10 board.
const defaultLeaderboardSize = 10

// Handler exposes the engine's use cases as JSON endpoints. Identity is taken
// from the request; a fronting gateway owns authentication.
type Handler struct {
	scoring     *app.ScoringService
	dashboard   *app.DashboardService
	tracker     *app.ProgressTracker
	leaderboard app.LeaderboardSource
	catalog     app.Catalog
}

func NewHandler(scoring *app.ScoringService, dashboard *app.DashboardService, tracker *app.ProgressTracker, leaderboard app.LeaderboardSource, catalog app.Catalog) *Handler {
	return &Handler{
		scoring:     scoring,
		dashboard:   dashboard,
		tracker:     tracker,
		leaderboard: leaderboard,
		catalog:     catalog,
	}
}

// Register mounts all routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quizzes", h.listQuizzes)
	mux.HandleFunc("POST /api/quizzes/{id}/submit", h.submitQuiz)
	mux.HandleFunc("POST /api/quizzes/{id}/progress", h.startProgress)
	mux.HandleFunc("GET /api/progress", h.getProgress)
	mux.HandleFunc("GET /api/leaderboard", h.getLeaderboard)
}

// sanitizedQuiz is the player-facing quiz shape with answers stripped.
type sanitizedQuiz struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	TimeLimit    int                 `json:"timeLimit,omitempty"`
	PointsReward int                 `json:"pointsReward"`
	Questions    []sanitizedQuestion `json:"questions"`
}

type sanitizedQuestion struct {
	ID      string          `json:"id"`
	Text    string          `json:"text"`
	Options []domain.Option `json:"options"`
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.catalog.ListQuizzes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load quizzes")
		return
	}
	out := make([]sanitizedQuiz, 0, len(quizzes))
	for _, q := range quizzes {
		questions := make([]sanitizedQuestion, 0, len(q.Questions))
		for _, qt := range q.Questions {
			questions = append(questions, sanitizedQuestion{ID: qt.ID, Text: qt.Text, Options: qt.Options})
		}
		out = append(out, sanitizedQuiz{
			ID:           q.ID,
			Title:        q.Title,
			Description:  q.Description,
			TimeLimit:    q.TimeLimit,
			PointsReward: q.PointsReward,
			Questions:    questions,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type submitRequest struct {
	UserID  string            `json:"userId"`
	Answers map[string]string `json:"answers"`
}

func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("id")
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId and answers are required")
		return
	}

	grade, err := h.scoring.Submit(r.Context(), req.UserID, quizID, req.Answers)
	var partial *domain.PartialPersistenceError
	switch {
	case errors.As(err, &partial):
		// The grade is computed from the quiz definition and the submitted
		// answers; it is owed to the caller even when a downstream write
		// failed. Reconciliation heals the stores.
		log.Printf("submit degraded user=%s quiz=%s: %v", req.UserID, quizID, err)
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, domain.ErrInvalidQuiz):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to score submission")
		return
	}
	writeJSON(w, http.StatusOK, grade)
}

type startProgressRequest struct {
	UserID               string `json:"userId"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
}

func (h *Handler) startProgress(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("id")
	var req startProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if _, err := h.catalog.GetQuiz(r.Context(), quizID); err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load quiz")
		return
	}
	record, err := h.tracker.Start(r.Context(), req.UserID, quizID, req.CurrentQuestionIndex)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record progress")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	summary, err := h.dashboard.Summary(r.Context(), userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	lb, err := h.leaderboard.TopN(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
