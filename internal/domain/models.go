package domain

import "time"

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
	Explanation     string   `json:"explanation,omitempty"`
}

// Quiz is an immutable quiz definition owned by the catalog.
// PointsReward is the total budget for a perfect run.
type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	TimeLimit    int        `json:"timeLimit,omitempty"` // seconds
	PointsReward int        `json:"pointsReward"`
	Questions    []Question `json:"questions"`
}

// GamificationCounter is the denormalized per-user summary. It is a cache of
// the result ledger and may lag behind it; readers must reconcile (see
// ReconciledPoints).
type GamificationCounter struct {
	Points int      `json:"points"`
	Badges []string `json:"badges"` // quiz ids, each at most once
	Level  int      `json:"level"`
	Streak int      `json:"streak"`
}

// HasBadge reports whether the badge for quizID was already awarded.
func (c *GamificationCounter) HasBadge(quizID string) bool {
	for _, b := range c.Badges {
		if b == quizID {
			return true
		}
	}
	return false
}

// AddBadge inserts quizID into the badge set. Re-adding an existing badge is a
// no-op, so a repeated perfect run never duplicates a trophy.
func (c *GamificationCounter) AddBadge(quizID string) bool {
	if c.HasBadge(quizID) {
		return false
	}
	c.Badges = append(c.Badges, quizID)
	return true
}

// User carries identity and the embedded gamification counter. Authentication
// fields live in the gateway; the engine only needs the counter.
type User struct {
	ID           string              `json:"id"`
	DisplayName  string              `json:"displayName"`
	Gamification GamificationCounter `json:"gamification"`
}

// Result is an append-only ledger entry for one quiz attempt. The sum of
// Score over a user's results is the authoritative lifetime point total.
type Result struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	QuizID         string    `json:"quizId"`
	Score          int       `json:"score"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	CompletedAt    time.Time `json:"completedAt"`
}

// ProgressStatus enumerates the per-(user, quiz) attempt states.
type ProgressStatus string

const (
	ProgressStarted    ProgressStatus = "started"
	ProgressInProgress ProgressStatus = "in-progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// ProgressRecord tracks an in-flight or completed attempt, keyed by
// (UserID, QuizID). At most one record exists per pair.
type ProgressRecord struct {
	UserID               string         `json:"userId"`
	QuizID               string         `json:"quizId"`
	Status               ProgressStatus `json:"status"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	LastActivityAt       time.Time      `json:"lastActivityAt"`
}

// AnswerFeedback explains the outcome for a single question.
type AnswerFeedback struct {
	QuestionID         string `json:"questionId"`
	QuestionText       string `json:"questionText"`
	SelectedOptionID   string `json:"selectedOptionId,omitempty"`
	SelectedOptionText string `json:"selectedOptionText"`
	CorrectOptionID    string `json:"correctOptionId"`
	CorrectOptionText  string `json:"correctOptionText"`
	Correct            bool   `json:"isCorrect"`
	Explanation        string `json:"explanation"`
}

// GradeResult is the ephemeral outcome of grading one submission. It is
// derived fresh per submission and never persisted as-is.
type GradeResult struct {
	Score          int              `json:"score"`
	CorrectCount   int              `json:"correctCount"`
	TotalQuestions int              `json:"totalQuestions"`
	BadgeAwarded   bool             `json:"badgeAwarded"`
	Badges         []string         `json:"badges"`
	Feedback       []AnswerFeedback `json:"feedback"`
}

// LeaderboardEntry is one ranked row with the reconciled point total.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Points      int    `json:"points"`
	BadgeCount  int    `json:"badges"`
}

// Leaderboard is an ordered snapshot of the top users.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// BadgeInfo resolves a badge id to a display label. Badges outlive their
// quizzes, so the label may be a fallback for a retired quiz.
type BadgeInfo struct {
	QuizID string `json:"quizId"`
	Title  string `json:"title"`
}

// RecentActivity is one row of the dashboard's recent-results list.
type RecentActivity struct {
	QuizID      string    `json:"quizId"`
	QuizTitle   string    `json:"quizTitle"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// ProgressSummary is the per-user dashboard view combining the catalog,
// ledger, counter, and progress records.
type ProgressSummary struct {
	TotalQuizzes         int              `json:"totalQuizzes"`
	CompletedQuizzes     int              `json:"completedQuizzes"`
	CompletionPercentage int              `json:"completionPercentage"`
	AverageScore         int              `json:"averageScore"`
	TotalPoints          int              `json:"totalPoints"`
	Level                int              `json:"level"`
	Streak               int              `json:"streak"`
	Badges               []BadgeInfo      `json:"earnedBadges"`
	RecentActivity       []RecentActivity `json:"recentActivity"`
	InProgress           []ProgressRecord `json:"inProgress"`
}
