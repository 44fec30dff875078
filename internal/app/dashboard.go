package app

import (
	"context"
	"math"

	"quiz-gamification-service/internal/domain"
)

// recentActivityWindow bounds the dashboard's recent-results list.
const recentActivityWindow = 5

// staleBadgeLabel is shown for badges whose quiz left the catalog. Badges are
// permanent trophies and never dropped just because the quiz was retired.
const staleBadgeLabel = "Unknown Quiz"

// DashboardService assembles the per-user progress view from the catalog,
// ledger, counter, and progress records.
type DashboardService struct {
	catalog  Catalog
	users    UserStore
	ledger   Ledger
	progress *ProgressTracker
}

func NewDashboardService(catalog Catalog, users UserStore, ledger Ledger, progress *ProgressTracker) *DashboardService {
	return &DashboardService{catalog: catalog, users: users, ledger: ledger, progress: progress}
}

// Summary computes the dashboard for one user. The point total is reconciled
// against the ledger; the counter's stored value is only trusted when the
// user has no results yet.
func (d *DashboardService) Summary(ctx context.Context, userID string) (domain.ProgressSummary, error) {
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return domain.ProgressSummary{}, err
	}
	quizzes, err := d.catalog.ListQuizzes(ctx)
	if err != nil {
		return domain.ProgressSummary{}, err
	}
	results, err := d.ledger.ListResults(ctx, userID, 0)
	if err != nil {
		return domain.ProgressSummary{}, err
	}
	open, err := d.progress.InProgress(ctx, userID)
	if err != nil {
		return domain.ProgressSummary{}, err
	}

	titles := make(map[string]string, len(quizzes))
	for _, q := range quizzes {
		titles[q.ID] = q.Title
	}

	completed := make(map[string]struct{})
	totalScore := 0
	for _, r := range results {
		completed[r.QuizID] = struct{}{}
		totalScore += r.Score
	}

	totalPoints := user.Gamification.Points
	if totalScore > 0 {
		totalPoints = totalScore
	}

	averageScore := 0
	if len(results) > 0 {
		averageScore = int(math.Round(float64(totalScore) / float64(len(results))))
	}
	completionPct := 0
	if len(quizzes) > 0 {
		completionPct = int(math.Round(float64(len(completed)) / float64(len(quizzes)) * 100))
	}

	badges := make([]domain.BadgeInfo, 0, len(user.Gamification.Badges))
	for _, quizID := range user.Gamification.Badges {
		title, ok := titles[quizID]
		if !ok {
			title = staleBadgeLabel
		}
		badges = append(badges, domain.BadgeInfo{QuizID: quizID, Title: title})
	}

	recent := make([]domain.RecentActivity, 0, recentActivityWindow)
	for _, r := range results {
		if len(recent) == recentActivityWindow {
			break
		}
		title, ok := titles[r.QuizID]
		if !ok {
			title = staleBadgeLabel
		}
		recent = append(recent, domain.RecentActivity{
			QuizID:      r.QuizID,
			QuizTitle:   title,
			Score:       r.Score,
			CompletedAt: r.CompletedAt,
		})
	}

	return domain.ProgressSummary{
		TotalQuizzes:         len(quizzes),
		CompletedQuizzes:     len(completed),
		CompletionPercentage: completionPct,
		AverageScore:         averageScore,
		TotalPoints:          totalPoints,
		Level:                user.Gamification.Level,
		Streak:               user.Gamification.Streak,
		Badges:               badges,
		RecentActivity:       recent,
		InProgress:           open,
	}, nil
}
