package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"quiz-gamification-service/internal/domain"
)

// Catalog loads quiz definitions (from cache/backing store). Definitions are
// read-only to the engine.
type Catalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// UserStore abstracts how users and their gamification counters are stored.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	SaveUser(ctx context.Context, user domain.User) error
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// Ledger is the append-only store of quiz attempts. InsertResult assigns the
// result ID. ListResults returns newest-first; limit <= 0 means no limit.
type Ledger interface {
	InsertResult(ctx context.Context, result *domain.Result) error
	SumScores(ctx context.Context, userID string) (int, error)
	ListResults(ctx context.Context, userID string, limit int) ([]domain.Result, error)
}

// ProgressStore persists per-(user, quiz) attempt state. GetProgress returns
// domain.ErrProgressNotFound when no record exists for the pair.
type ProgressStore interface {
	GetProgress(ctx context.Context, userID, quizID string) (domain.ProgressRecord, error)
	UpsertProgress(ctx context.Context, record domain.ProgressRecord) error
	ListProgress(ctx context.Context, userID string) ([]domain.ProgressRecord, error)
}

// Publisher receives a signal after a submission changed the standings.
type Publisher interface {
	Publish(ctx context.Context)
}

// ScoringService grades submissions and applies the three side effects:
// counter update, progress completion, ledger append. The writes are not
// covered by a cross-store transaction; each is attempted independently and
// failures are collected into a PartialPersistenceError while the grade is
// still returned.
type ScoringService struct {
	catalog  Catalog
	users    UserStore
	ledger   Ledger
	progress *ProgressTracker
	feed     Publisher
	locks    keyedMutex
	now      func() time.Time
}

func NewScoringService(catalog Catalog, users UserStore, ledger Ledger, progress *ProgressTracker) *ScoringService {
	return &ScoringService{
		catalog:  catalog,
		users:    users,
		ledger:   ledger,
		progress: progress,
		now:      time.Now,
	}
}

// WithFeed attaches a publisher notified after every scored submission.
func (s *ScoringService) WithFeed(feed Publisher) *ScoringService {
	s.feed = feed
	return s
}

// Submit grades the answers against the quiz definition and applies the side
// effects. The returned GradeResult is always valid when the error is nil or
// a PartialPersistenceError: a user who answered is owed their grade even if
// a downstream write failed.
//
// Answers map question id to selected option id. Missing keys and option ids
// not present in the quiz count as wrong, not as errors.
func (s *ScoringService) Submit(ctx context.Context, userID, quizID string, answers map[string]string) (domain.GradeResult, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.GradeResult{}, err
	}
	if len(quiz.Questions) == 0 {
		return domain.GradeResult{}, fmt.Errorf("%w: %s", domain.ErrInvalidQuiz, quizID)
	}

	// Serialize side effects per user so concurrent submissions cannot race
	// on the counter read-modify-write or double-award a badge.
	unlock := s.locks.lock(userID)
	defer unlock()

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.GradeResult{}, err
	}

	correctCount := 0
	for _, q := range quiz.Questions {
		if selected, ok := answers[q.ID]; ok && selected != "" && selected == q.CorrectOptionID {
			correctCount++
		}
	}
	totalQuestions := len(quiz.Questions)
	points := awardPoints(correctCount, totalQuestions, quiz.PointsReward)
	perfect := correctCount == totalQuestions

	user.Gamification.Points += points
	user.Gamification.Streak++
	badgeAwarded := false
	if perfect {
		badgeAwarded = user.Gamification.AddBadge(quiz.ID)
	}
	user.Gamification.Level = LevelForPoints(user.Gamification.Points)

	var failures []error
	if err := s.users.SaveUser(ctx, user); err != nil {
		log.Printf("[inconsistency] counter update failed user=%s quiz=%s awarded=%d: %v", userID, quizID, points, err)
		failures = append(failures, fmt.Errorf("counter update: %w", err))
	}
	if err := s.progress.Complete(ctx, userID, quiz.ID); err != nil {
		log.Printf("[inconsistency] progress completion failed user=%s quiz=%s: %v", userID, quizID, err)
		failures = append(failures, fmt.Errorf("progress completion: %w", err))
	}
	result := domain.Result{
		UserID:         userID,
		QuizID:         quiz.ID,
		Score:          points,
		CorrectCount:   correctCount,
		TotalQuestions: totalQuestions,
		CompletedAt:    s.now(),
	}
	if err := s.ledger.InsertResult(ctx, &result); err != nil {
		log.Printf("[inconsistency] ledger append failed user=%s quiz=%s score=%d: %v", userID, quizID, points, err)
		failures = append(failures, fmt.Errorf("ledger append: %w", err))
	}

	grade := domain.GradeResult{
		Score:          points,
		CorrectCount:   correctCount,
		TotalQuestions: totalQuestions,
		BadgeAwarded:   badgeAwarded,
		Badges:         user.Gamification.Badges,
		Feedback:       buildFeedback(quiz, answers),
	}

	if s.feed != nil {
		s.feed.Publish(ctx)
	}

	if len(failures) > 0 {
		return grade, &domain.PartialPersistenceError{Errs: failures}
	}
	return grade, nil
}

// awardPoints maps a partial score onto the quiz's reward budget. A perfect
// run gets the full budget so no points are lost to truncation; anything less
// is floored integer division.
func awardPoints(correct, total, reward int) int {
	if correct == total {
		return reward
	}
	return correct * reward / total
}

// LevelForPoints derives the level shown on dashboards from a point total.
// Levels advance every 100 points, starting at 1.
func LevelForPoints(points int) int {
	return points/100 + 1
}

const (
	noAnswerLabel      = "No Answer"
	unknownOptionLabel = "Unknown"
	noExplanationLabel = "No explanation provided."
)

func buildFeedback(quiz domain.Quiz, answers map[string]string) []domain.AnswerFeedback {
	feedback := make([]domain.AnswerFeedback, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		selectedID := answers[q.ID]
		selectedText := noAnswerLabel
		// Unknown only shows up when the quiz omits its correct option.
		correctText := unknownOptionLabel
		for _, opt := range q.Options {
			if opt.ID == selectedID && selectedID != "" {
				selectedText = opt.Text
			}
			if opt.ID == q.CorrectOptionID {
				correctText = opt.Text
			}
		}
		explanation := q.Explanation
		if explanation == "" {
			explanation = noExplanationLabel
		}
		feedback = append(feedback, domain.AnswerFeedback{
			QuestionID:         q.ID,
			QuestionText:       q.Text,
			SelectedOptionID:   selectedID,
			SelectedOptionText: selectedText,
			CorrectOptionID:    q.CorrectOptionID,
			CorrectOptionText:  correctText,
			Correct:            selectedID != "" && selectedID == q.CorrectOptionID,
			Explanation:        explanation,
		})
	}
	return feedback
}

// keyedMutex serializes critical sections per key. Entries are never evicted;
// the key space is bounded by the active user population.
type keyedMutex struct {
	locks sync.Map
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
