package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"quiz-gamification-service/internal/domain"
)

// inProgressWindow bounds the dashboard's in-progress list.
const inProgressWindow = 4

// ProgressTracker maintains the per-(user, quiz) attempt state machine:
// absent -> started -> in-progress -> completed. Records are never deleted;
// they double as a "last touched" history.
type ProgressTracker struct {
	store ProgressStore
	now   func() time.Time
}

func NewProgressTracker(store ProgressStore) *ProgressTracker {
	return &ProgressTracker{store: store, now: time.Now}
}

// Start records that the user opened the quiz at currentIndex.
//
// A completed record only gets its index and timestamp refreshed: finishing a
// quiz is permanent and reopening it must not make the attempt vanish from
// "finished" views.
func (t *ProgressTracker) Start(ctx context.Context, userID, quizID string, currentIndex int) (domain.ProgressRecord, error) {
	record, err := t.store.GetProgress(ctx, userID, quizID)
	switch {
	case errors.Is(err, domain.ErrProgressNotFound):
		record = domain.ProgressRecord{
			UserID: userID,
			QuizID: quizID,
			Status: domain.ProgressStarted,
		}
	case err != nil:
		return domain.ProgressRecord{}, err
	case record.Status != domain.ProgressCompleted:
		record.Status = domain.ProgressInProgress
	}
	record.CurrentQuestionIndex = currentIndex
	record.LastActivityAt = t.now()
	if err := t.store.UpsertProgress(ctx, record); err != nil {
		return domain.ProgressRecord{}, err
	}
	return record, nil
}

// Complete marks the attempt finished. Called by the scoring engine on
// submission; the current index is left wherever the user stopped.
func (t *ProgressTracker) Complete(ctx context.Context, userID, quizID string) error {
	record, err := t.store.GetProgress(ctx, userID, quizID)
	if errors.Is(err, domain.ErrProgressNotFound) {
		// Submitting without a prior start signal is legal.
		record = domain.ProgressRecord{UserID: userID, QuizID: quizID}
	} else if err != nil {
		return err
	}
	record.Status = domain.ProgressCompleted
	record.LastActivityAt = t.now()
	return t.store.UpsertProgress(ctx, record)
}

// InProgress returns the user's unfinished quizzes, newest activity first,
// capped to a small window to bound dashboard payloads.
func (t *ProgressTracker) InProgress(ctx context.Context, userID string) ([]domain.ProgressRecord, error) {
	records, err := t.store.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	open := make([]domain.ProgressRecord, 0, len(records))
	for _, r := range records {
		if r.Status == domain.ProgressStarted || r.Status == domain.ProgressInProgress {
			open = append(open, r)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].LastActivityAt.After(open[j].LastActivityAt)
	})
	if len(open) > inProgressWindow {
		open = open[:inProgressWindow]
	}
	return open, nil
}
