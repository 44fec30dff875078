package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuizNotFound indicates the quiz definition could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates the submitting user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidQuiz is returned for a quiz with zero questions; grading such
	// a quiz would divide by zero, so it is treated as a configuration defect.
	ErrInvalidQuiz = errors.New("quiz has no questions")
	// ErrProgressNotFound is returned when no progress record exists for a
	// (user, quiz) pair.
	ErrProgressNotFound = errors.New("progress record not found")
)

// PartialPersistenceError reports side effects that failed after a submission
// was graded. Each store write is attempted independently; a failure in one
// never aborts the others, so the grade itself is still valid and owed to the
// caller. Counter/ledger disagreement left behind is healed by reconciliation,
// not treated as data loss.
type PartialPersistenceError struct {
	Errs []error
}

func (e *PartialPersistenceError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("partial persistence failure: %s", strings.Join(msgs, "; "))
}

func (e *PartialPersistenceError) Unwrap() []error {
	return e.Errs
}
