package app

import (
	"context"
	"log"

	"quiz-gamification-service/internal/domain"
)

// Reconciler repairs counter drift by recomputing each user's points from the
// result ledger. Drift is expected: the counter update and the ledger append
// are independent writes and either can fail alone.
type Reconciler struct {
	users  UserStore
	ledger Ledger
}

func NewReconciler(users UserStore, ledger Ledger) *Reconciler {
	return &Reconciler{users: users, ledger: ledger}
}

// ReconcileAll overwrites stale counters from the ledger and returns how many
// users were repaired. Users with no ledger history are left alone so that
// out-of-band seeded counters survive.
func (r *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	users, err := r.users.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, u := range users {
		changed, err := r.reconcileUser(ctx, u)
		if err != nil {
			return repaired, err
		}
		if changed {
			repaired++
		}
	}
	return repaired, nil
}

// ReconcileUser repairs a single counter. Reports whether a write happened.
func (r *Reconciler) ReconcileUser(ctx context.Context, userID string) (bool, error) {
	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return r.reconcileUser(ctx, user)
}

func (r *Reconciler) reconcileUser(ctx context.Context, user domain.User) (bool, error) {
	sum, err := r.ledger.SumScores(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if sum == 0 || sum == user.Gamification.Points {
		return false, nil
	}
	log.Printf("[reconcile] user=%s counter=%d ledger=%d", user.ID, user.Gamification.Points, sum)
	user.Gamification.Points = sum
	user.Gamification.Level = LevelForPoints(sum)
	if err := r.users.SaveUser(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}
