package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsReconciler(t *testing.T) {
	rec := &fakeReconciler{}
	s := New(rec, 50*time.Millisecond)
	s.Start()
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for rec.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("reconciler never invoked")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

type fakeReconciler struct {
	calls atomic.Int64
}

func (f *fakeReconciler) ReconcileAll(context.Context) (int, error) {
	f.calls.Add(1)
	return 0, nil
}
