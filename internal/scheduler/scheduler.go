package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Reconciler is the unit of work the scheduler drives.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// Scheduler periodically reconciles gamification counters against the result
// ledger, healing drift left behind by partial submission writes.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	reconciler Reconciler
	interval   time.Duration
}

func New(reconciler Reconciler, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		reconciler: reconciler,
		interval:   interval,
	}
}

// Start begins the periodic reconciliation in the background.
func (s *Scheduler) Start() {
	s.scheduler.Every(s.interval).Do(s.runOnce)
	s.scheduler.StartAsync()
}

// Stop terminates the scheduled job.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	repaired, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		log.Printf("reconciliation pass failed: %v", err)
		return
	}
	if repaired > 0 {
		log.Printf("reconciliation pass repaired %d counters", repaired)
	}
}
