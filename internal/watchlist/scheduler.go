package watchlist

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler periodically refreshes entries that are still missing a placeholder.
type Scheduler struct {
	cron         *cron.Cron
	synchronizer *Synchronizer
	logger       *log.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler parses spec (standard cron syntax or descriptors such as
// "@every 6h") and prepares a scheduler. Overlapping runs are skipped.
func NewScheduler(s *Synchronizer, spec string, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.Default()
	}
	cronLogger := cron.PrintfLogger(logger)
	sched := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		synchronizer: s,
		logger:       logger,
		ctx:          context.Background(),
	}
	if _, err := sched.cron.AddFunc(spec, sched.run); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Start begins running jobs. Jobs observe ctx and stop when it is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Println("watchlist: refresh scheduler started")
	s.cron.Start()
}

// Stop prevents new runs and waits for a running batch, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Println("watchlist: refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	result, err := s.synchronizer.BulkRefreshStale(ctx, 0)
	if err != nil {
		s.logger.Printf("watchlist: scheduled refresh failed: %v", err)
		return
	}
	if result.Failed > 0 {
		s.logger.Printf("watchlist: scheduled refresh left %d entries pending", result.Failed)
	}
}
